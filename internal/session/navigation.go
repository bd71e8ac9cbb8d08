package session

// Route identifies a screen of the storefront.
type Route string

const (
	RouteHome           Route = "/"
	RouteLogin          Route = "/login"
	RouteRegister       Route = "/register"
	RouteProducts       Route = "/products"
	RouteProductDetail  Route = "/products/:id"
	RouteCart           Route = "/cart"
	RouteOrders         Route = "/orders"
	RouteProfile        Route = "/profile"
	RouteChangePassword Route = "/change-password"
	RouteDeleteAccount  Route = "/delete-account"
	RouteAdminProducts  Route = "/admin/products"
	RouteAdminConfig    Route = "/admin/config"
)

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(to Route)
}

// Level is the severity of a transient notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows a dismissable transient notification.
type Notifier interface {
	Notify(level Level, msg string)
}

type nopNavigator struct{}

func (nopNavigator) Navigate(Route) {}

type nopNotifier struct{}

func (nopNotifier) Notify(Level, string) {}
