package cli

import (
	"context"
	"strings"

	"github.com/raine/storefront/internal/session"
)

const maxCommandWords = 3

// Command is a shell command. Name may span several words, e.g. "cart add".
type Command struct {
	Name        string
	Alias       string
	Args        string
	Description string
	// Route is the screen the command shows. Empty keeps the current route.
	Route session.Route
	// Guard must admit the current session before the command runs.
	Guard *session.Guard
	Run   func(ctx context.Context, args []string) error
	Quit  bool
}

func (c Command) Usage() string {
	if c.Args == "" {
		return c.Name
	}
	return c.Name + " " + c.Args
}

// buildCommands defines all shell commands.
// This is the single source of truth for help output and dispatch.
func (s *Shell) buildCommands() []Command {
	authenticated := &session.RequireAuthenticated
	privileged := &session.RequirePrivileged

	return []Command{
		{Name: "help", Alias: "?", Description: "Show this help", Run: s.cmdHelp},

		{Name: "login", Args: "[username] [password]", Description: "Log in", Route: session.RouteLogin, Run: s.cmdLogin},
		{Name: "register", Args: "username=... email=... password=... [password2=...] [first_name=...] [last_name=...]", Description: "Create an account and log in", Route: session.RouteRegister, Run: s.cmdRegister},
		{Name: "logout", Description: "Log out", Run: s.cmdLogout},
		{Name: "whoami", Description: "Show the current session", Run: s.cmdWhoami},

		{Name: "products", Args: "[search] [marca=...] [disponible=yes|no] [ordering=...] [page=N]", Description: "Browse the catalog", Route: session.RouteProducts, Run: s.cmdProducts},
		{Name: "product", Args: "<id>", Description: "Show a product", Route: session.RouteProductDetail, Run: s.cmdProduct},

		{Name: "cart", Description: "Show the cart", Route: session.RouteCart, Run: s.cmdCart},
		{Name: "cart add", Args: "<product id> [quantity]", Description: "Add a product to the cart", Route: session.RouteCart, Run: s.cmdCartAdd},
		{Name: "cart rm", Args: "<product id>", Description: "Remove a product from the cart", Route: session.RouteCart, Run: s.cmdCartRemove},
		{Name: "cart qty", Args: "<product id> <quantity>", Description: "Change the quantity of a product", Route: session.RouteCart, Run: s.cmdCartQuantity},
		{Name: "cart clear", Description: "Empty the cart", Route: session.RouteCart, Run: s.cmdCartClear},
		{Name: "checkout", Description: "Place an order with the cart contents", Route: session.RouteCart, Guard: authenticated, Run: s.cmdCheckout},

		{Name: "orders", Description: "List your orders", Route: session.RouteOrders, Guard: authenticated, Run: s.cmdOrders},
		{Name: "profile", Description: "Show your profile", Route: session.RouteProfile, Guard: authenticated, Run: s.cmdProfile},
		{Name: "profile set", Args: "field=value ...", Description: "Edit your profile", Route: session.RouteProfile, Guard: authenticated, Run: s.cmdProfileSet},
		{Name: "passwd", Args: "<old> <new> [confirm]", Description: "Change your password", Route: session.RouteChangePassword, Guard: authenticated, Run: s.cmdPasswd},
		{Name: "delete-account", Args: "[yes]", Description: "Delete your account", Route: session.RouteDeleteAccount, Guard: authenticated, Run: s.cmdDeleteAccount},

		{Name: "admin products", Args: "[search]", Description: "Manage products", Route: session.RouteAdminProducts, Guard: privileged, Run: s.cmdProducts},
		{Name: "admin product add", Args: "field=value ...", Description: "Create a product", Route: session.RouteAdminProducts, Guard: privileged, Run: s.cmdAdminProductAdd},
		{Name: "admin product edit", Args: "<id> field=value ...", Description: "Edit a product", Route: session.RouteAdminProducts, Guard: privileged, Run: s.cmdAdminProductEdit},
		{Name: "admin product rm", Args: "<id>", Description: "Delete a product", Route: session.RouteAdminProducts, Guard: privileged, Run: s.cmdAdminProductRemove},
		{Name: "admin config", Description: "Show the pricing configuration", Route: session.RouteAdminConfig, Guard: privileged, Run: s.cmdAdminConfig},
		{Name: "admin config set", Args: "field=value ...", Description: "Edit the pricing configuration", Route: session.RouteAdminConfig, Guard: privileged, Run: s.cmdAdminConfigSet},

		{Name: "quit", Alias: "exit", Description: "Leave the shell", Quit: true},
	}
}

func (s *Shell) cmdHelp(ctx context.Context, args []string) error {
	sess := s.sessions.Session()

	width := 0
	for _, cmd := range s.commands {
		width = max(width, len(cmd.Name))
	}

	s.screen.Heading("Commands")
	for _, cmd := range s.commands {
		if cmd.Guard == &session.RequirePrivileged && (sess == nil || !sess.IsPrivileged) {
			continue
		}
		line := "  " + cmd.Name + strings.Repeat(" ", width-len(cmd.Name)+2) + cmd.Description
		s.screen.Println(line)
		if cmd.Args != "" {
			s.screen.Muted("  " + strings.Repeat(" ", width+2) + cmd.Usage())
		}
	}
	return nil
}
