package cli

// =============================================================================
// General messages
// =============================================================================

const (
	MsgUnknownCommand = "Unknown command %q. Type `help` for a list of commands."
	MsgUsage          = "Usage: %s"
	MsgUnexpectedErr  = "Something went wrong. Run the command again or restart the shell."
	MsgBye            = "Bye!"
	MsgWelcome        = "Storefront shell. Type `help` for a list of commands."
)

// =============================================================================
// Account messages
// =============================================================================

const (
	MsgNotLoggedIn        = "Not logged in."
	MsgAlreadyLoggedIn    = "Already logged in as user %s. Log out first."
	MsgWhoami             = "User %s%s, session expires %s"
	MsgSessionChanged     = "The session changed while the command was running. Try again."
	MsgPasswordsDontMatch = "The new passwords do not match"
	MsgPasswordChanged    = "Password changed"
	MsgProfileUpdated     = "Profile updated"
	MsgAccountDeleted     = "Account deleted"
	MsgConfirmDelete      = "This permanently deletes your account. Run `delete-account yes` to confirm."
)

// =============================================================================
// Catalog and cart messages
// =============================================================================

const (
	MsgNoProducts      = "No products found."
	MsgUnavailable     = "%s is not available right now"
	MsgAddedToCart     = "%s added to the cart"
	MsgRemovedFromCart = "Product removed from the cart"
	MsgQuantityUpdated = "Quantity updated"
	MsgCartCleared     = "Cart emptied"
	MsgCartEmpty       = "Your cart is empty."
	MsgOrderPlaced     = "Order #%d placed"
	MsgNoOrders        = "You have no orders yet."
)

// =============================================================================
// Admin messages
// =============================================================================

const (
	MsgProductCreated  = "Product created"
	MsgProductUpdated  = "Product updated"
	MsgProductDeleted  = "Product deleted"
	MsgConfigSaved     = "Configuration saved"
	MsgConfigNotFound  = "No configuration found. Use `admin config set` to create one."
	MsgUnknownField    = "Unknown field %q. Allowed: %s"
	MsgInvalidArgument = "Invalid value for %s: %q"
)
