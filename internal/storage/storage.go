// Package storage persists the client's durable state: the token pair, the
// shopping cart and the installation id.
package storage

import (
	"context"

	"github.com/raine/storefront/internal/auth"
)

// Entry keys. Tokens are stored as two separate entries.
const (
	KeyAccessToken    = "access_token"
	KeyRefreshToken   = "refresh_token"
	KeyCart           = "cart"
	KeyInstallationID = "installation_id"
)

// Store is the durable backend behind the token store and the cart.
type Store interface {
	// LoadTokens returns the persisted token pair. found is false when neither
	// token is stored; a half-written pair is returned as is.
	LoadTokens(ctx context.Context) (pair auth.TokenPair, found bool, err error)
	SaveTokens(ctx context.Context, pair auth.TokenPair) error
	DeleteTokens(ctx context.Context) error

	// LoadCart returns the raw cart JSON, or nil if no cart has been saved.
	LoadCart(ctx context.Context) ([]byte, error)
	SaveCart(ctx context.Context, data []byte) error

	// InstallationID returns the persistent client id, creating it on first use.
	InstallationID(ctx context.Context) (string, error)

	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*RedisStore)(nil)
)
