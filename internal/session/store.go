// Package session owns the client's login state: the token store, the
// session derived from it, token refresh, the expiry watchdog and the route
// guards that read it.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/raine/storefront/internal/auth"
)

// Mirror is the durable copy of the token pair.
type Mirror interface {
	LoadTokens(ctx context.Context) (auth.TokenPair, bool, error)
	SaveTokens(ctx context.Context, pair auth.TokenPair) error
	DeleteTokens(ctx context.Context) error
}

// Store holds the current token pair and keeps its durable mirror in step.
// The mirror is written first; a failed mirror write leaves the in-memory
// pair untouched.
type Store struct {
	mirror Mirror

	mu      sync.RWMutex
	pair    auth.TokenPair
	present bool
}

// NewStore creates a store seeded from the mirror. A persisted pair missing
// either token is discarded and the store starts logged out.
func NewStore(ctx context.Context, mirror Mirror) *Store {
	s := &Store{mirror: mirror}

	pair, found, err := mirror.LoadTokens(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("could not load persisted tokens, starting logged out")
	case !found:
	case !pair.Valid():
		log.Warn().Msg("discarding incomplete persisted tokens")
		if err := mirror.DeleteTokens(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to delete incomplete persisted tokens")
		}
	default:
		s.pair = pair
		s.present = true
	}

	return s
}

// Get returns the current pair. ok is false when logged out.
func (s *Store) Get() (pair auth.TokenPair, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.present
}

// Set replaces the pair.
func (s *Store) Set(ctx context.Context, pair auth.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mirror.SaveTokens(ctx, pair); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	s.pair = pair
	s.present = true
	return nil
}

// SetAccess replaces the access token and keeps the refresh token.
func (s *Store) SetAccess(ctx context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.present {
		return ErrNoTokens
	}
	pair := auth.TokenPair{Access: access, Refresh: s.pair.Refresh}
	if err := s.mirror.SaveTokens(ctx, pair); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	s.pair = pair
	return nil
}

// Clear removes the pair from memory and from the mirror.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mirror.DeleteTokens(ctx); err != nil {
		return fmt.Errorf("delete persisted tokens: %w", err)
	}
	s.pair = auth.TokenPair{}
	s.present = false
	return nil
}
