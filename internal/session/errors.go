package session

import (
	"errors"
	"fmt"
)

var (
	// ErrRefresh matches every RefreshError with errors.Is.
	ErrRefresh = errors.New("refresh failed")

	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrNoTokens       = errors.New("no tokens stored")
	ErrSessionChanged = errors.New("session changed during refresh")
)

// RefreshError is returned when the access token could not be renewed.
// Except for ErrSessionChanged, the session has been logged out.
type RefreshError struct {
	Err error
	// Notified is set when the user has already been told the session expired.
	Notified bool
}

// Notified reports whether err is a RefreshError the user was already told
// about.
func Notified(err error) bool {
	var rerr *RefreshError
	return errors.As(err, &rerr) && rerr.Notified
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh access token: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) Is(target error) bool { return target == ErrRefresh }
