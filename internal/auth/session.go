package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrDecode matches every DecodeError with errors.Is.
	ErrDecode = errors.New("cannot decode access token")

	errEmptyToken    = errors.New("token is empty")
	errMissingExpiry = errors.New("token has no exp claim")
)

// DecodeError is returned when an access token cannot be turned into a
// Session. Callers treat it as "no session".
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode access token: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Claims are the claims the API embeds in its access tokens.
type Claims struct {
	UserID      claimID `json:"user_id"`
	TokenType   string  `json:"token_type,omitempty"`
	IsStaff     bool    `json:"is_staff"`
	IsSuperuser bool    `json:"is_superuser"`
	jwt.RegisteredClaims
}

// claimID accepts both numeric and string user ids.
type claimID string

func (c *claimID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = claimID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	*c = claimID(n.String())
	return nil
}

// Session is the identity view derived from an access token. It is never
// mutated; a new Session is derived whenever the access token changes.
type Session struct {
	Subject      string
	UserID       string
	TokenType    string
	ExpiresAt    time.Time
	IsPrivileged bool
	IsSuperuser  bool
}

// ExpiresIn returns the time left until the token expires. Zero if the token
// carries no expiry.
func (s *Session) ExpiresIn(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// IsExpired returns true if the token has an expiry in the past.
func (s *Session) IsExpired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return now.After(s.ExpiresAt)
}

// Derive decodes an access token into a Session. The signature is not
// verified; the client holds no signing key and the API remains authoritative.
// A missing is_staff claim yields a non-privileged session.
func Derive(access string) (*Session, error) {
	claims, err := parseClaims(access)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Subject:      claims.Subject,
		UserID:       string(claims.UserID),
		TokenType:    claims.TokenType,
		IsPrivileged: claims.IsStaff,
		IsSuperuser:  claims.IsSuperuser,
	}
	if s.Subject == "" {
		s.Subject = s.UserID
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// ExpiresAt decodes only the expiry of an access token. A token without an
// exp claim is a decode error.
func ExpiresAt(access string) (time.Time, error) {
	claims, err := parseClaims(access)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, &DecodeError{Err: errMissingExpiry}
	}
	return claims.ExpiresAt.Time, nil
}

func parseClaims(access string) (*Claims, error) {
	if access == "" {
		return nil, &DecodeError{Err: errEmptyToken}
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return claims, nil
}
