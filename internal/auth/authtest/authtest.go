// Package authtest mints access tokens for tests.
package authtest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const signingKey = "storefront-test-key"

// Token returns a signed token carrying the given claims.
func Token(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// Access returns an access token for userID expiring at exp.
func Access(t testing.TB, userID int, staff bool, exp time.Time) string {
	t.Helper()
	return Token(t, jwt.MapClaims{
		"token_type": "access",
		"user_id":    userID,
		"is_staff":   staff,
		"exp":        exp.Unix(),
		"iat":        exp.Add(-5 * time.Minute).Unix(),
	})
}
