// Package auth holds the credential types shared by the storefront client:
// the access/refresh token pair and the session decoded from an access token.
package auth

// TokenPair holds the tokens obtained from the token endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Valid returns true if both tokens are present. A pair missing either token
// is treated as logged out.
func (p TokenPair) Valid() bool {
	return p.Access != "" && p.Refresh != ""
}

// Credentials is the body of the token endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the body of the user registration endpoint.
type Registration struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Telefono  string `json:"telefono,omitempty"`
	Direccion string `json:"direccion,omitempty"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}
