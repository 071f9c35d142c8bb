package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the payload of a session token: the subject id, the role
// names held at issue time, and the registered expiry.
type Claims struct {
	Roles []string `json:"role"`
	jwt.RegisteredClaims
}

// TokenData is the login result handed back to the caller.
type TokenData struct {
	Token     string `json:"token"`
	SubjectID string `json:"id"`
}

// Credentials carries what the login flow needs from storage: the account
// id, the stored digest, and the role names for the token claims.
type Credentials struct {
	ID     int64
	Digest string
	Roles  []string
}
