package models

import "github.com/golang-jwt/jwt/v5"

// Roles carried in the token. A user is a role-tagged identity; the account
// directory owning the records lives outside these services.
const (
	RolePassenger = "PASSENGER"
	RoleDriver    = "DRIVER"
)

type Claims struct {
	UserID string `json:"sub"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
