package auth

import "github.com/golang-jwt/jwt/v5"

// Actor is the authenticated caller of an API operation.
type Actor struct {
	ID         string `json:"id"`         // Directory ID of the caller (hex ObjectID)
	Name       string `json:"name"`       // Display name snapshot from the token
	Email      string `json:"email"`      // Address used for OTP delivery
	Role       string `json:"role"`       // Role used for RBAC checks
	Department string `json:"department"` // Department snapshot, copied onto approvals
}

// JWTClaims is the token payload issued by the external identity service.
type JWTClaims struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	jwt.RegisteredClaims
}

func (c *JWTClaims) Actor() Actor {
	return Actor{
		ID:         c.UserID,
		Name:       c.Name,
		Email:      c.Email,
		Role:       c.Role,
		Department: c.Department,
	}
}
