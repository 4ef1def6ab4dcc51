package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService validates bearer tokens issued by the identity service.
// Issuing tokens is not part of this service.
type JWTService interface {
	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims containing user information if the token is valid,
	// or an error if validation fails (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Roles recognised in the role claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims is the caller identity carried by a validated token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Username addresses the user's live connections.
	Username string `json:"username,omitempty"`

	// Role is the user's application role. Tokens without one are
	// treated as RoleUser.
	Role string `json:"role,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
