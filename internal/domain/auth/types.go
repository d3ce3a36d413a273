package auth

import (
	"time"

	"github.com/google/uuid"
)

// Config drives token verification.
type Config struct {
	Enabled  bool
	Secret   string
	TokenTTL time.Duration
}

// Claims are extracted from the JWT token.
type Claims struct {
	CustomerID uuid.UUID
	TokenType  string
	ExpiresAt  time.Time
}
