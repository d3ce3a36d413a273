package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yanqian/meal-planner/internal/domain/auth"
)

const authClaimsKey = "auth_claims"

func setClaims(c *gin.Context, claims auth.Claims) {
	c.Set(authClaimsKey, claims)
}

func getClaims(c *gin.Context) (auth.Claims, bool) {
	value, ok := c.Get(authClaimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := value.(auth.Claims)
	return claims, ok
}

// customerID is uuid.Nil for anonymous callers.
func customerID(c *gin.Context) uuid.UUID {
	claims, ok := getClaims(c)
	if !ok {
		return uuid.Nil
	}
	return claims.CustomerID
}
