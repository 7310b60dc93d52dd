package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"asset-reservation-backend/internal/reservation"
)

const principalKey = "principal"

// RequirePrincipal reads the caller identity from header. Authentication
// happens upstream; requests arriving without an identity are rejected.
func RequirePrincipal(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
			return
		}
		c.Set(principalKey, reservation.Principal(id))
		c.Next()
	}
}

// Principal returns the caller set by RequirePrincipal, or "" if none.
func Principal(c *gin.Context) reservation.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(reservation.Principal); ok {
			return p
		}
	}
	return ""
}
