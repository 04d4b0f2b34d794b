package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUID is the gin context key holding the authenticated user's UID.
	ContextKeyUID = "authUID"
)

// Middleware extracts and verifies the bearer token. On the first
// successful verification of an identity the provisioner creates the
// user (the call is idempotent, so it runs on every request).
// Requests without a token pass through unauthenticated.
func Middleware(v Verifier, prov Provisioner, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		profile, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}

		if prov != nil {
			if err := prov.Provision(c.Request.Context(), *profile); err != nil {
				logger.Error("user provisioning failed", "uid", profile.UID, "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "provisioning_error",
					"message": "Failed to provision user",
				})
				return
			}
		}

		c.Set(ContextKeyUID, profile.UID)
		c.Next()
	}
}

// RequireAuth rejects requests without a verified identity.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Bearer token required.",
			})
			return
		}
		c.Next()
	}
}

// UID returns the authenticated user's UID, or "" if unauthenticated.
func UID(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyUID); ok {
		if uid, ok := v.(string); ok {
			return uid
		}
	}
	return ""
}

func bearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(header)
}
