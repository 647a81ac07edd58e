package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jafarshop/orderhook/internal/config"
	apperrors "github.com/jafarshop/orderhook/pkg/errors"
)

// AdminAuth guards the admin surface with a single bcrypt-hashed API
// key from config. A deployment without a configured hash has no admin
// surface at all.
func AdminAuth(cfg config.AdminConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APIKeyHash == "" {
			abortUnauthorized(c, &apperrors.ErrUnauthorized{Message: "admin access not configured"})
			return
		}

		apiKey := extractAPIKey(c.Request)
		if apiKey == "" {
			abortUnauthorized(c, &apperrors.ErrUnauthorized{Message: "unauthorized"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(cfg.APIKeyHash), []byte(apiKey)); err != nil {
			logger.Warn("Rejected admin request with invalid API key",
				zap.String("remote", ClientIdentifier(c.Request)),
			)
			abortUnauthorized(c, &apperrors.ErrUnauthorized{Message: "unauthorized"})
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err *apperrors.ErrUnauthorized) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
}

func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-Admin-Api-Key")); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
