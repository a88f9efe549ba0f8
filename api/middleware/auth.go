package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"example.com/rfidscan/internal/models"
	"example.com/rfidscan/internal/scanlog"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Context keys
const (
	APIKeyContextKey  = "api_key"
	AccountContextKey = "account"
)

// KeyStore looks up API keys
type KeyStore interface {
	GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error)
	UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error
}

// APIKeyAuth validates the bearer token and records the account it is bound
// to as the caller of the request
func APIKeyAuth(keys KeyStore, log *logrus.Logger, requiredLevel models.AuthorizationLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid Authorization header format. Expected: 'Bearer {token}'")
			return
		}

		apiKey, err := keys.GetAPIKeyByKey(c.Request.Context(), parts[1])
		if err != nil {
			log.WithError(err).Warn("Invalid API key")
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
			return
		}

		if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
			log.WithField("key_name", apiKey.Name).Warn("Expired API key")
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "API key expired")
			return
		}

		if apiKey.AuthorizationLevel < requiredLevel {
			log.WithFields(logrus.Fields{
				"required": requiredLevel,
				"provided": apiKey.AuthorizationLevel,
				"account":  apiKey.Account,
			}).Warn("Insufficient permissions")
			abort(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}

		now := time.Now()
		apiKey.LastUsedAt = &now
		go func(k models.APIKey) {
			if err := keys.UpdateAPIKey(context.Background(), &k); err != nil {
				log.WithError(err).Debug("Failed to record API key use")
			}
		}(*apiKey)

		c.Set(APIKeyContextKey, apiKey)
		c.Set(AccountContextKey, scanlog.Account(apiKey.Account))

		c.Next()
	}
}

// CallerFromContext returns the account authenticated for the request
func CallerFromContext(c *gin.Context) (scanlog.Account, bool) {
	v, ok := c.Get(AccountContextKey)
	if !ok {
		return "", false
	}
	account, ok := v.(scanlog.Account)
	return account, ok
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"message": message,
		"code":    code,
	})
}
