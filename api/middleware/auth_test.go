package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/rfidscan/internal/models"
	"example.com/rfidscan/internal/scanlog"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type stubKeys map[string]models.APIKey

func (s stubKeys) GetAPIKeyByKey(_ context.Context, key string) (*models.APIKey, error) {
	k, ok := s[key]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &k, nil
}

func (s stubKeys) UpdateAPIKey(context.Context, *models.APIKey) error { return nil }

func newAuthRouter(level models.AuthorizationLevel) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	past := time.Now().Add(-time.Hour)
	keys := stubKeys{
		"writer":  {Key: "writer", Account: "alice", AuthorizationLevel: models.WriterAuthLevel},
		"viewer":  {Key: "viewer", Account: "alice", AuthorizationLevel: models.ViewerAuthLevel},
		"expired": {Key: "expired", Account: "alice", AuthorizationLevel: models.SudoAuthLevel, ExpiresAt: &past},
	}

	r := gin.New()
	r.GET("/", APIKeyAuth(keys, log, level), func(c *gin.Context) {
		caller, _ := CallerFromContext(c)
		c.String(http.StatusOK, string(caller))
	})
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	r := newAuthRouter(models.WriterAuthLevel)

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token writer", http.StatusUnauthorized},
		{"Bearer unknown", http.StatusUnauthorized},
		{"Bearer expired", http.StatusUnauthorized},
		{"Bearer viewer", http.StatusForbidden},
		{"Bearer writer", http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, tc.header)
		if tc.status == http.StatusOK {
			assert.Equal(t, "alice", w.Body.String())
		}
	}
}

func TestCallerFromContext_Absent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := CallerFromContext(c)
	assert.False(t, ok)

	c.Set(AccountContextKey, scanlog.Account("bob"))
	caller, ok := CallerFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, scanlog.Account("bob"), caller)
}
