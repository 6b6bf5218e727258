package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusfind/internal/pkg/config"
	"campusfind/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubChecker map[string]bool

func (s stubChecker) Approval(ctx context.Context, userID string) (string, bool, error) {
	approved, ok := s[userID]
	if !ok {
		return "", false, errors.New("unknown user")
	}
	return "Name " + userID, approved, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	config.GlobalConfig.JWT.Secret = "test-secret-key-with-at-least-32-chars"
	tok, _, err := utils.GenerateToken(userID, role)
	require.NoError(t, err)
	return tok
}

func serve(r *gin.Engine, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAndApproval(t *testing.T) {
	r := gin.New()
	checker := stubChecker{"ok": true, "pending": false}
	r.GET("/approved", AuthMiddleware(), ApprovedMiddleware(checker), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserName(c))
	})
	r.GET("/admin", AuthMiddleware(), AdminMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "admin")
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/approved", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/approved", "garbage").Code)

	w := serve(r, "/approved", token(t, "ok", utils.RoleUser))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Name ok", w.Body.String())

	assert.Equal(t, http.StatusForbidden, serve(r, "/approved", token(t, "pending", utils.RoleUser)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/approved", token(t, "ghost", utils.RoleUser)).Code)

	w = serve(r, "/approved", token(t, "admin", utils.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Admin", w.Body.String())

	assert.Equal(t, http.StatusForbidden, serve(r, "/admin", token(t, "ok", utils.RoleUser)).Code)
	assert.Equal(t, http.StatusOK, serve(r, "/admin", token(t, "admin", utils.RoleAdmin)).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimitMiddleware(NewIPRateLimiter(rate.Limit(0.001), 2)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, "/", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "/", "").Code)
}

func TestLoggerMiddleware_RequestID(t *testing.T) {
	r := gin.New()
	r.Use(LoggerMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	w := serve(r, "/", "")
	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(r, "/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}
