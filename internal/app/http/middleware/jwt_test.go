package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ip-vault-api/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newTestRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userId": c.GetString("user_id"),
			"email":  c.GetString("email"),
			"role":   c.GetString("role"),
		})
	})
	r.GET("/admin", AuthMiddleware(), RequireRole(role), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func get(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	config.ACCESS_TOKEN_SECRET = "test-secret"
	r := newTestRouter("admin")

	token := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "user-1",
		"email":   "ada@example.com",
		"role":    "user",
		"exp":     time.Now().Add(time.Minute).Unix(),
	})

	w := get(r, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "user-1")
	assert.Contains(t, w.Body.String(), "ada@example.com")
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	config.ACCESS_TOKEN_SECRET = "test-secret"
	r := newTestRouter("admin")

	w := get(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/me", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	wrongKey := signToken(t, "other-secret", jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
	w = get(r, "/me", "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	w = get(r, "/me", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	config.ACCESS_TOKEN_SECRET = "test-secret"
	r := newTestRouter("admin")

	userToken := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "user-1",
		"role":    "user",
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
	w := get(r, "/admin", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "admin-1",
		"role":    "admin",
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
	w = get(r, "/admin", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}
