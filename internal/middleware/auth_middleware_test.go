package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airvoya/booking-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJWTService() *jwt.Service {
	return jwt.NewService("test-access-secret-key-123456789", time.Hour)
}

func setupAuthRouter(jwtService *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		userCtx, _ := GetUserContext(c)
		c.JSON(http.StatusOK, gin.H{"email": userCtx.Email})
	})

	router.GET("/optional", OptionalAuthMiddleware(jwtService), func(c *gin.Context) {
		if userCtx, ok := GetUserContext(c); ok {
			c.JSON(http.StatusOK, gin.H{"user": userCtx.UserID.String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": "guest"})
	})

	router.GET("/operator", AuthMiddleware(jwtService), RequireRole("operator", "admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return router
}

func get(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupAuthRouter(jwtService)

	token, err := jwtService.GenerateAccessToken(uuid.New(), "ops@airvoya.com", []string{"operator"})
	require.NoError(t, err)

	w := get(router, "/protected", token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops@airvoya.com")
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	router := setupAuthRouter(setupTestJWTService())

	w := get(router, "/protected", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	router := setupAuthRouter(setupTestJWTService())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	expired := jwt.NewService("test-access-secret-key-123456789", -time.Minute)
	router := setupAuthRouter(setupTestJWTService())

	token, err := expired.GenerateAccessToken(uuid.New(), "a@b.com", nil)
	require.NoError(t, err)

	w := get(router, "/protected", token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	router := setupAuthRouter(setupTestJWTService())

	w := get(router, "/protected", "not.a.valid.token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestOptionalAuthMiddleware_GuestPassesThrough(t *testing.T) {
	router := setupAuthRouter(setupTestJWTService())

	w := get(router, "/optional", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "guest")
}

func TestOptionalAuthMiddleware_ValidTokenAttachesUser(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupAuthRouter(jwtService)
	userID := uuid.New()

	token, err := jwtService.GenerateAccessToken(userID, "ana@example.com", nil)
	require.NoError(t, err)

	w := get(router, "/optional", token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestOptionalAuthMiddleware_BadTokenStillPassesThrough(t *testing.T) {
	router := setupAuthRouter(setupTestJWTService())

	w := get(router, "/optional", "garbage")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "guest")
}

func TestRequireRole_Allowed(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupAuthRouter(jwtService)

	token, err := jwtService.GenerateAccessToken(uuid.New(), "ops@airvoya.com", []string{"operator"})
	require.NoError(t, err)

	w := get(router, "/operator", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_Forbidden(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupAuthRouter(jwtService)

	token, err := jwtService.GenerateAccessToken(uuid.New(), "user@example.com", []string{"customer"})
	require.NoError(t, err)

	w := get(router, "/operator", token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_PERMISSIONS")
}
