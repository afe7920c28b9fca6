package middleware

import (
	"net/http"
	"strings"

	"github.com/airvoya/booking-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserContextKey is the key used to store user information in Gin context
const UserContextKey = "user"

// UserContext represents the authenticated user's information
type UserContext struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Roles  []string  `json:"roles"`
}

// AuthMiddleware creates a middleware that validates JWT tokens
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, errCode := authenticate(c, jwtService)
		if claims == nil {
			status := http.StatusUnauthorized
			c.JSON(status, gin.H{
				"error": "unauthorized",
				"code":  errCode,
			})
			c.Abort()
			return
		}

		c.Set(UserContextKey, UserContext{
			UserID: claims.UserID,
			Email:  claims.Email,
			Roles:  claims.Roles,
		})
		c.Next()
	}
}

// OptionalAuthMiddleware attaches a user context when a valid token is
// present but lets anonymous requests through. Bookings work for guests;
// authenticated bookings are linked to the account.
func OptionalAuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			if claims, _ := authenticate(c, jwtService); claims != nil {
				c.Set(UserContextKey, UserContext{
					UserID: claims.UserID,
					Email:  claims.Email,
					Roles:  claims.Roles,
				})
			}
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, jwtService *jwt.Service) (*jwt.Claims, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "MISSING_AUTH_HEADER"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return nil, "INVALID_AUTH_FORMAT"
	}

	claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(parts[1]))
	if err != nil {
		if jwtService.IsTokenExpired(parts[1]) {
			return nil, "TOKEN_EXPIRED"
		}
		return nil, "INVALID_TOKEN"
	}

	return claims, ""
}

// RequireRole creates a middleware that checks if user has required role
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
				"code":  "MISSING_USER_CONTEXT",
			})
			c.Abort()
			return
		}

		for _, required := range roles {
			for _, role := range userCtx.Roles {
				if role == required {
					c.Next()
					return
				}
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error": "forbidden",
			"code":  "INSUFFICIENT_PERMISSIONS",
		})
		c.Abort()
	}
}

// GetUserContext retrieves the user context from Gin context
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}

	userCtx, ok := value.(UserContext)
	if !ok {
		return UserContext{}, false
	}

	return userCtx, true
}
