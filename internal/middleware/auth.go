// Package middleware provides Gin HTTP middleware for authentication,
// authorization, rate limiting, security headers, and request metrics.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB work.
// Auth populates the user identity; handlers read it from the request context.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/auth"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/repositories"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/telemetry"
)

// Context keys set by AuthMiddleware
const (
	ContextUser       = "user"
	ContextUserID     = "user_id"
	ContextAuthMethod = "auth_method"
	ContextAPIKeyID   = "api_key_id"
)

// UserStore is the subset of UserRepository the auth middleware needs
type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// APIKeyStore is the subset of APIKeyRepository the auth middleware needs
type APIKeyStore interface {
	GetAPIKeyBySecret(ctx context.Context, secret string) (*models.APIKey, error)
	UpdateLastUsed(ctx context.Context, keyID string) error
}

// AuthMiddleware validates authentication (JWT or API key).
//
// The bearer token is tried as a JWT first because JWT verification is entirely
// stateless — it requires only a cryptographic check against the signing secret
// with no database round-trip. API key validation always requires a DB query,
// so JWT is the lower-latency path for interactive sessions. Only an access
// token authenticates a request; refresh tokens are accepted solely by the
// token refresh endpoint.
//
// Failure modes are deliberately distinct: unknown or malformed credentials
// yield 401, while valid credentials belonging to a deactivated account yield
// 403 so callers can tell "retry with the right secret" apart from "contact an
// administrator".
func AuthMiddleware(userRepo UserStore, apiKeyRepo APIKeyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		// Try JWT first.
		if claims, err := auth.ValidateTokenKind(token, auth.TokenKindAccess); err == nil {
			user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to load user",
				})
				return
			}

			if user == nil {
				telemetry.AuthFailuresTotal.WithLabelValues("jwt").Inc()
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "User not found",
				})
				return
			}

			if !user.IsActive {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "Account is disabled",
				})
				return
			}

			c.Set(ContextUser, user)
			c.Set(ContextUserID, user.ID)
			c.Set(ContextAuthMethod, "jwt")
			c.Next()
			return
		}

		// Fall back to API key. The full secret is matched exactly against the
		// unique index on the secret column, so the lookup is a single indexed
		// query regardless of how many keys exist.
		apiKey, err := apiKeyRepo.GetAPIKeyBySecret(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed",
			})
			return
		}

		if apiKey == nil || !apiKey.IsActive {
			telemetry.AuthFailuresTotal.WithLabelValues("api_key").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), apiKey.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}

		if user == nil {
			telemetry.AuthFailuresTotal.WithLabelValues("api_key").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Account is disabled",
			})
			return
		}

		// Update the last-used timestamp asynchronously. Last-used tracking is
		// best-effort — a failed update is not a correctness problem, and a
		// synchronous write would add DB latency to every key-authenticated
		// request. The timeout prevents leaked goroutines if the DB stalls.
		keyID := apiKey.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiKeyRepo.UpdateLastUsed(ctx, keyID)
		}()

		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)
		c.Set(ContextAuthMethod, "api_key")
		c.Set(ContextAPIKeyID, apiKey.ID)
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the authenticated user holds the admin
// role. Must be registered after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin privileges required",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user from the request context, or nil
// if the request is unauthenticated
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Compile-time checks that the real repositories satisfy the store interfaces
var (
	_ UserStore   = (*repositories.UserRepository)(nil)
	_ APIKeyStore = (*repositories.APIKeyRepository)(nil)
)
