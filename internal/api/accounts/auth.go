// Package accounts implements the HTTP handlers for signup, login, token
// refresh, profile management, and API key management. The signup, login, and
// refresh endpoints are the only application routes mounted outside the
// authentication middleware.
package accounts

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/auth"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/repositories"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/validation"
)

// AuthHandlers handles signup, login, and token refresh endpoints
type AuthHandlers struct {
	cfg      *config.Config
	db       *sql.DB
	userRepo *repositories.UserRepository
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cfg *config.Config, db *sql.DB) *AuthHandlers {
	return &AuthHandlers{
		cfg:      cfg,
		db:       db,
		userRepo: repositories.NewUserRepository(db),
	}
}

// SignupRequest represents the request to register a new account
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents the request to exchange credentials for a token pair
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to exchange a refresh token for a new token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse represents an issued access/refresh token pair
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // Access token lifetime in seconds
}

// UserResponse is the public representation of a user account
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// issueTokens generates an access/refresh pair for the user
func (h *AuthHandlers) issueTokens(user *models.User) (*TokenResponse, error) {
	access, err := auth.GenerateAccessToken(user.ID, user.Email, h.cfg.Auth.AccessTokenExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(user.ID, user.Email, h.cfg.Auth.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(h.cfg.Auth.AccessTokenExpiry.Seconds()),
	}, nil
}

// @Summary      Register a new account
// @Description  Creates a user account with the default user role. Usernames are 3-50 characters of letters, digits, and underscores; passwords must be at least 8 characters.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body  SignupRequest  true  "Account details"
// @Success      201  {object}  UserResponse
// @Failure      400  {object}  map[string]interface{}  "Validation failure or duplicate username/email"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/signup [post]
// SignupHandler registers a new user account
// POST /api/v1/auth/signup
func (h *AuthHandlers) SignupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if err := validation.ValidateUsername(req.Username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validation.ValidateEmail(req.Email); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validation.ValidatePassword(req.Password); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()

		existing, err := h.userRepo.GetUserByEmail(ctx, req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			return
		}

		existing, err = h.userRepo.GetUserByUsername(ctx, req.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check username"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		user := &models.User{
			Email:        req.Email,
			Username:     req.Username,
			PasswordHash: hash,
			Role:         models.RoleUser,
			IsActive:     true,
		}
		if err := h.userRepo.CreateUser(ctx, user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		slog.Info("user registered", "user_id", user.ID, "username", user.Username)
		c.JSON(http.StatusCreated, userResponse(user))
	}
}

// @Summary      Log in
// @Description  Exchanges email and password for a JWT access/refresh token pair. A deactivated account is rejected with 403 even when the credentials are correct.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body  LoginRequest  true  "Credentials"
// @Success      200  {object}  TokenResponse
// @Failure      401  {object}  map[string]interface{}  "Unknown email or wrong password"
// @Failure      403  {object}  map[string]interface{}  "Account is disabled"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/login [post]
// LoginHandler authenticates a user and issues a token pair
// POST /api/v1/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
			return
		}
		if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
			return
		}

		tokens, err := h.issueTokens(user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
			return
		}

		slog.Info("user logged in", "user_id", user.ID)
		c.JSON(http.StatusOK, tokens)
	}
}

// @Summary      Refresh tokens
// @Description  Exchanges a valid refresh token for a new access/refresh pair. Access tokens are rejected here; only a token carrying the refresh kind is accepted.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body  RefreshRequest  true  "Refresh token"
// @Success      200  {object}  TokenResponse
// @Failure      401  {object}  map[string]interface{}  "Invalid, expired, or wrong-kind token"
// @Failure      403  {object}  map[string]interface{}  "Account is disabled"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/refresh [post]
// RefreshHandler rotates a refresh token into a new token pair
// POST /api/v1/auth/refresh
func (h *AuthHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		claims, err := auth.ValidateTokenKind(req.RefreshToken, auth.TokenKindRefresh)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}

		// Re-check the account on every rotation so a deactivated user cannot
		// keep a session alive past the current access token.
		user, err := h.userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
			return
		}

		tokens, err := h.issueTokens(user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
			return
		}

		c.JSON(http.StatusOK, tokens)
	}
}
