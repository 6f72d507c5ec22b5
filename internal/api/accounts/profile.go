// profile.go implements the endpoints a user calls against their own account.
package accounts

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/repositories"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/middleware"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/validation"
)

// ProfileHandlers handles the authenticated user's own account endpoints
type ProfileHandlers struct {
	cfg      *config.Config
	db       *sql.DB
	userRepo *repositories.UserRepository
}

// NewProfileHandlers creates a new ProfileHandlers instance
func NewProfileHandlers(cfg *config.Config, db *sql.DB) *ProfileHandlers {
	return &ProfileHandlers{
		cfg:      cfg,
		db:       db,
		userRepo: repositories.NewUserRepository(db),
	}
}

// UpdateProfileRequest represents a partial update to the caller's account.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// @Summary      Get current user
// @Description  Returns the profile of the authenticated account.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/me [get]
// GetMeHandler returns the authenticated user's profile
// GET /api/v1/auth/me
func (h *ProfileHandlers) GetMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}
		c.JSON(http.StatusOK, userResponse(user))
	}
}

// @Summary      Update current user
// @Description  Updates the caller's username and/or email. Both are checked for uniqueness against other accounts.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  UpdateProfileRequest  true  "Fields to change"
// @Success      200  {object}  UserResponse
// @Failure      400  {object}  map[string]interface{}  "Validation failure or duplicate username/email"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/me [patch]
// UpdateMeHandler applies a partial update to the authenticated user's profile
// PATCH /api/v1/users/me
func (h *ProfileHandlers) UpdateMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		ctx := c.Request.Context()

		if req.Username != nil && *req.Username != user.Username {
			if err := validation.ValidateUsername(*req.Username); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			other, err := h.userRepo.GetUserByUsername(ctx, *req.Username)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check username"})
				return
			}
			if other != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
				return
			}
			user.Username = *req.Username
		}

		if req.Email != nil && *req.Email != user.Email {
			if err := validation.ValidateEmail(*req.Email); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			other, err := h.userRepo.GetUserByEmail(ctx, *req.Email)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
				return
			}
			if other != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
				return
			}
			user.Email = *req.Email
		}

		if err := h.userRepo.UpdateUser(ctx, user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}

		c.JSON(http.StatusOK, userResponse(user))
	}
}

// @Summary      Delete current user
// @Description  Deletes the caller's account. Apps, deployments, functions, API keys, and logs cascade.
// @Tags         Users
// @Security     Bearer
// @Success      204  "Account deleted"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/me [delete]
// DeleteMeHandler deletes the authenticated user's account
// DELETE /api/v1/users/me
func (h *ProfileHandlers) DeleteMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		if err := h.userRepo.DeleteUser(c.Request.Context(), user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}

		slog.Info("user deleted own account", "user_id", user.ID)
		c.Status(http.StatusNoContent)
	}
}
