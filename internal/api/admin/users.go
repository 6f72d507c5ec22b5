// Package admin implements the administrative HTTP handlers. These routes are
// mounted behind both the authentication middleware and the admin role gate,
// and operate across all tenants.
package admin

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/repositories"
)

// UserHandlers handles administrative user management endpoints
type UserHandlers struct {
	cfg      *config.Config
	db       *sql.DB
	userRepo *repositories.UserRepository
	appRepo  *repositories.AppRepository
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(cfg *config.Config, db *sql.DB) *UserHandlers {
	return &UserHandlers{
		cfg:      cfg,
		db:       db,
		userRepo: repositories.NewUserRepository(db),
		appRepo:  repositories.NewAppRepository(db),
	}
}

// UpdateUserRequest represents an administrative update to an account.
// Omitted fields are left unchanged.
type UpdateUserRequest struct {
	IsActive *bool   `json:"is_active"`
	Role     *string `json:"role"`
}

// AdminUserResponse is the administrative representation of a user account
type AdminUserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func adminUserResponse(u *models.User) AdminUserResponse {
	return AdminUserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// @Summary      List all users
// @Description  Lists every account on the platform, newest first.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "users: list of accounts"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users [get]
// ListUsersHandler lists every account on the platform
// GET /api/v1/admin/users
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.userRepo.ListUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
			return
		}

		resp := make([]AdminUserResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, adminUserResponse(u))
		}
		c.JSON(http.StatusOK, gin.H{"users": resp})
	}
}

// @Summary      Update user
// @Description  Activates or deactivates an account, or changes its role. An admin cannot deactivate or demote their own account.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "User ID"
// @Param        request  body  UpdateUserRequest  true  "Fields to change"
// @Success      200  {object}  AdminUserResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid role or self-modification"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users/{id} [patch]
// UpdateUserHandler applies an administrative update to an account
// PATCH /api/v1/admin/users/:id
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Role != nil && *req.Role != models.RoleUser && *req.Role != models.RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}

		ctx := c.Request.Context()
		targetID := c.Param("id")

		// Locking yourself out of the admin panel is not a recoverable
		// mistake, so self-deactivation and self-demotion are refused.
		if callerID := c.GetString("user_id"); callerID == targetID {
			if (req.IsActive != nil && !*req.IsActive) || (req.Role != nil && *req.Role != models.RoleAdmin) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate or demote your own account"})
				return
			}
		}

		user, err := h.userRepo.GetUserByID(ctx, targetID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if req.IsActive != nil && *req.IsActive != user.IsActive {
			if err := h.userRepo.SetUserActive(ctx, user.ID, *req.IsActive); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
				return
			}
			user.IsActive = *req.IsActive
		}
		if req.Role != nil && *req.Role != user.Role {
			if err := h.userRepo.SetUserRole(ctx, user.ID, *req.Role); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
				return
			}
			user.Role = *req.Role
		}

		slog.Info("admin updated user", "admin_id", c.GetString("user_id"), "user_id", user.ID)
		c.JSON(http.StatusOK, adminUserResponse(user))
	}
}

// @Summary      Delete user
// @Description  Permanently deletes an account and everything it owns. An admin cannot delete their own account.
// @Tags         Admin
// @Security     Bearer
// @Param        id  path  string  true  "User ID"
// @Success      204  "User deleted"
// @Failure      400  {object}  map[string]interface{}  "Self-deletion"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users/{id} [delete]
// DeleteUserHandler permanently deletes an account
// DELETE /api/v1/admin/users/:id
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		targetID := c.Param("id")

		if c.GetString("user_id") == targetID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
			return
		}

		user, err := h.userRepo.GetUserByID(ctx, targetID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if err := h.userRepo.DeleteUser(ctx, user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}

		slog.Info("admin deleted user", "admin_id", c.GetString("user_id"), "user_id", user.ID)
		c.Status(http.StatusNoContent)
	}
}

// @Summary      List all applications
// @Description  Lists every application on the platform across all tenants.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "apps: list of applications with owner IDs"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/apps [get]
// ListAllAppsHandler lists every application across all tenants
// GET /api/v1/admin/apps
func (h *UserHandlers) ListAllAppsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		apps, err := h.appRepo.ListAllApps(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list apps"})
			return
		}

		resp := make([]gin.H, 0, len(apps))
		for _, app := range apps {
			resp = append(resp, gin.H{
				"id":       app.ID,
				"owner_id": app.OwnerID,
				"name":     app.Name,
				"status":   app.Status,
				"url":      app.URL,
			})
		}
		c.JSON(http.StatusOK, gin.H{"apps": resp})
	}
}
