// Package apps implements the HTTP handlers for application management,
// deployments, and runtime logs. Every route is owner-scoped: an app that
// exists but belongs to another user is reported as 404, never 403, so the
// API does not confirm the existence of other tenants' resources.
package apps

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/repositories"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/jobs"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/validation"
)

// AppHandlers handles application CRUD and lifecycle endpoints
type AppHandlers struct {
	cfg     *config.Config
	db      *sql.DB
	appRepo *repositories.AppRepository
	logRepo *repositories.LogRepository
}

// NewAppHandlers creates a new AppHandlers instance
func NewAppHandlers(cfg *config.Config, db *sql.DB) *AppHandlers {
	return &AppHandlers{
		cfg:     cfg,
		db:      db,
		appRepo: repositories.NewAppRepository(db),
		logRepo: repositories.NewLogRepository(sqlx.NewDb(db, "postgres")),
	}
}

// CreateAppRequest represents the request to create an application
type CreateAppRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	SourceType  string            `json:"source_type" binding:"required"`
	SourceRef   string            `json:"source_ref" binding:"required"`
	EnvVars     map[string]string `json:"env_vars"`
}

// UpdateAppRequest represents a partial update to an application.
// Omitted fields are left unchanged.
type UpdateAppRequest struct {
	Description *string            `json:"description"`
	SourceRef   *string            `json:"source_ref"`
	EnvVars     *map[string]string `json:"env_vars"`
}

// AppResponse is the public representation of an application
type AppResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	SourceType  string            `json:"source_type"`
	SourceRef   string            `json:"source_ref"`
	Status      string            `json:"status"`
	URL         *string           `json:"url"`
	EnvVars     map[string]string `json:"env_vars"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func appResponse(a *models.App) AppResponse {
	return AppResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		SourceType:  a.SourceType,
		SourceRef:   a.SourceRef,
		Status:      a.Status,
		URL:         a.URL,
		EnvVars:     a.EnvVars,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// ownedApp loads an app and verifies it belongs to userID. Writes the error
// response and returns nil when the app is missing or foreign.
func (h *AppHandlers) ownedApp(c *gin.Context, userID string) *models.App {
	app, err := h.appRepo.GetAppByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up app"})
		return nil
	}
	if app == nil || app.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "App not found"})
		return nil
	}
	return app
}

// @Summary      Create application
// @Description  Registers a new application. Names are lowercased, must be unique per user, and each account is capped at a configurable number of apps.
// @Tags         Apps
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  CreateAppRequest  true  "Application details"
// @Success      201  {object}  AppResponse
// @Failure      400  {object}  map[string]interface{}  "Validation failure, duplicate name, or app quota reached"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apps [post]
// CreateAppHandler registers a new application
// POST /api/v1/apps
func (h *AppHandlers) CreateAppHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var req CreateAppRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		name, err := validation.NormalizeResourceName(req.Name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !models.ValidSourceType(req.SourceType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid source type"})
			return
		}

		ctx := c.Request.Context()

		count, err := h.appRepo.CountAppsByOwner(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check app quota"})
			return
		}
		if count >= int64(h.cfg.Deployment.MaxAppsPerUser) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Maximum number of apps reached"})
			return
		}

		existing, err := h.appRepo.GetAppByOwnerAndName(ctx, userID, name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check app name"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "An app with this name already exists"})
			return
		}

		// The app ID is generated here so the public URL, which embeds the first
		// eight characters of the ID, can be stored with the insert.
		app := &models.App{
			ID:          uuid.New().String(),
			OwnerID:     userID,
			Name:        name,
			Description: req.Description,
			SourceType:  req.SourceType,
			SourceRef:   req.SourceRef,
			EnvVars:     req.EnvVars,
		}
		url := jobs.AppURL(name, app.ID, h.cfg.Deployment.BaseDomain)
		app.URL = &url

		if err := h.appRepo.CreateApp(ctx, app); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create app"})
			return
		}

		if err := h.logRepo.InsertLogEntry(ctx, &models.LogEntry{
			AppID:   app.ID,
			Level:   "info",
			Message: "Application created",
		}); err != nil {
			slog.Warn("failed to record app creation log", "app_id", app.ID, "error", err)
		}

		slog.Info("app created", "user_id", userID, "app_id", app.ID, "name", name)
		c.JSON(http.StatusCreated, appResponse(app))
	}
}

// @Summary      List applications
// @Description  Lists the authenticated user's applications.
// @Tags         Apps
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "apps: list of applications"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apps [get]
// ListAppsHandler lists the authenticated user's applications
// GET /api/v1/apps
func (h *AppHandlers) ListAppsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		list, err := h.appRepo.ListAppsByOwner(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list apps"})
			return
		}

		resp := make([]AppResponse, 0, len(list))
		for _, app := range list {
			resp = append(resp, appResponse(app))
		}
		c.JSON(http.StatusOK, gin.H{"apps": resp})
	}
}

// @Summary      Get application
// @Description  Returns one of the authenticated user's applications by ID.
// @Tags         Apps
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "App ID"
// @Success      200  {object}  AppResponse
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "App not found"
// @Router       /api/v1/apps/{id} [get]
// GetAppHandler returns a single application
// GET /api/v1/apps/:id
func (h *AppHandlers) GetAppHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := h.ownedApp(c, c.GetString("user_id"))
		if app == nil {
			return
		}
		c.JSON(http.StatusOK, appResponse(app))
	}
}

// @Summary      Update application
// @Description  Applies a partial update to an application's description, source reference, or environment variables.
// @Tags         Apps
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string            true  "App ID"
// @Param        request  body  UpdateAppRequest  true  "Fields to change"
// @Success      200  {object}  AppResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "App not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apps/{id} [patch]
// UpdateAppHandler applies a partial update to an application
// PATCH /api/v1/apps/:id
func (h *AppHandlers) UpdateAppHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := h.ownedApp(c, c.GetString("user_id"))
		if app == nil {
			return
		}

		var req UpdateAppRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if req.Description != nil {
			app.Description = *req.Description
		}
		if req.SourceRef != nil {
			app.SourceRef = *req.SourceRef
		}
		if req.EnvVars != nil {
			app.EnvVars = *req.EnvVars
		}

		if err := h.appRepo.UpdateApp(c.Request.Context(), app); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update app"})
			return
		}

		c.JSON(http.StatusOK, appResponse(app))
	}
}

// @Summary      Delete application
// @Description  Deletes an application. Its deployments and log entries cascade.
// @Tags         Apps
// @Security     Bearer
// @Param        id  path  string  true  "App ID"
// @Success      204  "App deleted"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "App not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apps/{id} [delete]
// DeleteAppHandler deletes an application
// DELETE /api/v1/apps/:id
func (h *AppHandlers) DeleteAppHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		app := h.ownedApp(c, userID)
		if app == nil {
			return
		}

		if err := h.appRepo.DeleteApp(c.Request.Context(), app.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete app"})
			return
		}

		slog.Info("app deleted", "user_id", userID, "app_id", app.ID)
		c.Status(http.StatusNoContent)
	}
}

// lifecycleTransitions maps a lifecycle action to the status it sets and the
// statuses it may be applied from.
var lifecycleTransitions = map[string]struct {
	target  string
	allowed map[string]bool
}{
	"start": {
		target:  models.AppStatusRunning,
		allowed: map[string]bool{models.AppStatusStopped: true, models.AppStatusFailed: true},
	},
	"stop": {
		target:  models.AppStatusStopped,
		allowed: map[string]bool{models.AppStatusRunning: true},
	},
	"restart": {
		target:  models.AppStatusRunning,
		allowed: map[string]bool{models.AppStatusRunning: true, models.AppStatusStopped: true, models.AppStatusFailed: true},
	},
}

// @Summary      Application lifecycle action
// @Description  Starts, stops, or restarts a running application. The action must be valid for the app's current status; e.g. only a running app can be stopped.
// @Tags         Apps
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "App ID"
// @Param        action  path  string  true  "Lifecycle action: start, stop, or restart"
// @Success      200  {object}  AppResponse
// @Failure      400  {object}  map[string]interface{}  "Unknown action or invalid transition"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "App not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apps/{id}/{action} [post]
// LifecycleHandler applies a start/stop/restart action to an application
// POST /api/v1/apps/:id/start|stop|restart
func (h *AppHandlers) LifecycleHandler(action string) gin.HandlerFunc {
	transition, ok := lifecycleTransitions[action]
	if !ok {
		panic("unknown lifecycle action: " + action)
	}

	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		app := h.ownedApp(c, userID)
		if app == nil {
			return
		}

		if !transition.allowed[app.Status] {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cannot " + action + " an app with status " + app.Status,
			})
			return
		}

		ctx := c.Request.Context()
		if err := h.appRepo.UpdateAppStatus(ctx, app.ID, transition.target, nil); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update app status"})
			return
		}
		app.Status = transition.target

		if err := h.logRepo.InsertLogEntry(ctx, &models.LogEntry{
			AppID:   app.ID,
			Level:   "info",
			Message: "Application " + action + " requested",
		}); err != nil {
			slog.Warn("failed to record lifecycle log", "app_id", app.ID, "error", err)
		}

		slog.Info("app lifecycle action", "user_id", userID, "app_id", app.ID, "action", action)
		c.JSON(http.StatusOK, appResponse(app))
	}
}
