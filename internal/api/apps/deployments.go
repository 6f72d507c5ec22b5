// deployments.go implements the deployment endpoints. Creating a deployment
// only records a pending row and hands the work to the pipeline runner; the
// HTTP response never waits for the pipeline.
package apps

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/repositories"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/jobs"
)

// DeploymentScheduler is the subset of the pipeline runner the handlers need
type DeploymentScheduler interface {
	Schedule(job jobs.DeploymentJob)
}

// DeploymentHandlers handles deployment endpoints
type DeploymentHandlers struct {
	cfg            *config.Config
	db             *sql.DB
	appRepo        *repositories.AppRepository
	deploymentRepo *repositories.DeploymentRepository
	scheduler      DeploymentScheduler
}

// NewDeploymentHandlers creates a new DeploymentHandlers instance
func NewDeploymentHandlers(cfg *config.Config, db *sql.DB, scheduler DeploymentScheduler) *DeploymentHandlers {
	return &DeploymentHandlers{
		cfg:            cfg,
		db:             db,
		appRepo:        repositories.NewAppRepository(db),
		deploymentRepo: repositories.NewDeploymentRepository(db),
		scheduler:      scheduler,
	}
}

// CreateDeploymentRequest represents the request to deploy an application
type CreateDeploymentRequest struct {
	AppID       string  `json:"app_id" binding:"required"`
	CommitSHA   *string `json:"commit_sha"`
	DockerImage *string `json:"docker_image"`
}

// DeploymentResponse is the public representation of a deployment
type DeploymentResponse struct {
	ID          string     `json:"id"`
	AppID       string     `json:"app_id"`
	CommitSHA   *string    `json:"commit_sha"`
	DockerImage *string    `json:"docker_image"`
	Status      string     `json:"status"`
	Logs        []string   `json:"logs"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func deploymentResponse(d *models.Deployment) DeploymentResponse {
	return DeploymentResponse{
		ID:          d.ID,
		AppID:       d.AppID,
		CommitSHA:   d.CommitSHA,
		DockerImage: d.DockerImage,
		Status:      d.Status,
		Logs:        d.Logs,
		StartedAt:   d.StartedAt,
		CompletedAt: d.CompletedAt,
	}
}

// @Summary      Deploy application
// @Description  Creates a deployment for one of the caller's apps and schedules the pipeline. Returns the pending record immediately; poll the deployment to follow stage progress.
// @Tags         Deployments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  CreateDeploymentRequest  true  "App to deploy"
// @Success      201  {object}  DeploymentResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "App not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/deployments [post]
// CreateDeploymentHandler records a deployment and schedules the pipeline
// POST /api/v1/deployments
func (h *DeploymentHandlers) CreateDeploymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var req CreateDeploymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		ctx := c.Request.Context()

		app, err := h.appRepo.GetAppByID(ctx, req.AppID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up app"})
			return
		}
		if app == nil || app.OwnerID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "App not found"})
			return
		}

		deployment := &models.Deployment{
			AppID:       app.ID,
			CommitSHA:   req.CommitSHA,
			DockerImage: req.DockerImage,
			Logs:        []string{"Deployment queued"},
		}
		if err := h.deploymentRepo.CreateDeployment(ctx, deployment); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create deployment"})
			return
		}

		h.scheduler.Schedule(jobs.DeploymentJob{
			DeploymentID: deployment.ID,
			AppID:        app.ID,
			AppName:      app.Name,
		})

		slog.Info("deployment scheduled",
			"user_id", userID, "app_id", app.ID, "deployment_id", deployment.ID)
		c.JSON(http.StatusCreated, deploymentResponse(deployment))
	}
}

// @Summary      List deployments
// @Description  Lists the caller's most recent deployments, newest first, capped at 50 rows. Pass app_id to narrow the list to one application.
// @Tags         Deployments
// @Security     Bearer
// @Produce      json
// @Param        app_id  query  string  false  "Filter by app ID"
// @Success      200  {object}  map[string]interface{}  "deployments: list of deployments"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "App not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/deployments [get]
// ListDeploymentsHandler lists the caller's deployments
// GET /api/v1/deployments?app_id=...
func (h *DeploymentHandlers) ListDeploymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		ctx := c.Request.Context()

		var (
			list []*models.Deployment
			err  error
		)
		if appID := c.Query("app_id"); appID != "" {
			app, lookupErr := h.appRepo.GetAppByID(ctx, appID)
			if lookupErr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up app"})
				return
			}
			if app == nil || app.OwnerID != userID {
				c.JSON(http.StatusNotFound, gin.H{"error": "App not found"})
				return
			}
			list, err = h.deploymentRepo.ListDeploymentsByApp(ctx, appID)
		} else {
			list, err = h.deploymentRepo.ListDeploymentsByOwner(ctx, userID, 50)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list deployments"})
			return
		}

		resp := make([]DeploymentResponse, 0, len(list))
		for _, d := range list {
			resp = append(resp, deploymentResponse(d))
		}
		c.JSON(http.StatusOK, gin.H{"deployments": resp})
	}
}

// @Summary      Get deployment
// @Description  Returns a single deployment, including its stage log lines so far.
// @Tags         Deployments
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Deployment ID"
// @Success      200  {object}  DeploymentResponse
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Deployment not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/deployments/{id} [get]
// GetDeploymentHandler returns a single deployment
// GET /api/v1/deployments/:id
func (h *DeploymentHandlers) GetDeploymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		ctx := c.Request.Context()

		deployment, err := h.deploymentRepo.GetDeploymentByID(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up deployment"})
			return
		}
		if deployment == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Deployment not found"})
			return
		}

		// Ownership runs through the app.
		app, err := h.appRepo.GetAppByID(ctx, deployment.AppID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up app"})
			return
		}
		if app == nil || app.OwnerID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Deployment not found"})
			return
		}

		c.JSON(http.StatusOK, deploymentResponse(deployment))
	}
}
