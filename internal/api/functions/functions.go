// Package functions implements the HTTP handlers for serverless function
// management and invocation. Functions follow the same ownership model as
// apps: foreign resources are reported as 404.
package functions

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/repositories"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/jobs"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/validation"
)

// FunctionHandlers handles serverless function endpoints
type FunctionHandlers struct {
	cfg          *config.Config
	db           *sql.DB
	functionRepo *repositories.FunctionRepository
}

// NewFunctionHandlers creates a new FunctionHandlers instance
func NewFunctionHandlers(cfg *config.Config, db *sql.DB) *FunctionHandlers {
	return &FunctionHandlers{
		cfg:          cfg,
		db:           db,
		functionRepo: repositories.NewFunctionRepository(db),
	}
}

// CreateFunctionRequest represents the request to create a function
type CreateFunctionRequest struct {
	Name    string `json:"name" binding:"required"`
	Runtime string `json:"runtime" binding:"required"`
	Code    string `json:"code" binding:"required"`
}

// UpdateFunctionRequest represents a partial update to a function.
// Only the code can change after creation; name and runtime are fixed.
type UpdateFunctionRequest struct {
	Code *string `json:"code"`
}

// FunctionResponse is the public representation of a function
type FunctionResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Runtime         string    `json:"runtime"`
	Code            string    `json:"code"`
	Endpoint        *string   `json:"endpoint"`
	InvocationCount int64     `json:"invocation_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// InvokeResponse represents the result of a simulated function invocation
type InvokeResponse struct {
	FunctionID      string `json:"function_id"`
	Status          string `json:"status"`
	Output          string `json:"output"`
	DurationMS      int64  `json:"duration_ms"`
	InvocationCount int64  `json:"invocation_count"`
}

func functionResponse(fn *models.Function) FunctionResponse {
	return FunctionResponse{
		ID:              fn.ID,
		Name:            fn.Name,
		Runtime:         fn.Runtime,
		Code:            fn.Code,
		Endpoint:        fn.Endpoint,
		InvocationCount: fn.InvocationCount,
		CreatedAt:       fn.CreatedAt,
		UpdatedAt:       fn.UpdatedAt,
	}
}

// ownedFunction loads a function and verifies it belongs to userID. Writes
// the error response and returns nil when the function is missing or foreign.
func (h *FunctionHandlers) ownedFunction(c *gin.Context, userID string) *models.Function {
	fn, err := h.functionRepo.GetFunctionByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up function"})
		return nil
	}
	if fn == nil || fn.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Function not found"})
		return nil
	}
	return fn
}

// @Summary      Create function
// @Description  Registers a new serverless function. Names are lowercased and unique per user; the runtime must be python or nodejs. The invocation endpoint is assigned at creation.
// @Tags         Functions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  CreateFunctionRequest  true  "Function details"
// @Success      201  {object}  FunctionResponse
// @Failure      400  {object}  map[string]interface{}  "Validation failure or duplicate name"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/functions [post]
// CreateFunctionHandler registers a new serverless function
// POST /api/v1/functions
func (h *FunctionHandlers) CreateFunctionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var req CreateFunctionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		name, err := validation.NormalizeResourceName(req.Name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !models.ValidRuntime(req.Runtime) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid runtime"})
			return
		}

		ctx := c.Request.Context()

		existing, err := h.functionRepo.GetFunctionByOwnerAndName(ctx, userID, name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check function name"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A function with this name already exists"})
			return
		}

		fn := &models.Function{
			ID:      uuid.New().String(),
			OwnerID: userID,
			Name:    name,
			Runtime: req.Runtime,
			Code:    req.Code,
		}
		endpoint := jobs.FunctionEndpoint(name, fn.ID, h.cfg.Deployment.BaseDomain)
		fn.Endpoint = &endpoint

		if err := h.functionRepo.CreateFunction(ctx, fn); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create function"})
			return
		}

		slog.Info("function created", "user_id", userID, "function_id", fn.ID, "name", name)
		c.JSON(http.StatusCreated, functionResponse(fn))
	}
}

// @Summary      List functions
// @Description  Lists the authenticated user's functions.
// @Tags         Functions
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "functions: list of functions"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/functions [get]
// ListFunctionsHandler lists the authenticated user's functions
// GET /api/v1/functions
func (h *FunctionHandlers) ListFunctionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		list, err := h.functionRepo.ListFunctionsByOwner(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list functions"})
			return
		}

		resp := make([]FunctionResponse, 0, len(list))
		for _, fn := range list {
			resp = append(resp, functionResponse(fn))
		}
		c.JSON(http.StatusOK, gin.H{"functions": resp})
	}
}

// @Summary      Get function
// @Description  Returns one of the authenticated user's functions by ID.
// @Tags         Functions
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Function ID"
// @Success      200  {object}  FunctionResponse
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Function not found"
// @Router       /api/v1/functions/{id} [get]
// GetFunctionHandler returns a single function
// GET /api/v1/functions/:id
func (h *FunctionHandlers) GetFunctionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fn := h.ownedFunction(c, c.GetString("user_id"))
		if fn == nil {
			return
		}
		c.JSON(http.StatusOK, functionResponse(fn))
	}
}

// @Summary      Update function
// @Description  Updates a function's code. Name and runtime cannot change after creation.
// @Tags         Functions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "Function ID"
// @Param        request  body  UpdateFunctionRequest  true  "New code"
// @Success      200  {object}  FunctionResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Function not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/functions/{id} [patch]
// UpdateFunctionHandler updates a function's code
// PATCH /api/v1/functions/:id
func (h *FunctionHandlers) UpdateFunctionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fn := h.ownedFunction(c, c.GetString("user_id"))
		if fn == nil {
			return
		}

		var req UpdateFunctionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if req.Code != nil {
			if err := h.functionRepo.UpdateFunctionCode(c.Request.Context(), fn.ID, *req.Code); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update function"})
				return
			}
			fn.Code = *req.Code
		}

		c.JSON(http.StatusOK, functionResponse(fn))
	}
}

// @Summary      Delete function
// @Description  Permanently deletes a function.
// @Tags         Functions
// @Security     Bearer
// @Param        id  path  string  true  "Function ID"
// @Success      204  "Function deleted"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Function not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/functions/{id} [delete]
// DeleteFunctionHandler deletes a function
// DELETE /api/v1/functions/:id
func (h *FunctionHandlers) DeleteFunctionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		fn := h.ownedFunction(c, userID)
		if fn == nil {
			return
		}

		if err := h.functionRepo.DeleteFunction(c.Request.Context(), fn.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete function"})
			return
		}

		slog.Info("function deleted", "user_id", userID, "function_id", fn.ID)
		c.Status(http.StatusNoContent)
	}
}

// @Summary      Invoke function
// @Description  Simulates an execution of the function and increments its invocation counter. The execution itself is mocked; the platform does not run tenant code.
// @Tags         Functions
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Function ID"
// @Success      200  {object}  InvokeResponse
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Function not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/functions/{id}/invoke [post]
// InvokeFunctionHandler simulates one execution of a function
// POST /api/v1/functions/:id/invoke
func (h *FunctionHandlers) InvokeFunctionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		fn := h.ownedFunction(c, userID)
		if fn == nil {
			return
		}

		start := time.Now()
		count, err := h.functionRepo.IncrementInvocations(c.Request.Context(), fn.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record invocation"})
			return
		}

		slog.Info("function invoked", "user_id", userID, "function_id", fn.ID, "count", count)
		c.JSON(http.StatusOK, InvokeResponse{
			FunctionID:      fn.ID,
			Status:          "success",
			Output:          "Function " + fn.Name + " executed successfully",
			DurationMS:      time.Since(start).Milliseconds(),
			InvocationCount: count,
		})
	}
}
