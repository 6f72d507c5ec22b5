// apikeys.go implements API key management for the authenticated user. The
// full key material is returned exactly once, in the creation response; every
// other endpoint only ever exposes a masked form.
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

// APIKeyHandlers handles API key management endpoints
type APIKeyHandlers struct {
	cfg        *config.Config
	db         *sql.DB
	apiKeyRepo *repositories.APIKeyRepository
}

// NewAPIKeyHandlers creates a new APIKeyHandlers instance
func NewAPIKeyHandlers(cfg *config.Config, db *sql.DB) *APIKeyHandlers {
	return &APIKeyHandlers{
		cfg:        cfg,
		db:         db,
		apiKeyRepo: repositories.NewAPIKeyRepository(db),
	}
}

// CreateAPIKeyRequest represents the request to create a new API key
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateAPIKeyResponse represents the response when creating an API key
type CreateAPIKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"` // Only returned once during creation
	CreatedAt time.Time `json:"created_at"`
}

// APIKeyResponse is the masked representation of an API key
type APIKeyResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyMasked  string     `json:"key_masked"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (h *APIKeyHandlers) apiKeyResponse(key *models.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:         key.ID,
		Name:       key.Name,
		KeyMasked:  auth.MaskAPIKey(key.Secret, h.cfg.Auth.APIKeys.Prefix),
		IsActive:   key.IsActive,
		LastUsedAt: key.LastUsedAt,
		CreatedAt:  key.CreatedAt,
	}
}

// ownedKey loads an API key and verifies it belongs to userID. Returns nil
// when the key does not exist or belongs to someone else; the two cases are
// indistinguishable to the caller on purpose.
func (h *APIKeyHandlers) ownedKey(c *gin.Context, userID string) *models.APIKey {
	key, err := h.apiKeyRepo.GetAPIKeyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up API key"})
		return nil
	}
	if key == nil || key.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
		return nil
	}
	return key
}

// @Summary      Create API key
// @Description  Generates a new API key for the authenticated user. The full key is returned only in this response; store it securely.
// @Tags         API Keys
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  CreateAPIKeyRequest  true  "Key name"
// @Success      201  {object}  CreateAPIKeyResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid name"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/api-keys [post]
// CreateAPIKeyHandler creates a new API key for the authenticated user
// POST /api/v1/auth/api-keys
func (h *APIKeyHandlers) CreateAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var req CreateAPIKeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := validation.ValidateAPIKeyName(req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		secret, err := auth.GenerateAPIKey(h.cfg.Auth.APIKeys.Prefix, h.cfg.Auth.APIKeys.Length)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate API key"})
			return
		}

		key := &models.APIKey{
			UserID:   userID,
			Name:     req.Name,
			Secret:   secret,
			IsActive: true,
		}
		if err := h.apiKeyRepo.CreateAPIKey(c.Request.Context(), key); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create API key"})
			return
		}

		slog.Info("api key created", "user_id", userID, "key_id", key.ID)
		c.JSON(http.StatusCreated, CreateAPIKeyResponse{
			ID:        key.ID,
			Name:      key.Name,
			Key:       secret,
			CreatedAt: key.CreatedAt,
		})
	}
}

// @Summary      List API keys
// @Description  Lists the authenticated user's API keys. Key material is masked.
// @Tags         API Keys
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "api_keys: list of masked keys"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/api-keys [get]
// ListAPIKeysHandler lists the authenticated user's API keys
// GET /api/v1/auth/api-keys
func (h *APIKeyHandlers) ListAPIKeysHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		keys, err := h.apiKeyRepo.ListAPIKeysByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list API keys"})
			return
		}

		resp := make([]APIKeyResponse, 0, len(keys))
		for _, key := range keys {
			resp = append(resp, h.apiKeyResponse(key))
		}
		c.JSON(http.StatusOK, gin.H{"api_keys": resp})
	}
}

// @Summary      Deactivate API key
// @Description  Revokes an API key without deleting its record. A deactivated key fails authentication but stays visible in the list.
// @Tags         API Keys
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "API key ID"
// @Success      200  {object}  APIKeyResponse
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "API key not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/api-keys/{id}/deactivate [post]
// DeactivateAPIKeyHandler revokes an API key
// POST /api/v1/auth/api-keys/:id/deactivate
func (h *APIKeyHandlers) DeactivateAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		key := h.ownedKey(c, userID)
		if key == nil {
			return
		}

		if err := h.apiKeyRepo.DeactivateAPIKey(c.Request.Context(), key.ID, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate API key"})
			return
		}

		key.IsActive = false
		slog.Info("api key deactivated", "user_id", userID, "key_id", key.ID)
		c.JSON(http.StatusOK, h.apiKeyResponse(key))
	}
}

// @Summary      Delete API key
// @Description  Permanently deletes an API key belonging to the authenticated user.
// @Tags         API Keys
// @Security     Bearer
// @Param        id  path  string  true  "API key ID"
// @Success      204  "Key deleted"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "API key not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/api-keys/{id} [delete]
// DeleteAPIKeyHandler permanently deletes an API key
// DELETE /api/v1/auth/api-keys/:id
func (h *APIKeyHandlers) DeleteAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		key := h.ownedKey(c, userID)
		if key == nil {
			return
		}

		if err := h.apiKeyRepo.DeleteAPIKey(c.Request.Context(), key.ID, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete API key"})
			return
		}

		slog.Info("api key deleted", "user_id", userID, "key_id", key.ID)
		c.Status(http.StatusNoContent)
	}
}
