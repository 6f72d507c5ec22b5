// logs.go implements the runtime log query endpoint.
package apps

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/repositories"
)

// LogHandlers handles runtime log endpoints
type LogHandlers struct {
	cfg     *config.Config
	db      *sql.DB
	appRepo *repositories.AppRepository
	logRepo *repositories.LogRepository
}

// NewLogHandlers creates a new LogHandlers instance
func NewLogHandlers(cfg *config.Config, db *sql.DB) *LogHandlers {
	return &LogHandlers{
		cfg:     cfg,
		db:      db,
		appRepo: repositories.NewAppRepository(db),
		logRepo: repositories.NewLogRepository(sqlx.NewDb(db, "postgres")),
	}
}

// LogEntryResponse is the public representation of a runtime log line
type LogEntryResponse struct {
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func logEntryResponse(e *models.LogEntry) LogEntryResponse {
	return LogEntryResponse{
		ID:        e.ID,
		AppID:     e.AppID,
		Level:     e.Level,
		Message:   e.Message,
		CreatedAt: e.CreatedAt,
	}
}

// @Summary      Query runtime logs
// @Description  Returns the caller's runtime log lines, newest first. Without app_id the logs of all the caller's apps are returned. Level narrows to one severity; limit is capped at 1000.
// @Tags         Logs
// @Security     Bearer
// @Produce      json
// @Param        app_id  query  string  false  "Filter by app ID"
// @Param        level   query  string  false  "Filter by log level"
// @Param        limit   query  int     false  "Maximum rows to return (default 100, max 1000)"
// @Success      200  {object}  map[string]interface{}  "logs: list of log entries"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "App not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/logs [get]
// ListLogsHandler returns runtime log lines for the caller's apps
// GET /api/v1/logs?app_id=...&level=...&limit=...
func (h *LogHandlers) ListLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		ctx := c.Request.Context()

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		level := c.Query("level")

		var (
			entries []*models.LogEntry
			err     error
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
			entries, err = h.logRepo.ListLogsByApp(ctx, appID, level, limit)
		} else {
			entries, err = h.logRepo.ListLogsByOwner(ctx, userID, level, limit)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list logs"})
			return
		}

		resp := make([]LogEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, logEntryResponse(e))
		}
		c.JSON(http.StatusOK, gin.H{"logs": resp})
	}
}
