// stats.go implements the platform statistics endpoint for the admin
// dashboard.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// StatsHandler handles platform statistics requests
type StatsHandler struct {
	db *sqlx.DB
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(database *sqlx.DB) *StatsHandler {
	return &StatsHandler{
		db: database,
	}
}

// PlatformStats represents the aggregated entity counts for the admin dashboard
type PlatformStats struct {
	Users       UserStats       `json:"users"`
	Apps        AppStats        `json:"apps"`
	Deployments DeploymentStats `json:"deployments"`
	Functions   FunctionStats   `json:"functions"`
}

// UserStats breaks accounts down by state
type UserStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
	Admins int64 `json:"admins"`
}

// AppStats breaks applications down by status
type AppStats struct {
	Total   int64 `json:"total"`
	Running int64 `json:"running"`
	Failed  int64 `json:"failed"`
}

// DeploymentStats breaks deployments down by outcome
type DeploymentStats struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	InFlight  int64 `json:"in_flight"`
}

// FunctionStats summarises serverless functions and their usage
type FunctionStats struct {
	Total       int64 `json:"total"`
	Invocations int64 `json:"invocations"`
}

// @Summary      Platform statistics
// @Description  Returns aggregated entity counts for the admin dashboard: users, apps, deployments, and functions, broken down by state.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  PlatformStats
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/stats [get]
// GetPlatformStats returns platform statistics using a single database round-trip.
func (h *StatsHandler) GetPlatformStats(c *gin.Context) {
	ctx := c.Request.Context()

	var stats PlatformStats
	query := `
		SELECT
			(SELECT COUNT(*) FROM users)                                              AS users_total,
			(SELECT COUNT(*) FROM users WHERE is_active)                              AS users_active,
			(SELECT COUNT(*) FROM users WHERE role = 'admin')                         AS users_admins,
			(SELECT COUNT(*) FROM apps)                                               AS apps_total,
			(SELECT COUNT(*) FROM apps WHERE status = 'running')                      AS apps_running,
			(SELECT COUNT(*) FROM apps WHERE status = 'failed')                       AS apps_failed,
			(SELECT COUNT(*) FROM deployments)                                        AS deployments_total,
			(SELECT COUNT(*) FROM deployments WHERE status = 'running')               AS deployments_succeeded,
			(SELECT COUNT(*) FROM deployments WHERE status = 'failed')                AS deployments_failed,
			(SELECT COUNT(*) FROM deployments WHERE status IN ('pending','deploying')) AS deployments_in_flight,
			(SELECT COUNT(*) FROM functions)                                          AS functions_total,
			(SELECT COALESCE(SUM(invocation_count), 0) FROM functions)                AS function_invocations
	`

	row := struct {
		UsersTotal           int64 `db:"users_total"`
		UsersActive          int64 `db:"users_active"`
		UsersAdmins          int64 `db:"users_admins"`
		AppsTotal            int64 `db:"apps_total"`
		AppsRunning          int64 `db:"apps_running"`
		AppsFailed           int64 `db:"apps_failed"`
		DeploymentsTotal     int64 `db:"deployments_total"`
		DeploymentsSucceeded int64 `db:"deployments_succeeded"`
		DeploymentsFailed    int64 `db:"deployments_failed"`
		DeploymentsInFlight  int64 `db:"deployments_in_flight"`
		FunctionsTotal       int64 `db:"functions_total"`
		FunctionInvocations  int64 `db:"function_invocations"`
	}{}

	if err := h.db.GetContext(ctx, &row, query); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}

	stats.Users = UserStats{Total: row.UsersTotal, Active: row.UsersActive, Admins: row.UsersAdmins}
	stats.Apps = AppStats{Total: row.AppsTotal, Running: row.AppsRunning, Failed: row.AppsFailed}
	stats.Deployments = DeploymentStats{
		Total:     row.DeploymentsTotal,
		Succeeded: row.DeploymentsSucceeded,
		Failed:    row.DeploymentsFailed,
		InFlight:  row.DeploymentsInFlight,
	}
	stats.Functions = FunctionStats{Total: row.FunctionsTotal, Invocations: row.FunctionInvocations}

	c.JSON(http.StatusOK, stats)
}
