// Package api wires together all HTTP routes for the deployment platform
// backend.
//
// Route grouping philosophy:
//   - /health, /ready, and /version are unauthenticated system routes; /health
//     is additionally exempt from rate limiting so that liveness probes keep
//     working while a client is throttled.
//   - /api/v1/auth/signup, /login, and /refresh are the only unauthenticated
//     application routes.
//   - Everything else under /api/v1 requires a valid access token or API key;
//     the /api/v1/admin subtree additionally requires the admin role.
package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/api/accounts"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/api/admin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/api/apps"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/api/functions"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/repositories"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/jobs"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/middleware"
)

// deploymentStageDelay is the simulated duration of each pipeline stage.
const deploymentStageDelay = 2 * time.Second

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	runner       *jobs.DeploymentRunner
	memoryLimits *middleware.MemoryRateLimitStore
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.runner != nil {
		bg.runner.Shutdown()
	}
	if bg.memoryLimits != nil {
		bg.memoryLimits.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	appRepo := repositories.NewAppRepository(db)
	deploymentRepo := repositories.NewDeploymentRepository(db)

	// Wrap *sql.DB with sqlx for the stats handler
	sqlxDB := sqlx.NewDb(db, "postgres")

	// Start the deployment pipeline runner
	runner := jobs.NewDeploymentRunner(
		deploymentRepo,
		appRepo,
		cfg.Deployment.BaseDomain,
		cfg.Deployment.QueueSize,
		cfg.Deployment.Workers,
		deploymentStageDelay,
	)
	runner.Start()
	slog.Info("deployment runner started",
		"workers", cfg.Deployment.Workers, "queue_size", cfg.Deployment.QueueSize)

	bg := &BackgroundServices{runner: runner}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Rate limiting applies to every route except the exempt health probe.
	if cfg.Security.RateLimiting.Enabled {
		var store middleware.RateLimitStore
		if cfg.Redis.Enabled {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.GetAddr(),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			store = middleware.NewRedisRateLimitStore(
				client,
				cfg.Security.RateLimiting.Requests,
				cfg.Security.RateLimiting.Window(),
			)
			slog.Info("rate limiting enabled", "store", "redis", "addr", cfg.Redis.GetAddr())
		} else {
			memStore := middleware.NewMemoryRateLimitStore(
				cfg.Security.RateLimiting.Requests,
				cfg.Security.RateLimiting.Window(),
			)
			bg.memoryLimits = memStore
			store = memStore
			slog.Info("rate limiting enabled", "store", "memory")
		}
		router.Use(middleware.RateLimitMiddleware(store))
	}

	// System routes
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db))
	router.GET("/version", versionHandler())

	// Handlers
	authHandlers := accounts.NewAuthHandlers(cfg, db)
	profileHandlers := accounts.NewProfileHandlers(cfg, db)
	apiKeyHandlers := accounts.NewAPIKeyHandlers(cfg, db)
	appHandlers := apps.NewAppHandlers(cfg, db)
	deploymentHandlers := apps.NewDeploymentHandlers(cfg, db, runner)
	logHandlers := apps.NewLogHandlers(cfg, db)
	functionHandlers := functions.NewFunctionHandlers(cfg, db)
	adminUserHandlers := admin.NewUserHandlers(cfg, db)
	statsHandler := admin.NewStatsHandler(sqlxDB)

	v1 := router.Group("/api/v1")

	// Public authentication routes
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/signup", authHandlers.SignupHandler())
		authGroup.POST("/login", authHandlers.LoginHandler())
		authGroup.POST("/refresh", authHandlers.RefreshHandler())
	}

	// Authenticated routes
	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(userRepo, apiKeyRepo))
	{
		authed.GET("/auth/me", profileHandlers.GetMeHandler())
		authed.PATCH("/users/me", profileHandlers.UpdateMeHandler())
		authed.DELETE("/users/me", profileHandlers.DeleteMeHandler())

		authed.POST("/auth/api-keys", apiKeyHandlers.CreateAPIKeyHandler())
		authed.GET("/auth/api-keys", apiKeyHandlers.ListAPIKeysHandler())
		authed.POST("/auth/api-keys/:id/deactivate", apiKeyHandlers.DeactivateAPIKeyHandler())
		authed.DELETE("/auth/api-keys/:id", apiKeyHandlers.DeleteAPIKeyHandler())

		authed.POST("/apps", appHandlers.CreateAppHandler())
		authed.GET("/apps", appHandlers.ListAppsHandler())
		authed.GET("/apps/:id", appHandlers.GetAppHandler())
		authed.PATCH("/apps/:id", appHandlers.UpdateAppHandler())
		authed.DELETE("/apps/:id", appHandlers.DeleteAppHandler())
		authed.POST("/apps/:id/start", appHandlers.LifecycleHandler("start"))
		authed.POST("/apps/:id/stop", appHandlers.LifecycleHandler("stop"))
		authed.POST("/apps/:id/restart", appHandlers.LifecycleHandler("restart"))

		authed.POST("/deployments", deploymentHandlers.CreateDeploymentHandler())
		authed.GET("/deployments", deploymentHandlers.ListDeploymentsHandler())
		authed.GET("/deployments/:id", deploymentHandlers.GetDeploymentHandler())

		authed.POST("/functions", functionHandlers.CreateFunctionHandler())
		authed.GET("/functions", functionHandlers.ListFunctionsHandler())
		authed.GET("/functions/:id", functionHandlers.GetFunctionHandler())
		authed.PATCH("/functions/:id", functionHandlers.UpdateFunctionHandler())
		authed.DELETE("/functions/:id", functionHandlers.DeleteFunctionHandler())
		authed.POST("/functions/:id/invoke", functionHandlers.InvokeFunctionHandler())

		authed.GET("/logs", logHandlers.ListLogsHandler())
	}

	// Administrative routes
	adminGroup := authed.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin())
	{
		adminGroup.GET("/users", adminUserHandlers.ListUsersHandler())
		adminGroup.PATCH("/users/:id", adminUserHandlers.UpdateUserHandler())
		adminGroup.DELETE("/users/:id", adminUserHandlers.DeleteUserHandler())
		adminGroup.GET("/apps", adminUserHandlers.ListAllAppsHandler())
		adminGroup.GET("/stats", statsHandler.GetPlatformStats)
	}

	return router, bg
}

// @Summary      Health check
// @Description  Liveness probe. Verifies database connectivity. Exempt from rate limiting.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready": false,
				"error": "database not ready",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ready": true,
			"time":  time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
