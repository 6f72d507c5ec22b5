package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("CDP_JWT_SECRET", "test-router-jwt-secret-32-chars!!!!!")
	os.Exit(m.Run())
}

func routerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Deployment.BaseDomain = "myplatform.app"
	cfg.Deployment.MaxAppsPerUser = 10
	cfg.Deployment.QueueSize = 4
	cfg.Deployment.Workers = 1
	cfg.Auth.AccessTokenExpiry = time.Hour
	cfg.Auth.RefreshTokenExpiry = 168 * time.Hour
	cfg.Auth.APIKeys.Prefix = "cdp_"
	cfg.Security.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r, bg := NewRouter(cfg, db)
	t.Cleanup(bg.Shutdown)
	return r
}

func TestHealthRoute(t *testing.T) {
	r := newTestRouter(t, routerConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
}

func TestVersionRoute(t *testing.T) {
	r := newTestRouter(t, routerConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/version", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuthenticatedRouteRequiresToken(t *testing.T) {
	r := newTestRouter(t, routerConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/apps", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestPublicAuthRouteReachable(t *testing.T) {
	r := newTestRouter(t, routerConfig())

	// No Authorization header: the route must still be dispatched, failing on
	// body validation rather than authentication.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/auth/signup", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRateLimitAppliesButHealthExempt(t *testing.T) {
	cfg := routerConfig()
	cfg.Security.RateLimiting.Enabled = true
	cfg.Security.RateLimiting.Requests = 2
	cfg.Security.RateLimiting.WindowSeconds = 60
	r := newTestRouter(t, cfg)

	// Exhaust the quota on an application route.
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/version", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/version", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("over-quota status = %d, want 429", w.Code)
	}

	// The health probe stays reachable for the same client.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestAdminRouteRejectsRegularUser(t *testing.T) {
	r := newTestRouter(t, routerConfig())

	// Unauthenticated requests never reach the role gate.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/admin/users", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
