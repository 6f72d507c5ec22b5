package accounts

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/auth"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

// userSQLCols are the columns returned by user SELECT queries.
var userSQLCols = []string{"id", "email", "username", "password_hash", "role", "is_active", "created_at", "updated_at"}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.AccessTokenExpiry = time.Hour
	cfg.Auth.RefreshTokenExpiry = 168 * time.Hour
	cfg.Auth.APIKeys.Prefix = "cdp_"
	cfg.Auth.APIKeys.Length = 32
	return cfg
}

func emptyUserRows() *sqlmock.Rows {
	return sqlmock.NewRows(userSQLCols)
}

func userRow(id, email, username, hash, role string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(userSQLCols).
		AddRow(id, email, username, hash, role, active, time.Now(), time.Now())
}

// newAuthRouter creates a gin router with all AuthHandlers routes registered.
func newAuthRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewAuthHandlers(testConfig(), db)

	r := gin.New()
	r.POST("/auth/signup", h.SignupHandler())
	r.POST("/auth/login", h.LoginHandler())
	r.POST("/auth/refresh", h.RefreshHandler())

	return mock, r
}

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func getJSON(resp *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &m)
	return m
}

func post(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, jsonBody(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// SignupHandler
// ---------------------------------------------------------------------------

func TestSignupHandler_Success(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").WillReturnRows(emptyUserRows())
	mock.ExpectQuery("SELECT.*FROM users.*WHERE username").WillReturnRows(emptyUserRows())
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))

	w := post(r, "/auth/signup", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["username"] != "alice" {
		t.Errorf("username = %v, want alice", resp["username"])
	}
	if resp["role"] != "user" {
		t.Errorf("role = %v, want user", resp["role"])
	}
	if _, leaked := resp["password_hash"]; leaked {
		t.Error("response must not include the password hash")
	}
}

func TestSignupHandler_DuplicateEmail(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WillReturnRows(userRow("user-1", "alice@example.com", "alice", "x", "user", true))

	w := post(r, "/auth/signup", gin.H{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "password123",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSignupHandler_InvalidUsername(t *testing.T) {
	_, r := newAuthRouter(t)

	w := post(r, "/auth/signup", gin.H{
		"username": "a!",
		"email":    "a@example.com",
		"password": "password123",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSignupHandler_ShortPassword(t *testing.T) {
	_, r := newAuthRouter(t)

	w := post(r, "/auth/signup", gin.H{
		"username": "alice",
		"email":    "a@example.com",
		"password": "short",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// LoginHandler
// ---------------------------------------------------------------------------

func TestLoginHandler_Success(t *testing.T) {
	mock, r := newAuthRouter(t)

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WillReturnRows(userRow("user-1", "alice@example.com", "alice", hash, "user", true))

	w := post(r, "/auth/login", gin.H{"email": "alice@example.com", "password": "password123"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["token_type"] != "bearer" {
		t.Errorf("token_type = %v, want bearer", resp["token_type"])
	}

	// The issued access token must carry the access kind and the user ID.
	claims, err := auth.ValidateTokenKind(resp["access_token"].(string), auth.TokenKindAccess)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", claims.UserID)
	}

	// And the refresh token must not work as an access token.
	if _, err := auth.ValidateTokenKind(resp["refresh_token"].(string), auth.TokenKindAccess); err == nil {
		t.Error("refresh token accepted as access token")
	}
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	mock, r := newAuthRouter(t)

	hash, _ := auth.HashPassword("password123")
	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WillReturnRows(userRow("user-1", "alice@example.com", "alice", hash, "user", true))

	w := post(r, "/auth/login", gin.H{"email": "alice@example.com", "password": "wrongwrong"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLoginHandler_UnknownEmail(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").WillReturnRows(emptyUserRows())

	w := post(r, "/auth/login", gin.H{"email": "ghost@example.com", "password": "password123"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLoginHandler_DisabledAccount(t *testing.T) {
	mock, r := newAuthRouter(t)

	hash, _ := auth.HashPassword("password123")
	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WillReturnRows(userRow("user-1", "alice@example.com", "alice", hash, "user", false))

	w := post(r, "/auth/login", gin.H{"email": "alice@example.com", "password": "password123"})

	// Correct credentials on a disabled account must be distinguishable from
	// wrong credentials.
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

// ---------------------------------------------------------------------------
// RefreshHandler
// ---------------------------------------------------------------------------

func TestRefreshHandler_Success(t *testing.T) {
	mock, r := newAuthRouter(t)

	refresh, err := auth.GenerateRefreshToken("user-1", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WillReturnRows(userRow("user-1", "alice@example.com", "alice", "x", "user", true))

	w := post(r, "/auth/refresh", gin.H{"refresh_token": refresh})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["access_token"] == "" || resp["refresh_token"] == "" {
		t.Error("expected a fresh token pair")
	}
}

func TestRefreshHandler_RejectsAccessToken(t *testing.T) {
	_, r := newAuthRouter(t)

	access, err := auth.GenerateAccessToken("user-1", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	w := post(r, "/auth/refresh", gin.H{"refresh_token": access})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRefreshHandler_DisabledAccount(t *testing.T) {
	mock, r := newAuthRouter(t)

	refresh, _ := auth.GenerateRefreshToken("user-1", "alice@example.com", time.Hour)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WillReturnRows(userRow("user-1", "alice@example.com", "alice", "x", "user", false))

	w := post(r, "/auth/refresh", gin.H{"refresh_token": refresh})

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRefreshHandler_GarbageToken(t *testing.T) {
	_, r := newAuthRouter(t)

	w := post(r, "/auth/refresh", gin.H{"refresh_token": "not-a-jwt"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
