package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/config"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

// userSQLCols are the columns returned by user SELECT queries.
var userSQLCols = []string{"id", "email", "username", "password_hash", "role", "is_active", "created_at", "updated_at"}

func userRow(id, role string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(userSQLCols).
		AddRow(id, id+"@example.com", "user_"+id, "x", role, active, time.Now(), time.Now())
}

// newAdminRouter creates a gin router with UserHandlers routes registered,
// acting as admin-1.
func newAdminRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewUserHandlers(&config.Config{}, db)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "admin-1")
		c.Next()
	})
	r.GET("/admin/users", h.ListUsersHandler())
	r.PATCH("/admin/users/:id", h.UpdateUserHandler())
	r.DELETE("/admin/users/:id", h.DeleteUserHandler())
	r.GET("/admin/apps", h.ListAllAppsHandler())

	return mock, r
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewBuffer(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

func getJSON(resp *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &m)
	return m
}

// ---------------------------------------------------------------------------
// ListUsersHandler
// ---------------------------------------------------------------------------

func TestListUsersHandler(t *testing.T) {
	mock, r := newAdminRouter(t)

	rows := userRow("user-1", "user", true).
		AddRow("user-2", "user-2@example.com", "user_2", "x", "admin", true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT.*FROM users").WillReturnRows(rows)

	w := do(r, "GET", "/admin/users", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	list, _ := resp["users"].([]interface{})
	if len(list) != 2 {
		t.Errorf("users len = %d, want 2", len(list))
	}
}

// ---------------------------------------------------------------------------
// UpdateUserHandler
// ---------------------------------------------------------------------------

func TestUpdateUserHandler_Deactivate(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WillReturnRows(userRow("user-2", "user", true))
	mock.ExpectExec("UPDATE users SET is_active").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := do(r, "PATCH", "/admin/users/user-2", gin.H{"is_active": false})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if resp := getJSON(w); resp["is_active"] != false {
		t.Errorf("is_active = %v, want false", resp["is_active"])
	}
}

func TestUpdateUserHandler_Promote(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WillReturnRows(userRow("user-2", "user", true))
	mock.ExpectExec("UPDATE users SET role").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := do(r, "PATCH", "/admin/users/user-2", gin.H{"role": "admin"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if resp := getJSON(w); resp["role"] != "admin" {
		t.Errorf("role = %v, want admin", resp["role"])
	}
}

func TestUpdateUserHandler_SelfDeactivateRejected(t *testing.T) {
	_, r := newAdminRouter(t)

	w := do(r, "PATCH", "/admin/users/admin-1", gin.H{"is_active": false})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateUserHandler_InvalidRole(t *testing.T) {
	_, r := newAdminRouter(t)

	w := do(r, "PATCH", "/admin/users/user-2", gin.H{"role": "superuser"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateUserHandler_NotFound(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WillReturnRows(sqlmock.NewRows(userSQLCols))

	w := do(r, "PATCH", "/admin/users/ghost", gin.H{"is_active": false})

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// DeleteUserHandler
// ---------------------------------------------------------------------------

func TestDeleteUserHandler(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WillReturnRows(userRow("user-2", "user", true))
	mock.ExpectExec("DELETE FROM users").
		WithArgs("user-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := do(r, "DELETE", "/admin/users/user-2", nil)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestDeleteUserHandler_SelfRejected(t *testing.T) {
	_, r := newAdminRouter(t)

	w := do(r, "DELETE", "/admin/users/admin-1", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
