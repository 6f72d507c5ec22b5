package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
)

var functionCols = []string{"id", "owner_id", "name", "runtime", "code", "endpoint", "invocation_count", "created_at", "updated_at"}

func sampleFunctionRow() *sqlmock.Rows {
	endpoint := "https://fn-hello-abc12345.myplatform.app/invoke"
	return sqlmock.NewRows(functionCols).
		AddRow("fn-1", "user-1", "hello", "python", "def handler(): pass", endpoint, int64(4), time.Now(), time.Now())
}

func newFunctionRepo(t *testing.T) (*FunctionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFunctionRepository(db), mock
}

func TestCreateFunction(t *testing.T) {
	repo, mock := newFunctionRepo(t)
	mock.ExpectExec("INSERT INTO functions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	fn := &models.Function{
		OwnerID: "user-1",
		Name:    "hello",
		Runtime: models.RuntimePython,
		Code:    "def handler(): pass",
	}
	if err := repo.CreateFunction(context.Background(), fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn.ID == "" {
		t.Error("expected generated ID")
	}
}

func TestGetFunctionByID_Found(t *testing.T) {
	repo, mock := newFunctionRepo(t)
	mock.ExpectQuery("SELECT.*FROM functions.*WHERE id").
		WithArgs("fn-1").
		WillReturnRows(sampleFunctionRow())

	fn, err := repo.GetFunctionByID(context.Background(), "fn-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn == nil {
		t.Fatal("expected function, got nil")
	}
	if fn.Runtime != "python" {
		t.Errorf("Runtime = %s, want python", fn.Runtime)
	}
}

func TestGetFunctionByID_NotFound(t *testing.T) {
	repo, mock := newFunctionRepo(t)
	mock.ExpectQuery("SELECT.*FROM functions.*WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(functionCols))

	fn, err := repo.GetFunctionByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn != nil {
		t.Errorf("expected nil function for not found, got %v", fn)
	}
}

func TestListFunctionsByOwner(t *testing.T) {
	repo, mock := newFunctionRepo(t)
	rows := sqlmock.NewRows(functionCols).
		AddRow("fn-1", "user-1", "hello", "python", "code", nil, int64(0), time.Now(), time.Now()).
		AddRow("fn-2", "user-1", "world", "nodejs", "code", nil, int64(2), time.Now(), time.Now())
	mock.ExpectQuery("SELECT.*FROM functions.*WHERE owner_id").
		WithArgs("user-1").
		WillReturnRows(rows)

	fns, err := repo.ListFunctionsByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fns) != 2 {
		t.Errorf("len = %d, want 2", len(fns))
	}
}

func TestIncrementInvocations(t *testing.T) {
	repo, mock := newFunctionRepo(t)
	mock.ExpectQuery("UPDATE functions.*invocation_count \\+ 1.*RETURNING").
		WillReturnRows(sqlmock.NewRows([]string{"invocation_count"}).AddRow(int64(5)))

	count, err := repo.IncrementInvocations(context.Background(), "fn-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestUpdateFunctionCode(t *testing.T) {
	repo, mock := newFunctionRepo(t)
	mock.ExpectExec("UPDATE functions SET code").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateFunctionCode(context.Background(), "fn-1", "new code"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteFunction(t *testing.T) {
	repo, mock := newFunctionRepo(t)
	mock.ExpectExec("DELETE FROM functions").
		WithArgs("fn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteFunction(context.Background(), "fn-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
