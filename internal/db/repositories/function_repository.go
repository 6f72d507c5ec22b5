// function_repository.go implements FunctionRepository, providing database
// queries for serverless function CRUD and invocation accounting.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
)

// FunctionRepository handles function database operations
type FunctionRepository struct {
	db *sql.DB
}

// NewFunctionRepository creates a new FunctionRepository
func NewFunctionRepository(db *sql.DB) *FunctionRepository {
	return &FunctionRepository{db: db}
}

// CreateFunction creates a new function
func (r *FunctionRepository) CreateFunction(ctx context.Context, fn *models.Function) error {
	if fn.ID == "" {
		fn.ID = uuid.New().String()
	}
	fn.CreatedAt = time.Now()
	fn.UpdatedAt = time.Now()

	query := `
		INSERT INTO functions (id, owner_id, name, runtime, code, endpoint, invocation_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		fn.ID,
		fn.OwnerID,
		fn.Name,
		fn.Runtime,
		fn.Code,
		fn.Endpoint,
		fn.InvocationCount,
		fn.CreatedAt,
		fn.UpdatedAt,
	)

	return err
}

// GetFunctionByID retrieves a function by ID
func (r *FunctionRepository) GetFunctionByID(ctx context.Context, functionID string) (*models.Function, error) {
	query := `
		SELECT id, owner_id, name, runtime, code, endpoint, invocation_count, created_at, updated_at
		FROM functions
		WHERE id = $1
	`
	return r.scanFunction(r.db.QueryRowContext(ctx, query, functionID))
}

// GetFunctionByOwnerAndName retrieves a function by owner and name
func (r *FunctionRepository) GetFunctionByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Function, error) {
	query := `
		SELECT id, owner_id, name, runtime, code, endpoint, invocation_count, created_at, updated_at
		FROM functions
		WHERE owner_id = $1 AND name = $2
	`
	return r.scanFunction(r.db.QueryRowContext(ctx, query, ownerID, name))
}

func (r *FunctionRepository) scanFunction(row *sql.Row) (*models.Function, error) {
	fn := &models.Function{}
	err := row.Scan(
		&fn.ID,
		&fn.OwnerID,
		&fn.Name,
		&fn.Runtime,
		&fn.Code,
		&fn.Endpoint,
		&fn.InvocationCount,
		&fn.CreatedAt,
		&fn.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return fn, nil
}

// ListFunctionsByOwner retrieves all functions belonging to a user
func (r *FunctionRepository) ListFunctionsByOwner(ctx context.Context, ownerID string) ([]*models.Function, error) {
	query := `
		SELECT id, owner_id, name, runtime, code, endpoint, invocation_count, created_at, updated_at
		FROM functions
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fns []*models.Function
	for rows.Next() {
		fn := &models.Function{}
		if err := rows.Scan(
			&fn.ID,
			&fn.OwnerID,
			&fn.Name,
			&fn.Runtime,
			&fn.Code,
			&fn.Endpoint,
			&fn.InvocationCount,
			&fn.CreatedAt,
			&fn.UpdatedAt,
		); err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}

	return fns, rows.Err()
}

// UpdateFunctionCode replaces a function's source code
func (r *FunctionRepository) UpdateFunctionCode(ctx context.Context, functionID, code string) error {
	query := `UPDATE functions SET code = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, code, time.Now(), functionID)
	return err
}

// IncrementInvocations atomically bumps a function's invocation counter and
// returns the new count.
func (r *FunctionRepository) IncrementInvocations(ctx context.Context, functionID string) (int64, error) {
	query := `
		UPDATE functions
		SET invocation_count = invocation_count + 1, updated_at = $1
		WHERE id = $2
		RETURNING invocation_count
	`
	var count int64
	err := r.db.QueryRowContext(ctx, query, time.Now(), functionID).Scan(&count)
	return count, err
}

// DeleteFunction removes a function
func (r *FunctionRepository) DeleteFunction(ctx context.Context, functionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM functions WHERE id = $1`, functionID)
	return err
}
