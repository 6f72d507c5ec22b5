// app_repository.go implements AppRepository, providing database queries for
// creating, listing, updating, and deleting applications. Env vars are stored
// as a JSONB column and (de)serialised here so callers only see map[string]string.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
)

// AppRepository handles app database operations
type AppRepository struct {
	db *sql.DB
}

// NewAppRepository creates a new AppRepository
func NewAppRepository(db *sql.DB) *AppRepository {
	return &AppRepository{db: db}
}

// CreateApp creates a new app in pending status
func (r *AppRepository) CreateApp(ctx context.Context, app *models.App) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	app.Status = models.AppStatusPending
	app.CreatedAt = time.Now()
	app.UpdatedAt = time.Now()

	envJSON, err := marshalEnvVars(app.EnvVars)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO apps (id, owner_id, name, description, source_type, source_ref, status, url, env_vars, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		app.ID,
		app.OwnerID,
		app.Name,
		app.Description,
		app.SourceType,
		app.SourceRef,
		app.Status,
		app.URL,
		envJSON,
		app.CreatedAt,
		app.UpdatedAt,
	)

	return err
}

// GetAppByID retrieves an app by ID
func (r *AppRepository) GetAppByID(ctx context.Context, appID string) (*models.App, error) {
	query := `
		SELECT id, owner_id, name, description, source_type, source_ref, status, url, env_vars, created_at, updated_at
		FROM apps
		WHERE id = $1
	`
	return scanApp(r.db.QueryRowContext(ctx, query, appID))
}

// GetAppByOwnerAndName retrieves an app by owner and name
func (r *AppRepository) GetAppByOwnerAndName(ctx context.Context, ownerID, name string) (*models.App, error) {
	query := `
		SELECT id, owner_id, name, description, source_type, source_ref, status, url, env_vars, created_at, updated_at
		FROM apps
		WHERE owner_id = $1 AND name = $2
	`
	return scanApp(r.db.QueryRowContext(ctx, query, ownerID, name))
}

func scanApp(row *sql.Row) (*models.App, error) {
	app := &models.App{}
	var envJSON []byte
	err := row.Scan(
		&app.ID,
		&app.OwnerID,
		&app.Name,
		&app.Description,
		&app.SourceType,
		&app.SourceRef,
		&app.Status,
		&app.URL,
		&envJSON,
		&app.CreatedAt,
		&app.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if err := unmarshalEnvVars(envJSON, &app.EnvVars); err != nil {
		return nil, err
	}

	return app, nil
}

// ListAppsByOwner retrieves all apps belonging to a user
func (r *AppRepository) ListAppsByOwner(ctx context.Context, ownerID string) ([]*models.App, error) {
	query := `
		SELECT id, owner_id, name, description, source_type, source_ref, status, url, env_vars, created_at, updated_at
		FROM apps
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApps(rows)
}

// ListAllApps retrieves every app on the platform, newest first
func (r *AppRepository) ListAllApps(ctx context.Context) ([]*models.App, error) {
	query := `
		SELECT id, owner_id, name, description, source_type, source_ref, status, url, env_vars, created_at, updated_at
		FROM apps
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApps(rows)
}

func collectApps(rows *sql.Rows) ([]*models.App, error) {
	var apps []*models.App
	for rows.Next() {
		app := &models.App{}
		var envJSON []byte
		if err := rows.Scan(
			&app.ID,
			&app.OwnerID,
			&app.Name,
			&app.Description,
			&app.SourceType,
			&app.SourceRef,
			&app.Status,
			&app.URL,
			&envJSON,
			&app.CreatedAt,
			&app.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := unmarshalEnvVars(envJSON, &app.EnvVars); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// CountAppsByOwner returns how many apps a user currently owns
func (r *AppRepository) CountAppsByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM apps WHERE owner_id = $1`, ownerID).Scan(&count)
	return count, err
}

// UpdateApp updates the mutable fields of an app
func (r *AppRepository) UpdateApp(ctx context.Context, app *models.App) error {
	app.UpdatedAt = time.Now()

	envJSON, err := marshalEnvVars(app.EnvVars)
	if err != nil {
		return err
	}

	query := `
		UPDATE apps
		SET description = $1, source_ref = $2, env_vars = $3, updated_at = $4
		WHERE id = $5
	`
	_, err = r.db.ExecContext(ctx, query, app.Description, app.SourceRef, envJSON, app.UpdatedAt, app.ID)
	return err
}

// UpdateAppStatus sets an app's status, and its public URL when one is provided.
// A nil url leaves the stored URL untouched.
func (r *AppRepository) UpdateAppStatus(ctx context.Context, appID, status string, url *string) error {
	var err error
	if url != nil {
		query := `UPDATE apps SET status = $1, url = $2, updated_at = $3 WHERE id = $4`
		_, err = r.db.ExecContext(ctx, query, status, *url, time.Now(), appID)
	} else {
		query := `UPDATE apps SET status = $1, updated_at = $2 WHERE id = $3`
		_, err = r.db.ExecContext(ctx, query, status, time.Now(), appID)
	}
	return err
}

// DeleteApp removes an app. Deployments and log entries cascade.
func (r *AppRepository) DeleteApp(ctx context.Context, appID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM apps WHERE id = $1`, appID)
	return err
}

func marshalEnvVars(env map[string]string) ([]byte, error) {
	if env == nil {
		env = map[string]string{}
	}
	return json.Marshal(env)
}

func unmarshalEnvVars(data []byte, dst *map[string]string) error {
	if len(data) == 0 {
		*dst = map[string]string{}
		return nil
	}
	return json.Unmarshal(data, dst)
}
