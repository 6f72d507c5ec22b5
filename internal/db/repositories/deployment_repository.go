// deployment_repository.go implements DeploymentRepository, providing database
// queries for the deployment pipeline. Stage logs are stored as a Postgres
// text[] column and appended incrementally as the pipeline progresses.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
)

// DeploymentRepository handles deployment database operations
type DeploymentRepository struct {
	db *sql.DB
}

// NewDeploymentRepository creates a new DeploymentRepository
func NewDeploymentRepository(db *sql.DB) *DeploymentRepository {
	return &DeploymentRepository{db: db}
}

// CreateDeployment creates a new deployment in pending status
func (r *DeploymentRepository) CreateDeployment(ctx context.Context, d *models.Deployment) error {
	d.ID = uuid.New().String()
	d.Status = models.DeploymentStatusPending
	d.StartedAt = time.Now()
	if d.Logs == nil {
		d.Logs = []string{}
	}

	query := `
		INSERT INTO deployments (id, app_id, commit_sha, docker_image, status, logs, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.AppID,
		d.CommitSHA,
		d.DockerImage,
		d.Status,
		pq.Array(d.Logs),
		d.StartedAt,
		d.CompletedAt,
	)

	return err
}

// GetDeploymentByID retrieves a deployment by ID
func (r *DeploymentRepository) GetDeploymentByID(ctx context.Context, deploymentID string) (*models.Deployment, error) {
	query := `
		SELECT id, app_id, commit_sha, docker_image, status, logs, started_at, completed_at
		FROM deployments
		WHERE id = $1
	`

	d := &models.Deployment{}
	err := r.db.QueryRowContext(ctx, query, deploymentID).Scan(
		&d.ID,
		&d.AppID,
		&d.CommitSHA,
		&d.DockerImage,
		&d.Status,
		pq.Array(&d.Logs),
		&d.StartedAt,
		&d.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return d, nil
}

// ListDeploymentsByApp retrieves all deployments for an app, newest first
func (r *DeploymentRepository) ListDeploymentsByApp(ctx context.Context, appID string) ([]*models.Deployment, error) {
	query := `
		SELECT id, app_id, commit_sha, docker_image, status, logs, started_at, completed_at
		FROM deployments
		WHERE app_id = $1
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []*models.Deployment
	for rows.Next() {
		d := &models.Deployment{}
		if err := rows.Scan(
			&d.ID,
			&d.AppID,
			&d.CommitSHA,
			&d.DockerImage,
			&d.Status,
			pq.Array(&d.Logs),
			&d.StartedAt,
			&d.CompletedAt,
		); err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}

	return deployments, rows.Err()
}

// ListDeploymentsByOwner retrieves the most recent deployments across every
// app the owner has, newest first, capped at limit rows.
func (r *DeploymentRepository) ListDeploymentsByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Deployment, error) {
	if limit < 1 || limit > 50 {
		limit = 50
	}

	query := `
		SELECT d.id, d.app_id, d.commit_sha, d.docker_image, d.status, d.logs, d.started_at, d.completed_at
		FROM deployments d
		JOIN apps a ON a.id = d.app_id
		WHERE a.owner_id = $1
		ORDER BY d.started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []*models.Deployment
	for rows.Next() {
		d := &models.Deployment{}
		if err := rows.Scan(
			&d.ID,
			&d.AppID,
			&d.CommitSHA,
			&d.DockerImage,
			&d.Status,
			pq.Array(&d.Logs),
			&d.StartedAt,
			&d.CompletedAt,
		); err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}

	return deployments, rows.Err()
}

// MarkDeploying transitions a deployment from pending to deploying. Used by a
// pipeline worker when it picks the job up.
func (r *DeploymentRepository) MarkDeploying(ctx context.Context, deploymentID string) error {
	query := `UPDATE deployments SET status = $1 WHERE id = $2 AND status = $3`
	_, err := r.db.ExecContext(ctx, query, models.DeploymentStatusDeploying, deploymentID, models.DeploymentStatusPending)
	return err
}

// AppendLog appends one stage line to a deployment's logs
func (r *DeploymentRepository) AppendLog(ctx context.Context, deploymentID, line string) error {
	query := `UPDATE deployments SET logs = array_append(logs, $1) WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, line, deploymentID)
	return err
}

// MarkCompleted records the terminal status and completion time in a single
// UPDATE, so no reader can ever observe a terminal status without a
// completion timestamp or vice versa.
func (r *DeploymentRepository) MarkCompleted(ctx context.Context, deploymentID, status string) error {
	query := `UPDATE deployments SET status = $1, completed_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), deploymentID)
	return err
}

// CountDeployments returns the total number of deployments ever run
func (r *DeploymentRepository) CountDeployments(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deployments`).Scan(&count)
	return count, err
}
