// log_repository.go implements LogRepository over sqlx, providing queries for
// app runtime log lines. Follows the same pattern as the other repositories
// but uses sqlx struct scanning since log rows map 1:1 onto a flat struct.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
)

// logRow mirrors the log_entries table for sqlx scanning
type logRow struct {
	ID        string    `db:"id"`
	AppID     string    `db:"app_id"`
	Level     string    `db:"level"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// LogRepository handles app runtime log database operations
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository creates a new LogRepository
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// InsertLogEntry stores one runtime log line for an app
func (r *LogRepository) InsertLogEntry(ctx context.Context, entry *models.LogEntry) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()
	if entry.Level == "" {
		entry.Level = "info"
	}

	query := `
		INSERT INTO log_entries (id, app_id, level, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.AppID,
		entry.Level,
		entry.Message,
		entry.CreatedAt,
	)
	return err
}

// ListLogsByApp retrieves up to limit most recent log lines for an app,
// newest first. An empty level matches all levels.
func (r *LogRepository) ListLogsByApp(ctx context.Context, appID, level string, limit int) ([]*models.LogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT id, app_id, level, message, created_at
		FROM log_entries
		WHERE app_id = $1 AND ($2 = '' OR level = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	var rows []logRow
	if err := r.db.SelectContext(ctx, &rows, query, appID, level, limit); err != nil {
		return nil, err
	}

	entries := make([]*models.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &models.LogEntry{
			ID:        row.ID,
			AppID:     row.AppID,
			Level:     row.Level,
			Message:   row.Message,
			CreatedAt: row.CreatedAt,
		})
	}
	return entries, nil
}

// ListLogsByOwner retrieves up to limit most recent log lines across every app
// the owner has, newest first. An empty level matches all levels.
func (r *LogRepository) ListLogsByOwner(ctx context.Context, ownerID, level string, limit int) ([]*models.LogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT l.id, l.app_id, l.level, l.message, l.created_at
		FROM log_entries l
		JOIN apps a ON a.id = l.app_id
		WHERE a.owner_id = $1 AND ($2 = '' OR l.level = $2)
		ORDER BY l.created_at DESC
		LIMIT $3
	`

	var rows []logRow
	if err := r.db.SelectContext(ctx, &rows, query, ownerID, level, limit); err != nil {
		return nil, err
	}

	entries := make([]*models.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &models.LogEntry{
			ID:        row.ID,
			AppID:     row.AppID,
			Level:     row.Level,
			Message:   row.Message,
			CreatedAt: row.CreatedAt,
		})
	}
	return entries, nil
}

// DeleteLogsByApp removes all runtime log lines for an app
func (r *LogRepository) DeleteLogsByApp(ctx context.Context, appID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM log_entries WHERE app_id = $1`, appID)
	return err
}
