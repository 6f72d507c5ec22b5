// api_key_repository.go implements APIKeyRepository, providing database queries
// for creating, listing, looking up, and revoking API keys.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
)

// APIKeyRepository handles API key database operations
type APIKeyRepository struct {
	db *sql.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// CreateAPIKey creates a new API key
func (r *APIKeyRepository) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	key.ID = uuid.New().String()
	key.CreatedAt = time.Now()
	key.IsActive = true

	query := `
		INSERT INTO api_keys (id, user_id, name, secret, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.UserID,
		key.Name,
		key.Secret,
		key.IsActive,
		key.CreatedAt,
	)

	return err
}

// GetAPIKeyBySecret retrieves an API key by exact secret match. Only the
// unique index on the secret column is consulted, so lookup cost does not
// grow with the number of issued keys.
func (r *APIKeyRepository) GetAPIKeyBySecret(ctx context.Context, secret string) (*models.APIKey, error) {
	query := `
		SELECT id, user_id, name, secret, is_active, last_used_at, created_at
		FROM api_keys
		WHERE secret = $1
	`
	return r.scanAPIKey(r.db.QueryRowContext(ctx, query, secret))
}

// GetAPIKeyByID retrieves an API key by ID
func (r *APIKeyRepository) GetAPIKeyByID(ctx context.Context, keyID string) (*models.APIKey, error) {
	query := `
		SELECT id, user_id, name, secret, is_active, last_used_at, created_at
		FROM api_keys
		WHERE id = $1
	`
	return r.scanAPIKey(r.db.QueryRowContext(ctx, query, keyID))
}

func (r *APIKeyRepository) scanAPIKey(row *sql.Row) (*models.APIKey, error) {
	key := &models.APIKey{}
	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.Name,
		&key.Secret,
		&key.IsActive,
		&key.LastUsedAt,
		&key.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return key, nil
}

// ListAPIKeysByUser retrieves all API keys belonging to a user
func (r *APIKeyRepository) ListAPIKeysByUser(ctx context.Context, userID string) ([]*models.APIKey, error) {
	query := `
		SELECT id, user_id, name, secret, is_active, last_used_at, created_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key := &models.APIKey{}
		if err := rows.Scan(
			&key.ID,
			&key.UserID,
			&key.Name,
			&key.Secret,
			&key.IsActive,
			&key.LastUsedAt,
			&key.CreatedAt,
		); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// DeactivateAPIKey revokes an API key without deleting its record
func (r *APIKeyRepository) DeactivateAPIKey(ctx context.Context, keyID, userID string) error {
	query := `UPDATE api_keys SET is_active = false WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, keyID, userID)
	return err
}

// DeleteAPIKey removes an API key owned by the given user
func (r *APIKeyRepository) DeleteAPIKey(ctx context.Context, keyID, userID string) error {
	query := `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, keyID, userID)
	return err
}

// UpdateLastUsed records the time an API key last authenticated a request.
// Called asynchronously from the auth middleware so lookups stay on the hot path only.
func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, keyID string) error {
	query := `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), keyID)
	return err
}
