package database

import (
	"context"
	"database/sql"

	"github.com/fluentloop/stories/internal/models"
)

// AudioCacheRepository handles content-addressed audio cache rows in the
// storage_metadata table.
type AudioCacheRepository struct {
	db *DB
}

// NewAudioCacheRepository creates a new AudioCacheRepository
func NewAudioCacheRepository(db *DB) *AudioCacheRepository {
	return &AudioCacheRepository{db: db}
}

// GetByHash retrieves a cache entry by content hash. Returns (nil, nil) on a
// cache miss so callers don't have to treat miss as an error.
func (r *AudioCacheRepository) GetByHash(ctx context.Context, contentHash string) (*models.AudioCacheEntry, error) {
	query := `
		SELECT id, content_hash, storage_path, public_url, duration_seconds,
			valid_until, delete_after, access_count, created_at
		FROM storage_metadata
		WHERE content_hash = $1
	`

	entry := &models.AudioCacheEntry{}
	err := r.db.QueryRowContext(ctx, query, contentHash).Scan(
		&entry.ID, &entry.ContentHash, &entry.StoragePath, &entry.PublicURL,
		&entry.Duration, &entry.ValidUntil, &entry.DeleteAfter,
		&entry.AccessCount, &entry.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Upsert inserts or replaces a cache entry. Concurrent writers for the same
// content hash race to the same row; last write wins, which is acceptable
// because identical inputs produce interchangeable audio.
func (r *AudioCacheRepository) Upsert(ctx context.Context, entry *models.AudioCacheEntry) error {
	query := `
		INSERT INTO storage_metadata (
			id, content_hash, storage_path, public_url, duration_seconds,
			valid_until, delete_after, access_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (content_hash) DO UPDATE SET
			storage_path = EXCLUDED.storage_path,
			public_url = EXCLUDED.public_url,
			duration_seconds = EXCLUDED.duration_seconds,
			valid_until = EXCLUDED.valid_until,
			delete_after = EXCLUDED.delete_after
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ContentHash, entry.StoragePath, entry.PublicURL,
		entry.Duration, entry.ValidUntil, entry.DeleteAfter,
		entry.AccessCount, entry.CreatedAt,
	)

	return err
}

// IncrementAccess bumps the access counter for a cache hit.
func (r *AudioCacheRepository) IncrementAccess(ctx context.Context, contentHash string) error {
	query := `
		UPDATE storage_metadata
		SET access_count = access_count + 1
		WHERE content_hash = $1
	`

	_, err := r.db.ExecContext(ctx, query, contentHash)
	return err
}

// DeleteExpired removes entries whose scheduled deletion time has passed and
// returns their storage paths so the caller can remove the objects too.
func (r *AudioCacheRepository) DeleteExpired(ctx context.Context) ([]string, error) {
	query := `
		DELETE FROM storage_metadata
		WHERE delete_after IS NOT NULL AND delete_after < NOW()
		RETURNING storage_path
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}
