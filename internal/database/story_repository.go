package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/stories/internal/models"
)

// StoryRepository handles story-related database operations
type StoryRepository struct {
	db *DB
}

// NewStoryRepository creates a new StoryRepository
func NewStoryRepository(db *DB) *StoryRepository {
	return &StoryRepository{db: db}
}

// Create inserts a new story record
func (r *StoryRepository) Create(ctx context.Context, story *models.StoryRecord) error {
	query := `
		INSERT INTO stories (
			id, title, content, level, genre, word_count, reading_minutes,
			vocabulary, model_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		story.ID, story.Title, story.Content, story.Level, story.Genre,
		story.WordCount, story.ReadingMinutes, story.VocabularyJSON,
		story.ModelUsed, story.CreatedAt,
	)

	return err
}

// GetByID retrieves a story by ID
func (r *StoryRepository) GetByID(ctx context.Context, storyID uuid.UUID) (*models.StoryRecord, error) {
	query := `
		SELECT id, title, content, level, genre, word_count, reading_minutes,
			vocabulary, model_used, image_url, image_path, image_model,
			image_style, image_prompt, created_at, updated_at
		FROM stories WHERE id = $1
	`

	story := &models.StoryRecord{}
	err := r.db.QueryRowContext(ctx, query, storyID).Scan(
		&story.ID, &story.Title, &story.Content, &story.Level, &story.Genre,
		&story.WordCount, &story.ReadingMinutes, &story.VocabularyJSON,
		&story.ModelUsed, &story.ImageURL, &story.ImagePath, &story.ImageModel,
		&story.ImageStyle, &story.ImagePrompt, &story.CreatedAt, &story.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("story not found")
	}

	return story, err
}

// UpdateImage attaches a persisted illustration to a story record.
func (r *StoryRepository) UpdateImage(ctx context.Context, storyID uuid.UUID, imageURL, imagePath, imageModel, imageStyle, imagePrompt string) error {
	query := `
		UPDATE stories
		SET image_url = $1, image_path = $2, image_model = $3,
			image_style = $4, image_prompt = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.db.ExecContext(ctx, query,
		imageURL, imagePath, imageModel, imageStyle, imagePrompt,
		time.Now().UTC(), storyID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("story not found")
	}
	return nil
}

// ListImagePaths returns every storage path referenced by a story record.
// Used for orphan reconciliation against the object listing.
func (r *StoryRepository) ListImagePaths(ctx context.Context) ([]string, error) {
	query := `SELECT image_path FROM stories WHERE image_path IS NOT NULL`

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

// ListRecent retrieves the most recent stories, newest first.
func (r *StoryRepository) ListRecent(ctx context.Context, limit int) ([]*models.StoryRecord, error) {
	query := `
		SELECT id, title, content, level, genre, word_count, reading_minutes,
			vocabulary, model_used, image_url, image_path, image_model,
			image_style, image_prompt, created_at, updated_at
		FROM stories
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []*models.StoryRecord
	for rows.Next() {
		story := &models.StoryRecord{}
		err := rows.Scan(
			&story.ID, &story.Title, &story.Content, &story.Level, &story.Genre,
			&story.WordCount, &story.ReadingMinutes, &story.VocabularyJSON,
			&story.ModelUsed, &story.ImageURL, &story.ImagePath, &story.ImageModel,
			&story.ImageStyle, &story.ImagePrompt, &story.CreatedAt, &story.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}

	return stories, rows.Err()
}
