package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CEFRLevel is a Common European Framework of Reference proficiency tier.
type CEFRLevel string

const (
	LevelA1 CEFRLevel = "A1"
	LevelA2 CEFRLevel = "A2"
	LevelB1 CEFRLevel = "B1"
	LevelB2 CEFRLevel = "B2"
	LevelC1 CEFRLevel = "C1"
	LevelC2 CEFRLevel = "C2"
)

// CEFRLevels lists all valid levels in ascending order.
var CEFRLevels = []CEFRLevel{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// Valid reports whether the level is one of the six CEFR codes.
func (l CEFRLevel) Valid() bool {
	switch l {
	case LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
		return true
	}
	return false
}

// Genre is a story genre.
type Genre string

const (
	GenreAdventure   Genre = "adventure"
	GenreMystery     Genre = "mystery"
	GenreRomance     Genre = "romance"
	GenreSciFi       Genre = "science_fiction"
	GenreFantasy     Genre = "fantasy"
	GenreDrama       Genre = "drama"
	GenreComedy      Genre = "comedy"
	GenreHistorical  Genre = "historical"
	GenreThriller    Genre = "thriller"
	GenreSliceOfLife Genre = "slice_of_life"
)

// Genres lists all valid story genres.
var Genres = []Genre{
	GenreAdventure, GenreMystery, GenreRomance, GenreSciFi, GenreFantasy,
	GenreDrama, GenreComedy, GenreHistorical, GenreThriller, GenreSliceOfLife,
}

// Valid reports whether the genre is one of the ten supported genres.
func (g Genre) Valid() bool {
	for _, known := range Genres {
		if g == known {
			return true
		}
	}
	return false
}

// GenerationRequest is a caller-constructed request for a generated story.
// It has no identity and is consumed once.
type GenerationRequest struct {
	Level        CEFRLevel `json:"level"`
	Genre        Genre     `json:"genre"`
	WordCount    int       `json:"word_count"`
	Theme        string    `json:"theme,omitempty"`
	Model        string    `json:"model,omitempty"`         // explicit model override, tried before the configured chain
	IncludeImage *bool     `json:"include_image,omitempty"` // nil means true
	ImageStyle   string    `json:"image_style,omitempty"`
	AspectRatio  string    `json:"aspect_ratio,omitempty"`
}

// WantsImage reports whether an illustration should be generated (default true).
func (r *GenerationRequest) WantsImage() bool {
	return r.IncludeImage == nil || *r.IncludeImage
}

// Validate checks level, genre and word count bounds.
func (r *GenerationRequest) Validate() error {
	if !r.Level.Valid() {
		return fmt.Errorf("invalid CEFR level %q", r.Level)
	}
	if !r.Genre.Valid() {
		return fmt.Errorf("invalid genre %q", r.Genre)
	}
	if r.WordCount < 0 {
		return fmt.Errorf("word count must be non-negative, got %d", r.WordCount)
	}
	return nil
}

// VocabularyEntry is a single extracted vocabulary item. Translation and
// Pronunciation are required: the reader UI assumes both exist.
type VocabularyEntry struct {
	Word          string `json:"word"`
	PartOfSpeech  string `json:"part_of_speech"`
	Definition    string `json:"definition"`
	Translation   string `json:"translation"`
	Pronunciation string `json:"pronunciation"`
	Example       string `json:"example_sentence"`
	Difficulty    int    `json:"difficulty"` // 1-10
}

// GenerationMetadata records how a story was produced.
type GenerationMetadata struct {
	ModelUsed        string    `json:"model_used"`
	GeneratedAt      time.Time `json:"generated_at"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
}

// GeneratedStory is the output of the story generator. Never mutated after
// creation; owned by the caller until persisted to the stories table.
type GeneratedStory struct {
	Title          string             `json:"title"`
	Content        string             `json:"content"`
	Level          CEFRLevel          `json:"level"`
	Genre          Genre              `json:"genre"`
	WordCount      int                `json:"word_count"`
	ReadingMinutes int                `json:"reading_minutes"`
	Vocabulary     []VocabularyEntry  `json:"vocabulary"`
	Metadata       GenerationMetadata `json:"metadata"`
}

// ImageStorageInfo is the storage sub-record added when an image is persisted.
type ImageStorageInfo struct {
	Path        string    `json:"path"`
	PublicURL   string    `json:"public_url"`
	PersistedAt time.Time `json:"persisted_at"`
}

// ImageGenerationResult is the output of the image generator. The persistence
// service promotes URL from an inline data URI to a durable public URL and
// fills Storage.
type ImageGenerationResult struct {
	Success       bool              `json:"success"`
	URL           string            `json:"url"` // data URI until persisted, then durable URL
	IsPlaceholder bool              `json:"is_placeholder"`
	Prompt        string            `json:"prompt"`
	Model         string            `json:"model"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Storage       *ImageStorageInfo `json:"storage,omitempty"`
}

// StorageProvider tags where a combined response's image lives.
type StorageProvider string

const (
	StorageDurable   StorageProvider = "durable"
	StorageEphemeral StorageProvider = "ephemeral"
)

// CombinedMetadata is the orchestrator's per-request accounting.
type CombinedMetadata struct {
	StoryGeneratedAt time.Time       `json:"story_generated_at"`
	ImageGeneratedAt *time.Time      `json:"image_generated_at,omitempty"`
	TotalDuration    time.Duration   `json:"total_duration_ms"`
	ImagePersisted   bool            `json:"image_persisted"`
	StorageProvider  StorageProvider `json:"storage_provider"`
}

// CombinedResponse is the orchestrator output: the story, an optional image,
// and stage metadata. Image is nil whenever image generation failed or was
// not requested; that is never an error.
type CombinedResponse struct {
	StoryID  *uuid.UUID             `json:"story_id,omitempty"`
	Story    *GeneratedStory        `json:"story"`
	Image    *ImageGenerationResult `json:"image,omitempty"`
	Metadata CombinedMetadata       `json:"metadata"`
}

// StoryRecord is a persisted story row in the stories table.
type StoryRecord struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Level          CEFRLevel  `json:"level"`
	Genre          Genre      `json:"genre"`
	WordCount      int        `json:"word_count"`
	ReadingMinutes int        `json:"reading_minutes"`
	VocabularyJSON []byte     `json:"-"`
	ModelUsed      string     `json:"model_used"`
	ImageURL       *string    `json:"image_url,omitempty"`
	ImagePath      *string    `json:"image_path,omitempty"`
	ImageModel     *string    `json:"image_model,omitempty"`
	ImageStyle     *string    `json:"image_style,omitempty"`
	ImagePrompt    *string    `json:"image_prompt,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// AudioCacheEntry is a content-addressed row in the storage_metadata table.
// ContentHash covers normalized text, voice, language, model and voice
// settings; identical tuples resolve to the same entry.
type AudioCacheEntry struct {
	ID          uuid.UUID  `json:"id"`
	ContentHash string     `json:"content_hash"`
	StoragePath string     `json:"storage_path"`
	PublicURL   string     `json:"public_url"`
	Duration    float64    `json:"duration_seconds"`
	ValidUntil  time.Time  `json:"valid_until"`
	DeleteAfter *time.Time `json:"delete_after,omitempty"` // ephemeral user recordings only
	AccessCount int64      `json:"access_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the entry is past its validity window.
func (e *AudioCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ValidUntil)
}

// AudioProcessingResult is the audio service output.
type AudioProcessingResult struct {
	URL         string    `json:"url"`
	StoragePath string    `json:"storage_path"`
	Duration    float64   `json:"duration_seconds"`
	FromCache   bool      `json:"from_cache"`
	Placeholder bool      `json:"placeholder"`
	Voice       string    `json:"voice"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

// StorageStats is the aggregate image storage report.
type StorageStats struct {
	TotalObjects      int   `json:"total_objects"`
	TotalBytes        int64 `json:"total_bytes"`
	ReferencedObjects int   `json:"referenced_objects"`
	OrphanedObjects   int   `json:"orphaned_objects"`
}

// User represents a user in the system
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKey represents an API key for authentication
type APIKey struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	KeyHash   string    `json:"-"`
	Status    string    `json:"status"` // active, disabled
	CreatedAt time.Time `json:"created_at"`
}
