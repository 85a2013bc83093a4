package imagestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fluentloop/stories/internal/generator"
	"github.com/fluentloop/stories/internal/models"
	"github.com/fluentloop/stories/internal/storage"
)

// maxImageBytes is the ceiling for a decoded image payload.
const maxImageBytes = 5 * 1024 * 1024

// imageCacheControl keeps persisted illustrations cached long-term; paths are
// timestamped so overwrites never serve stale content.
const imageCacheControl = "public, max-age=31536000, immutable"

// allowedMIMETypes maps accepted image MIME types to file extensions.
var allowedMIMETypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// Error codes for StorageError.
const (
	CodeInvalidResult       = "INVALID_RESULT"
	CodePlaceholderImage    = "PLACEHOLDER_IMAGE"
	CodeInvalidDataURI      = "INVALID_DATA_URI"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeUnsupportedType     = "UNSUPPORTED_TYPE"
	CodeUploadFailed        = "UPLOAD_FAILED"
	CodeURLResolutionFailed = "URL_RESOLUTION_FAILED"
	CodeDBUpdateFailed      = "DB_UPDATE_FAILED"
)

// StorageError is a typed image persistence failure. Retryable tells the
// caller whether repeating the operation can help: upload failures can be
// retried whole, URL-resolution failures need only re-resolution (the object
// already exists), validation failures never succeed on retry.
type StorageError struct {
	Code      string
	Retryable bool
	Message   string
	Err       error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("imagestore: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("imagestore: %s: %s", e.Code, e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ObjectStore is the object storage surface the service depends on.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType, cacheControl string, contentLength int64) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

// StoryStore is the record store surface the service depends on.
type StoryStore interface {
	UpdateImage(ctx context.Context, storyID uuid.UUID, imageURL, imagePath, imageModel, imageStyle, imagePrompt string) error
	ListImagePaths(ctx context.Context) ([]string, error)
}

// Service converts generated images into durable object storage and keeps the
// owning story record in sync, rolling back the upload when the record update
// fails.
type Service struct {
	store   ObjectStore
	stories StoryStore
}

// NewService creates an image persistence service.
func NewService(store ObjectStore, stories StoryStore) *Service {
	return &Service{store: store, stories: stories}
}

// SaveStoryImage persists the image in result to object storage and attaches
// it to the story record. On success it promotes result.URL to the durable
// URL and fills result.Storage. Placeholder results are rejected: there is
// nothing to persist.
func (s *Service) SaveStoryImage(ctx context.Context, storyID uuid.UUID, result *models.ImageGenerationResult, req *generator.ImageRequest, promptText string) (*models.ImageStorageInfo, error) {
	if result == nil || !result.Success {
		return nil, &StorageError{Code: CodeInvalidResult, Message: "image result is missing or unsuccessful"}
	}
	if result.IsPlaceholder {
		return nil, &StorageError{Code: CodePlaceholderImage, Message: "placeholder images are never persisted"}
	}

	payload, mimeType, err := decodeDataURI(result.URL)
	if err != nil {
		return nil, err
	}

	ext := allowedMIMETypes[mimeType]
	path := buildStoragePath(req.Level, req.Genre, storyID, ext)

	if err := s.store.Upload(ctx, path, bytes.NewReader(payload), mimeType, imageCacheControl, int64(len(payload))); err != nil {
		return nil, &StorageError{Code: CodeUploadFailed, Retryable: true, Message: "upload failed", Err: err}
	}

	publicURL := s.store.PublicURL(path)
	if publicURL == "" {
		// The object exists but is unreachable; the caller should retry
		// URL resolution, not re-upload.
		return nil, &StorageError{Code: CodeURLResolutionFailed, Retryable: true, Message: "could not resolve public URL for " + path}
	}

	if err := s.stories.UpdateImage(ctx, storyID, publicURL, path, result.Model, req.Style, truncatePrompt(promptText)); err != nil {
		// Roll back the upload so no orphaned object is left behind.
		// Rollback failure is logged, not escalated.
		if delErr := s.store.Delete(ctx, path); delErr != nil {
			log.Error().Err(delErr).Str("path", path).Msg("Rollback delete failed, object orphaned")
		}
		return nil, &StorageError{Code: CodeDBUpdateFailed, Retryable: true, Message: "story record update failed", Err: err}
	}

	info := &models.ImageStorageInfo{
		Path:        path,
		PublicURL:   publicURL,
		PersistedAt: time.Now().UTC(),
	}
	result.URL = publicURL
	result.Storage = info

	log.Info().
		Str("story_id", storyID.String()).
		Str("path", path).
		Int("size_bytes", len(payload)).
		Msg("Story image persisted")

	return info, nil
}

// CleanupOrphanedImages removes stored objects that no story record
// references and returns how many were deleted.
func (s *Service) CleanupOrphanedImages(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx, "stories/")
	if err != nil {
		return 0, fmt.Errorf("list objects: %w", err)
	}

	referenced, err := s.referencedPaths(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, obj := range objects {
		if referenced[obj.Key] {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			log.Warn().Err(err).Str("key", obj.Key).Msg("Failed to delete orphaned image")
			continue
		}
		removed++
	}

	log.Info().
		Int("total", len(objects)).
		Int("removed", removed).
		Msg("Orphaned image cleanup finished")

	return removed, nil
}

// GetStorageStats reports aggregate object counts and how many objects are
// referenced by a story record.
func (s *Service) GetStorageStats(ctx context.Context) (*models.StorageStats, error) {
	objects, err := s.store.List(ctx, "stories/")
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	referenced, err := s.referencedPaths(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.StorageStats{TotalObjects: len(objects)}
	for _, obj := range objects {
		stats.TotalBytes += obj.SizeBytes
		if referenced[obj.Key] {
			stats.ReferencedObjects++
		} else {
			stats.OrphanedObjects++
		}
	}

	return stats, nil
}

func (s *Service) referencedPaths(ctx context.Context) (map[string]bool, error) {
	paths, err := s.stories.ListImagePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list referenced paths: %w", err)
	}
	referenced := make(map[string]bool, len(paths))
	for _, p := range paths {
		referenced[p] = true
	}
	return referenced, nil
}

// decodeDataURI decodes a base64 image data URI, enforcing the MIME
// allow-list and the size ceiling.
func decodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", &StorageError{Code: CodeInvalidDataURI, Message: "image URL is not a data URI"}
	}

	rest := strings.TrimPrefix(uri, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return nil, "", &StorageError{Code: CodeInvalidDataURI, Message: "data URI is not base64 encoded"}
	}

	mimeType := rest[:sep]
	if _, ok := allowedMIMETypes[mimeType]; !ok {
		return nil, "", &StorageError{Code: CodeUnsupportedType, Message: fmt.Sprintf("unsupported image type %q", mimeType)}
	}

	encoded := rest[sep+len(";base64,"):]
	// Reject oversized payloads before decoding; base64 inflates by 4/3.
	if len(encoded) > maxImageBytes*4/3+4 {
		return nil, "", &StorageError{Code: CodeFileTooLarge, Message: fmt.Sprintf("image exceeds %d byte limit", maxImageBytes)}
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", &StorageError{Code: CodeInvalidDataURI, Message: "invalid base64 payload", Err: err}
	}
	if len(payload) > maxImageBytes {
		return nil, "", &StorageError{Code: CodeFileTooLarge, Message: fmt.Sprintf("image exceeds %d byte limit", maxImageBytes)}
	}

	return payload, mimeType, nil
}

// buildStoragePath partitions the object space by level and genre and
// suffixes story id plus timestamp, keeping it organized and auditable.
func buildStoragePath(level models.CEFRLevel, genre models.Genre, storyID uuid.UUID, ext string) string {
	return fmt.Sprintf("stories/%s/%s/%s_%d.%s",
		strings.ToLower(string(level)), genre, storyID, time.Now().Unix(), ext)
}

// truncatePrompt caps the prompt copy stored on the record at 1000 chars.
func truncatePrompt(prompt string) string {
	if len(prompt) <= 1000 {
		return prompt
	}
	return prompt[:1000]
}
