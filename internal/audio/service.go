package audio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/fluentloop/stories/internal/elevenlabs"
	"github.com/fluentloop/stories/internal/models"
)

const (
	// narrationValidity is the cache window for generated narration. A year:
	// identical inputs always reproduce equivalent audio, and generation is
	// metered per character.
	narrationValidity = 365 * 24 * time.Hour
	// recordingValidity is the shorter window for ephemeral user recordings.
	recordingValidity = 24 * time.Hour

	audioCacheControl = "public, max-age=31536000, immutable"
	audioContentType  = "audio/mpeg"
)

// TTSClient is the synthesis surface the service depends on.
type TTSClient interface {
	Synthesize(ctx context.Context, voiceID, text, modelID string, settings elevenlabs.VoiceSettings) ([]byte, error)
}

// ObjectStore is the object storage surface the service depends on.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType, cacheControl string, contentLength int64) error
	PublicURL(key string) string
}

// CacheStore is the persistent cache index the service depends on.
type CacheStore interface {
	GetByHash(ctx context.Context, contentHash string) (*models.AudioCacheEntry, error)
	Upsert(ctx context.Context, entry *models.AudioCacheEntry) error
	IncrementAccess(ctx context.Context, contentHash string) error
}

// Service generates narration audio with content-addressed caching. The
// cache is the dominant cost control: synthesis is metered per character, so
// identical (text, voice, settings) tuples must never generate twice within
// the validity window. Concurrent identical requests are coalesced per key.
type Service struct {
	tts   TTSClient
	store ObjectStore
	cache CacheStore

	hot   *gocache.Cache
	group singleflight.Group

	voiceID      string
	model        string
	language     string
	environment  string
	cacheEnabled bool
}

// NewService creates an audio service. cache may be nil to disable caching
// (every request then regenerates).
func NewService(tts TTSClient, store ObjectStore, cache CacheStore, voiceID, model, language, environment string) *Service {
	return &Service{
		tts:          tts,
		store:        store,
		cache:        cache,
		hot:          gocache.New(15*time.Minute, 30*time.Minute),
		voiceID:      voiceID,
		model:        model,
		language:     language,
		environment:  environment,
		cacheEnabled: cache != nil,
	}
}

// GenerateNarration synthesizes (or retrieves from cache) narration for the
// given text using a named voice preset.
func (s *Service) GenerateNarration(ctx context.Context, text string, preset Preset) (*models.AudioProcessingResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("audio: text is empty")
	}

	settings := settingsFor(preset)
	key := cacheKey(text, s.voiceID, s.language, s.model, settings)

	if s.cacheEnabled {
		if result := s.lookupCache(ctx, key); result != nil {
			return result, nil
		}
	}

	// Coalesce concurrent identical requests: the first caller generates,
	// the rest share its result.
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.generateAndPersist(ctx, key, text, preset, settings)
	})
	if err != nil {
		return nil, err
	}

	result := v.(*models.AudioProcessingResult)
	if shared {
		log.Debug().Str("content_hash", key).Msg("Narration request coalesced with in-flight generation")
	}
	return result, nil
}

// SaveUserRecording persists a user-submitted pronunciation recording with a
// short validity window and a scheduled auto-deletion timestamp.
func (s *Service) SaveUserRecording(ctx context.Context, userID uuid.UUID, recording []byte, mimeType string) (*models.AudioCacheEntry, error) {
	if len(recording) == 0 {
		return nil, fmt.Errorf("audio: recording is empty")
	}

	sum := sha256.Sum256(recording)
	hash := hex.EncodeToString(sum[:])
	path := fmt.Sprintf("audio/recordings/%s/%s", userID, hash)

	if err := s.store.Upload(ctx, path, bytes.NewReader(recording), mimeType, "", int64(len(recording))); err != nil {
		return nil, fmt.Errorf("audio: upload recording: %w", err)
	}

	now := time.Now().UTC()
	deleteAfter := now.Add(recordingValidity)
	entry := &models.AudioCacheEntry{
		ID:          uuid.New(),
		ContentHash: hash,
		StoragePath: path,
		PublicURL:   s.store.PublicURL(path),
		ValidUntil:  deleteAfter,
		DeleteAfter: &deleteAfter,
		CreatedAt:   now,
	}

	if s.cacheEnabled {
		if err := s.cache.Upsert(ctx, entry); err != nil {
			return nil, fmt.Errorf("audio: record recording metadata: %w", err)
		}
	}

	return entry, nil
}

// lookupCache checks the in-memory hot layer, then the persistent index.
// Returns nil on miss or expiry.
func (s *Service) lookupCache(ctx context.Context, key string) *models.AudioProcessingResult {
	if cached, ok := s.hot.Get(key); ok {
		result := cached.(*models.AudioProcessingResult)
		hit := *result
		hit.FromCache = true
		return &hit
	}

	entry, err := s.cache.GetByHash(ctx, key)
	if err != nil {
		// Cache failures degrade to regeneration, never to a hard error.
		log.Warn().Err(err).Msg("Audio cache lookup failed, regenerating")
		return nil
	}
	if entry == nil || entry.Expired(time.Now()) {
		return nil
	}

	if err := s.cache.IncrementAccess(ctx, key); err != nil {
		log.Debug().Err(err).Msg("Failed to bump audio cache access counter")
	}

	result := &models.AudioProcessingResult{
		URL:         entry.PublicURL,
		StoragePath: entry.StoragePath,
		Duration:    entry.Duration,
		FromCache:   true,
		Voice:       s.voiceID,
		Model:       s.model,
		GeneratedAt: entry.CreatedAt,
	}
	s.hot.Set(key, result, gocache.DefaultExpiration)
	return result
}

func (s *Service) generateAndPersist(ctx context.Context, key, text string, preset Preset, settings elevenlabs.VoiceSettings) (*models.AudioProcessingResult, error) {
	audioBytes, err := s.tts.Synthesize(ctx, s.voiceID, text, s.model, settings)
	placeholder := false
	if err != nil {
		if s.environment == "production" {
			return nil, fmt.Errorf("audio: synthesis failed: %w", err)
		}
		log.Warn().Err(err).Msg("TTS failed, using silent placeholder audio")
		audioBytes = silentWAV(estimateDuration(text))
		placeholder = true
	}

	now := time.Now().UTC()
	duration := estimateDuration(text)
	path := fmt.Sprintf("audio/%s/%s.mp3", preset, key)

	if err := s.store.Upload(ctx, path, bytes.NewReader(audioBytes), audioContentType, audioCacheControl, int64(len(audioBytes))); err != nil {
		return nil, fmt.Errorf("audio: upload failed: %w", err)
	}

	publicURL := s.store.PublicURL(path)

	result := &models.AudioProcessingResult{
		URL:         publicURL,
		StoragePath: path,
		Duration:    duration,
		Placeholder: placeholder,
		Voice:       s.voiceID,
		Model:       s.model,
		GeneratedAt: now,
	}

	// Placeholder audio is never cached: the next request should try the
	// provider again.
	if s.cacheEnabled && !placeholder {
		entry := &models.AudioCacheEntry{
			ID:          uuid.New(),
			ContentHash: key,
			StoragePath: path,
			PublicURL:   publicURL,
			Duration:    duration,
			ValidUntil:  now.Add(narrationValidity),
			AccessCount: 1,
			CreatedAt:   now,
		}
		if err := s.cache.Upsert(ctx, entry); err != nil {
			log.Warn().Err(err).Msg("Failed to record audio cache entry")
		} else {
			s.hot.Set(key, result, gocache.DefaultExpiration)
		}
	}

	log.Info().
		Str("content_hash", key).
		Str("path", path).
		Int("audio_bytes", len(audioBytes)).
		Bool("placeholder", placeholder).
		Msg("Narration generated")

	return result, nil
}

// cacheKey hashes normalized text together with every input that affects the
// audio bytes: voice, language, model and the numeric voice settings.
func cacheKey(text, voiceID, language, model string, settings elevenlabs.VoiceSettings) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))

	style := 0.0
	if settings.Style != nil {
		style = *settings.Style
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%.2f|%.2f|%.2f",
		normalized, voiceID, language, model,
		settings.Stability, settings.SimilarityBoost, style)
	return hex.EncodeToString(h.Sum(nil))
}
