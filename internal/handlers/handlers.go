package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/fluentloop/stories/internal/audio"
	"github.com/fluentloop/stories/internal/dictionary"
	"github.com/fluentloop/stories/internal/elevenlabs"
	"github.com/fluentloop/stories/internal/models"
)

// StoryOrchestrator is the generation surface handlers depend on.
type StoryOrchestrator interface {
	GenerateStoryWithImage(ctx context.Context, req *models.GenerationRequest) (*models.CombinedResponse, error)
	GenerateParallel(ctx context.Context, req *models.GenerationRequest) (*models.CombinedResponse, error)
}

// NarrationService generates or retrieves cached narration audio.
type NarrationService interface {
	GenerateNarration(ctx context.Context, text string, preset audio.Preset) (*models.AudioProcessingResult, error)
}

// StoryReader reads persisted stories.
type StoryReader interface {
	GetByID(ctx context.Context, storyID uuid.UUID) (*models.StoryRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*models.StoryRecord, error)
}

// StorageAdmin exposes image-storage reconciliation.
type StorageAdmin interface {
	CleanupOrphanedImages(ctx context.Context) (int, error)
	GetStorageStats(ctx context.Context) (*models.StorageStats, error)
}

// WordLookup resolves dictionary entries.
type WordLookup interface {
	Lookup(ctx context.Context, word string) (*dictionary.Word, error)
}

// VoiceLister lists available TTS voices.
type VoiceLister interface {
	Voices(ctx context.Context) ([]elevenlabs.Voice, error)
}

// Handler contains all HTTP handlers
type Handler struct {
	orchestrator StoryOrchestrator
	narration    NarrationService
	stories      StoryReader
	storageAdmin StorageAdmin
	words        WordLookup
	voices       VoiceLister
}

// NewHandler creates a new handler
func NewHandler(orchestrator StoryOrchestrator, narration NarrationService, stories StoryReader, storageAdmin StorageAdmin, words WordLookup, voices VoiceLister) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		narration:    narration,
		stories:      stories,
		storageAdmin: storageAdmin,
		words:        words,
		voices:       voices,
	}
}

// generateRequest wraps a GenerationRequest with the orchestration mode.
type generateRequest struct {
	models.GenerationRequest
	Parallel bool `json:"parallel,omitempty"`
}

// GenerateStory handles POST /v1/stories/generate
func (h *Handler) GenerateStory(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		resp *models.CombinedResponse
		err  error
	)
	if req.Parallel {
		resp, err = h.orchestrator.GenerateParallel(r.Context(), &req.GenerationRequest)
	} else {
		resp, err = h.orchestrator.GenerateStoryWithImage(r.Context(), &req.GenerationRequest)
	}
	if err != nil {
		log.Error().Err(err).Msg("Story generation failed")
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetStory handles GET /v1/stories/{id}
func (h *Handler) GetStory(w http.ResponseWriter, r *http.Request) {
	storyID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid story id")
		return
	}

	story, err := h.stories.GetByID(r.Context(), storyID)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "story not found")
		return
	}

	writeJSON(w, http.StatusOK, story)
}

// ListStories handles GET /v1/stories
func (h *Handler) ListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.ListRecent(r.Context(), 20)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list stories")
		writeJSONError(w, http.StatusInternalServerError, "failed to list stories")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"stories": stories})
}

// narrationRequest is the POST /v1/narration body.
type narrationRequest struct {
	Text   string       `json:"text"`
	Preset audio.Preset `json:"preset,omitempty"`
}

// GenerateNarration handles POST /v1/narration
func (h *Handler) GenerateNarration(w http.ResponseWriter, r *http.Request) {
	var req narrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Preset == "" {
		req.Preset = audio.PresetNarration
	}

	result, err := h.narration.GenerateNarration(r.Context(), req.Text, req.Preset)
	if err != nil {
		log.Error().Err(err).Msg("Narration generation failed")
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// LookupWord handles GET /v1/words/{word}
func (h *Handler) LookupWord(w http.ResponseWriter, r *http.Request) {
	word := mux.Vars(r)["word"]

	entry, err := h.words.Lookup(r.Context(), word)
	if err != nil {
		if errors.Is(err, dictionary.ErrWordNotFound) {
			writeJSONError(w, http.StatusNotFound, "word not found")
			return
		}
		log.Error().Err(err).Str("word", word).Msg("Dictionary lookup failed")
		writeJSONError(w, http.StatusBadGateway, "dictionary lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// ListVoices handles GET /v1/voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.voices.Voices(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Voice listing failed")
		writeJSONError(w, http.StatusBadGateway, "voice listing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

// StorageStats handles GET /v1/admin/storage/stats
func (h *Handler) StorageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.storageAdmin.GetStorageStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Storage stats failed")
		writeJSONError(w, http.StatusInternalServerError, "storage stats failed")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// CleanupStorage handles POST /v1/admin/storage/cleanup
func (h *Handler) CleanupStorage(w http.ResponseWriter, r *http.Request) {
	removed, err := h.storageAdmin.CleanupOrphanedImages(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Storage cleanup failed")
		writeJSONError(w, http.StatusInternalServerError, "storage cleanup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
