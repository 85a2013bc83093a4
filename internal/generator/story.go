package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluentloop/stories/internal/models"
	"github.com/fluentloop/stories/internal/openrouter"
)

// CompletionClient is the gateway surface the generators depend on.
type CompletionClient interface {
	Complete(ctx context.Context, req *openrouter.CompletionRequest) (*openrouter.CompletionResponse, error)
}

// ValidationError is a local contract violation in model output or caller
// input. Never retryable: the input contract was violated, not a transient
// condition.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// storyPayload is the structured JSON the gateway is asked to produce.
type storyPayload struct {
	Title      string                   `json:"title"`
	Content    string                   `json:"content"`
	Vocabulary []models.VocabularyEntry `json:"vocabulary"`
}

// StoryGenerator drives the gateway through an ordered model chain and
// validates the structured output. State-free per call.
type StoryGenerator struct {
	client           CompletionClient
	modelChain       []string
	vocabPercentage  int
	defaultWordCount int
}

// NewStoryGenerator creates a story generator. modelChain is tried in order
// (primary, fallback, tertiary).
func NewStoryGenerator(client CompletionClient, modelChain []string, vocabPercentage, defaultWordCount int) *StoryGenerator {
	return &StoryGenerator{
		client:           client,
		modelChain:       modelChain,
		vocabPercentage:  vocabPercentage,
		defaultWordCount: defaultWordCount,
	}
}

// Generate produces a story for the request, walking the model chain until
// one model succeeds. Auth errors abort the chain immediately; every other
// failure advances to the next model.
func (g *StoryGenerator) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GeneratedStory, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	wordCount := req.WordCount
	if wordCount == 0 {
		wordCount = g.defaultWordCount
	}

	chain := g.modelChain
	if req.Model != "" {
		chain = append([]string{req.Model}, chain...)
	}

	systemPrompt := buildStorySystemPrompt(req.Level, g.vocabPercentage)
	userPrompt := buildStoryUserPrompt(req, wordCount)
	temperature := 0.8

	var lastErr error
	for _, model := range chain {
		resp, err := g.client.Complete(ctx, &openrouter.CompletionRequest{
			Model: model,
			Messages: []openrouter.Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			MaxTokens:   wordCount * 8,
			Temperature: &temperature,
			ResponseFormat: &openrouter.ResponseFormat{
				Type:       "json_schema",
				JSONSchema: json.RawMessage(storySchema),
			},
		})
		if err != nil {
			if openrouter.IsAuthError(err) {
				log.Error().Err(err).Str("model", model).Msg("Auth error, aborting model chain")
				return nil, fmt.Errorf("story generation aborted: %w", err)
			}
			log.Warn().Err(err).Str("model", model).Msg("Model failed, trying next")
			lastErr = err
			continue
		}

		story, err := g.parseStory(resp, req, wordCount)
		if err != nil {
			log.Warn().Err(err).Str("model", model).Msg("Model output invalid, trying next")
			lastErr = err
			continue
		}
		return story, nil
	}

	return nil, fmt.Errorf("story generation failed after trying %d models: %v", len(chain), lastErr)
}

// parseStory parses and validates a completion into a GeneratedStory.
func (g *StoryGenerator) parseStory(resp *openrouter.CompletionResponse, req *models.GenerationRequest, requested int) (*models.GeneratedStory, error) {
	var payload storyPayload
	if err := json.Unmarshal([]byte(resp.Content()), &payload); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed JSON output: %v", err)}
	}
	if err := validateStory(&payload); err != nil {
		return nil, err
	}

	generated := countWords(payload.Content)
	// Model output length is inherently approximate; deviation beyond
	// [0.5x, 2x] of target is logged but never fails the call.
	if requested > 0 && (generated < requested/2 || generated > requested*2) {
		log.Warn().
			Int("requested", requested).
			Int("generated", generated).
			Msg("Generated word count far from target")
	}

	return &models.GeneratedStory{
		Title:          payload.Title,
		Content:        payload.Content,
		Level:          req.Level,
		Genre:          req.Genre,
		WordCount:      generated,
		ReadingMinutes: readingMinutes(generated),
		Vocabulary:     payload.Vocabulary,
		Metadata: models.GenerationMetadata{
			ModelUsed:        resp.Model,
			GeneratedAt:      time.Now().UTC(),
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// validateStory enforces the strict output contract: non-empty title and
// body, and a translation plus pronunciation on every vocabulary entry.
// A single incomplete entry fails the whole call; the reader UI assumes
// both fields exist.
func validateStory(p *storyPayload) error {
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{Reason: "story title is empty"}
	}
	if strings.TrimSpace(p.Content) == "" {
		return &ValidationError{Reason: "story content is empty"}
	}
	for i, entry := range p.Vocabulary {
		if strings.TrimSpace(entry.Word) == "" {
			return &ValidationError{Reason: fmt.Sprintf("vocabulary entry %d has no word", i)}
		}
		if strings.TrimSpace(entry.Translation) == "" {
			return &ValidationError{Reason: fmt.Sprintf("vocabulary entry %q missing translation", entry.Word)}
		}
		if strings.TrimSpace(entry.Pronunciation) == "" {
			return &ValidationError{Reason: fmt.Sprintf("vocabulary entry %q missing pronunciation", entry.Word)}
		}
	}
	return nil
}

// countWords returns the whitespace-separated word count of s.
func countWords(s string) int {
	return len(strings.Fields(s))
}

// readingMinutes estimates reading time at 200 words per minute, minimum 1.
func readingMinutes(words int) int {
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
