package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluentloop/stories/internal/models"
	"github.com/fluentloop/stories/internal/openrouter"
)

// ImageRequest describes an illustration to generate for a story.
type ImageRequest struct {
	StoryContent string
	Level        models.CEFRLevel
	Genre        models.Genre
	Style        string
	AspectRatio  string
}

// ImageGenerator drives the gateway through a two-model fallback and degrades
// to a placeholder image on total exhaustion. Image generation is a
// non-critical enhancement: its terminal failure mode is a flagged
// placeholder, never a hard error.
type ImageGenerator struct {
	client         CompletionClient
	modelChain     []string
	placeholderURL string
	timeout        time.Duration
}

// NewImageGenerator creates an image generator with the given model pair.
func NewImageGenerator(client CompletionClient, modelChain []string, placeholderURL string, timeout time.Duration) *ImageGenerator {
	return &ImageGenerator{
		client:         client,
		modelChain:     modelChain,
		placeholderURL: placeholderURL,
		timeout:        timeout,
	}
}

// Generate produces an illustration for the request. Request violations fail
// immediately with no network call; gateway exhaustion returns a placeholder
// result with IsPlaceholder set. Only auth errors propagate, aborting the
// chain.
func (g *ImageGenerator) Generate(ctx context.Context, req *ImageRequest) (*models.ImageGenerationResult, error) {
	if err := validateImageRequest(req); err != nil {
		return nil, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := buildImagePrompt(req)

	for _, model := range g.modelChain {
		resp, err := g.client.Complete(ctx, &openrouter.CompletionRequest{
			Model: model,
			Messages: []openrouter.Message{
				{Role: "user", Content: prompt},
			},
		})
		if err != nil {
			if openrouter.IsAuthError(err) {
				log.Error().Err(err).Str("model", model).Msg("Auth error, aborting image model chain")
				return nil, fmt.Errorf("image generation aborted: %w", err)
			}
			log.Warn().Err(err).Str("model", model).Msg("Image model failed, trying next")
			continue
		}

		dataURI := strings.TrimSpace(resp.Content())
		if !strings.HasPrefix(dataURI, "data:image/") {
			log.Warn().Str("model", model).Msg("Image model returned no image payload, trying next")
			continue
		}

		return &models.ImageGenerationResult{
			Success:     true,
			URL:         dataURI,
			Prompt:      prompt,
			Model:       resp.Model,
			GeneratedAt: time.Now().UTC(),
		}, nil
	}

	log.Warn().
		Int("models_tried", len(g.modelChain)).
		Msg("All image models exhausted, using placeholder")

	return &models.ImageGenerationResult{
		Success:       true,
		URL:           g.placeholderURL,
		IsPlaceholder: true,
		Prompt:        prompt,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// validateImageRequest checks the request before any network call is made.
func validateImageRequest(req *ImageRequest) error {
	if len(strings.TrimSpace(req.StoryContent)) < 10 {
		return &ValidationError{Reason: "story content must be at least 10 characters"}
	}
	if !req.Level.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("invalid CEFR level %q", req.Level)}
	}
	if !req.Genre.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("invalid genre %q", req.Genre)}
	}
	return nil
}
