package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fluentloop/stories/internal/generator"
	"github.com/fluentloop/stories/internal/models"
)

// StoryGenerator produces the story content. Story generation is the
// contract: its failure propagates.
type StoryGenerator interface {
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.GeneratedStory, error)
}

// ImageGenerator produces the illustration. Best-effort decoration: its
// failure is isolated.
type ImageGenerator interface {
	Generate(ctx context.Context, req *generator.ImageRequest) (*models.ImageGenerationResult, error)
}

// ImagePersister promotes an ephemeral image to durable storage.
type ImagePersister interface {
	SaveStoryImage(ctx context.Context, storyID uuid.UUID, result *models.ImageGenerationResult, req *generator.ImageRequest, promptText string) (*models.ImageStorageInfo, error)
}

// StoryCreator writes the story record that owns the generated content.
type StoryCreator interface {
	Create(ctx context.Context, story *models.StoryRecord) error
}

// Orchestrator composes story generation, image generation and persistence.
// The invariant it enforces: an image-side fault of any kind never fails an
// otherwise successful story request.
type Orchestrator struct {
	stories        StoryGenerator
	images         ImageGenerator
	persister      ImagePersister
	records        StoryCreator
	storageEnabled bool
}

// New creates an orchestrator. persister and records may be nil when durable
// storage is disabled for the deployment.
func New(stories StoryGenerator, images ImageGenerator, persister ImagePersister, records StoryCreator, storageEnabled bool) *Orchestrator {
	return &Orchestrator{
		stories:        stories,
		images:         images,
		persister:      persister,
		records:        records,
		storageEnabled: storageEnabled,
	}
}

// GenerateStoryWithImage generates the story first (fatal on failure), then
// the illustration (isolated), then attempts persistence (isolated).
func (o *Orchestrator) GenerateStoryWithImage(ctx context.Context, req *models.GenerationRequest) (*models.CombinedResponse, error) {
	start := time.Now()

	story, err := o.stories.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	storyGeneratedAt := time.Now().UTC()

	resp := &models.CombinedResponse{
		Story: story,
		Metadata: models.CombinedMetadata{
			StoryGeneratedAt: storyGeneratedAt,
			StorageProvider:  o.storageProvider(),
		},
	}

	storyID := o.createRecord(ctx, story)
	resp.StoryID = storyID

	var imageReq *generator.ImageRequest
	if req.WantsImage() {
		imageReq = &generator.ImageRequest{
			StoryContent: story.Content,
			Level:        req.Level,
			Genre:        req.Genre,
			Style:        req.ImageStyle,
			AspectRatio:  req.AspectRatio,
		}
		image, err := o.images.Generate(ctx, imageReq)
		if err != nil {
			// Isolated: the response still resolves with the story alone.
			log.Warn().Err(err).Msg("Image generation failed, returning story without image")
		} else {
			imageGeneratedAt := time.Now().UTC()
			resp.Image = image
			resp.Metadata.ImageGeneratedAt = &imageGeneratedAt
		}
	}

	o.persistImage(ctx, resp, imageReq, storyID)

	resp.Metadata.TotalDuration = time.Since(start)
	return resp, nil
}

// GenerateParallel runs story and image generation concurrently, trading
// prompt quality (the image cannot reference final story content) for
// latency. The join is settled: an image-side failure never aborts the
// story side.
func (o *Orchestrator) GenerateParallel(ctx context.Context, req *models.GenerationRequest) (*models.CombinedResponse, error) {
	start := time.Now()

	var (
		story    *models.GeneratedStory
		storyErr error
		image    *models.ImageGenerationResult
		imageErr error

		imageReq *generator.ImageRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		story, storyErr = o.stories.Generate(gctx, req)
		return nil
	})

	if req.WantsImage() {
		imageReq = &generator.ImageRequest{
			StoryContent: bestGuessContent(req),
			Level:        req.Level,
			Genre:        req.Genre,
			Style:        req.ImageStyle,
			AspectRatio:  req.AspectRatio,
		}
		g.Go(func() error {
			image, imageErr = o.images.Generate(gctx, imageReq)
			return nil
		})
	}

	// Both goroutines swallow their errors, so Wait only joins.
	_ = g.Wait()

	if storyErr != nil {
		return nil, storyErr
	}
	storyGeneratedAt := time.Now().UTC()

	resp := &models.CombinedResponse{
		Story: story,
		Metadata: models.CombinedMetadata{
			StoryGeneratedAt: storyGeneratedAt,
			StorageProvider:  o.storageProvider(),
		},
	}

	storyID := o.createRecord(ctx, story)
	resp.StoryID = storyID

	if imageErr != nil {
		log.Warn().Err(imageErr).Msg("Parallel image generation failed, returning story without image")
	} else if image != nil {
		imageGeneratedAt := time.Now().UTC()
		resp.Image = image
		resp.Metadata.ImageGeneratedAt = &imageGeneratedAt
	}

	o.persistImage(ctx, resp, imageReq, storyID)

	resp.Metadata.TotalDuration = time.Since(start)
	return resp, nil
}

// createRecord writes the story row so the image has an owner to attach to.
// Failure is non-fatal: the caller still gets the generated story, but
// persistence is skipped.
func (o *Orchestrator) createRecord(ctx context.Context, story *models.GeneratedStory) *uuid.UUID {
	if o.records == nil {
		return nil
	}

	vocabJSON, err := json.Marshal(story.Vocabulary)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal vocabulary, story not recorded")
		return nil
	}

	record := &models.StoryRecord{
		ID:             uuid.New(),
		Title:          story.Title,
		Content:        story.Content,
		Level:          story.Level,
		Genre:          story.Genre,
		WordCount:      story.WordCount,
		ReadingMinutes: story.ReadingMinutes,
		VocabularyJSON: vocabJSON,
		ModelUsed:      story.Metadata.ModelUsed,
		CreatedAt:      time.Now().UTC(),
	}

	if err := o.records.Create(ctx, record); err != nil {
		log.Warn().Err(err).Msg("Failed to record story, persistence skipped")
		return nil
	}
	return &record.ID
}

// persistImage attempts durable persistence when the image is real (not a
// placeholder) and the story has an identity. Failure falls back to the
// ephemeral base64 image rather than failing the request.
func (o *Orchestrator) persistImage(ctx context.Context, resp *models.CombinedResponse, imageReq *generator.ImageRequest, storyID *uuid.UUID) {
	image := resp.Image
	if image == nil || !image.Success || image.IsPlaceholder {
		return
	}
	if !o.storageEnabled || o.persister == nil || storyID == nil {
		return
	}

	if _, err := o.persister.SaveStoryImage(ctx, *storyID, image, imageReq, image.Prompt); err != nil {
		log.Warn().Err(err).Msg("Image persistence failed, serving ephemeral image")
		return
	}
	resp.Metadata.ImagePersisted = true
}

func (o *Orchestrator) storageProvider() models.StorageProvider {
	if o.storageEnabled && o.persister != nil {
		return models.StorageDurable
	}
	return models.StorageEphemeral
}

// bestGuessContent builds a content-agnostic stand-in for the image prompt
// in parallel mode, where the final story text is not yet available.
func bestGuessContent(req *models.GenerationRequest) string {
	theme := req.Theme
	if theme == "" {
		theme = "an everyday scene"
	}
	return fmt.Sprintf("A %s story for %s level language learners about %s.", req.Genre, req.Level, theme)
}
