package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/stories/internal/generator"
	"github.com/fluentloop/stories/internal/models"
)

type fakeStoryGen struct {
	story *models.GeneratedStory
	err   error
	calls int
}

func (f *fakeStoryGen) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GeneratedStory, error) {
	f.calls++
	return f.story, f.err
}

type fakeImageGen struct {
	result *models.ImageGenerationResult
	err    error
	calls  int
	gotReq *generator.ImageRequest
}

func (f *fakeImageGen) Generate(ctx context.Context, req *generator.ImageRequest) (*models.ImageGenerationResult, error) {
	f.calls++
	f.gotReq = req
	return f.result, f.err
}

type fakePersister struct {
	err   error
	calls int
}

func (f *fakePersister) SaveStoryImage(ctx context.Context, storyID uuid.UUID, result *models.ImageGenerationResult, req *generator.ImageRequest, promptText string) (*models.ImageStorageInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	info := &models.ImageStorageInfo{
		Path:        "stories/b1/fantasy/x.png",
		PublicURL:   "https://cdn.test/stories/b1/fantasy/x.png",
		PersistedAt: time.Now().UTC(),
	}
	result.URL = info.PublicURL
	result.Storage = info
	return info, nil
}

type fakeRecorder struct {
	err   error
	calls int
}

func (f *fakeRecorder) Create(ctx context.Context, story *models.StoryRecord) error {
	f.calls++
	return f.err
}

func testStory() *models.GeneratedStory {
	return &models.GeneratedStory{
		Title:     "The Bridge",
		Content:   "A story about a bridge in the fog.",
		Level:     models.LevelB1,
		Genre:     models.GenreMystery,
		WordCount: 8,
		Metadata:  models.GenerationMetadata{ModelUsed: "chain/primary"},
	}
}

func realImage() *models.ImageGenerationResult {
	return &models.ImageGenerationResult{
		Success:     true,
		URL:         "data:image/png;base64,aW1n",
		Model:       "img/primary",
		GeneratedAt: time.Now().UTC(),
	}
}

func placeholderImage() *models.ImageGenerationResult {
	return &models.ImageGenerationResult{
		Success:       true,
		URL:           "https://cdn.test/placeholder.png",
		IsPlaceholder: true,
		GeneratedAt:   time.Now().UTC(),
	}
}

func genRequest() *models.GenerationRequest {
	return &models.GenerationRequest{Level: models.LevelB1, Genre: models.GenreMystery, WordCount: 300}
}

func TestGenerateStoryWithImage_Success(t *testing.T) {
	persister := &fakePersister{}
	recorder := &fakeRecorder{}
	images := &fakeImageGen{result: realImage()}
	orch := New(&fakeStoryGen{story: testStory()}, images, persister, recorder, true)

	resp, err := orch.GenerateStoryWithImage(context.Background(), genRequest())
	if err != nil {
		t.Fatalf("GenerateStoryWithImage() error = %v", err)
	}
	if resp.Story == nil || resp.Story.Title != "The Bridge" {
		t.Errorf("Story = %+v", resp.Story)
	}
	if resp.StoryID == nil {
		t.Error("StoryID should be set when recording succeeds")
	}
	if resp.Image == nil {
		t.Fatal("Image should be set")
	}
	if !resp.Metadata.ImagePersisted {
		t.Error("ImagePersisted should be true")
	}
	if resp.Metadata.StorageProvider != models.StorageDurable {
		t.Errorf("StorageProvider = %q, want durable", resp.Metadata.StorageProvider)
	}
	if resp.Metadata.ImageGeneratedAt == nil {
		t.Error("ImageGeneratedAt should be set")
	}
	if persister.calls != 1 || recorder.calls != 1 {
		t.Errorf("persister/recorder calls = %d/%d, want 1/1", persister.calls, recorder.calls)
	}
	// The image prompt must see the real story content in sequential mode.
	if images.gotReq.StoryContent != testStory().Content {
		t.Errorf("image request content = %q", images.gotReq.StoryContent)
	}
}

func TestGenerateStoryWithImage_StoryFailureIsFatal(t *testing.T) {
	images := &fakeImageGen{result: realImage()}
	orch := New(&fakeStoryGen{err: errors.New("all models exhausted")}, images, &fakePersister{}, &fakeRecorder{}, true)

	_, err := orch.GenerateStoryWithImage(context.Background(), genRequest())
	if err == nil {
		t.Fatal("story failure must propagate")
	}
	if images.calls != 0 {
		t.Errorf("image calls = %d, want 0 after story failure", images.calls)
	}
}

func TestGenerateStoryWithImage_ImageFailureIsolated(t *testing.T) {
	persister := &fakePersister{}
	orch := New(&fakeStoryGen{story: testStory()}, &fakeImageGen{err: errors.New("image gateway down")}, persister, &fakeRecorder{}, true)

	resp, err := orch.GenerateStoryWithImage(context.Background(), genRequest())
	if err != nil {
		t.Fatalf("image failure must not fail the request: %v", err)
	}
	if resp.Story == nil {
		t.Error("Story should still be populated")
	}
	if resp.Image != nil {
		t.Error("Image should be nil after image failure")
	}
	if resp.Metadata.ImageGeneratedAt != nil {
		t.Error("ImageGeneratedAt should be nil after image failure")
	}
	if persister.calls != 0 {
		t.Error("nothing to persist after image failure")
	}
}

func TestGenerateStoryWithImage_PlaceholderNotPersisted(t *testing.T) {
	persister := &fakePersister{}
	orch := New(&fakeStoryGen{story: testStory()}, &fakeImageGen{result: placeholderImage()}, persister, &fakeRecorder{}, true)

	resp, err := orch.GenerateStoryWithImage(context.Background(), genRequest())
	if err != nil {
		t.Fatalf("GenerateStoryWithImage() error = %v", err)
	}
	if resp.Image == nil || !resp.Image.IsPlaceholder {
		t.Fatal("placeholder image should be returned to the caller")
	}
	if persister.calls != 0 {
		t.Error("placeholder must never reach the persister")
	}
	if resp.Metadata.ImagePersisted {
		t.Error("ImagePersisted must stay false for placeholders")
	}
}

func TestGenerateStoryWithImage_PersistenceFailureFallsBackToEphemeral(t *testing.T) {
	persister := &fakePersister{err: errors.New("bucket unavailable")}
	orch := New(&fakeStoryGen{story: testStory()}, &fakeImageGen{result: realImage()}, persister, &fakeRecorder{}, true)

	resp, err := orch.GenerateStoryWithImage(context.Background(), genRequest())
	if err != nil {
		t.Fatalf("persistence failure must not fail the request: %v", err)
	}
	if resp.Image == nil {
		t.Fatal("Image should still be returned")
	}
	if resp.Metadata.ImagePersisted {
		t.Error("ImagePersisted must be false after persistence failure")
	}
	if resp.Image.URL != "data:image/png;base64,aW1n" {
		t.Errorf("URL = %q, want the ephemeral data URI kept", resp.Image.URL)
	}
}

func TestGenerateStoryWithImage_RecordFailureSkipsPersistence(t *testing.T) {
	persister := &fakePersister{}
	orch := New(&fakeStoryGen{story: testStory()}, &fakeImageGen{result: realImage()}, persister, &fakeRecorder{err: errors.New("insert failed")}, true)

	resp, err := orch.GenerateStoryWithImage(context.Background(), genRequest())
	if err != nil {
		t.Fatalf("record failure must not fail the request: %v", err)
	}
	if resp.StoryID != nil {
		t.Error("StoryID should be nil when recording fails")
	}
	if persister.calls != 0 {
		t.Error("persistence needs a story identity; must be skipped")
	}
	if resp.Image == nil {
		t.Error("ephemeral image should still be returned")
	}
}

func TestGenerateStoryWithImage_ImageNotRequested(t *testing.T) {
	images := &fakeImageGen{result: realImage()}
	orch := New(&fakeStoryGen{story: testStory()}, images, &fakePersister{}, &fakeRecorder{}, true)

	req := genRequest()
	noImage := false
	req.IncludeImage = &noImage

	resp, err := orch.GenerateStoryWithImage(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateStoryWithImage() error = %v", err)
	}
	if images.calls != 0 {
		t.Errorf("image calls = %d, want 0 when not requested", images.calls)
	}
	if resp.Image != nil {
		t.Error("Image should be nil when not requested")
	}
}

func TestGenerateStoryWithImage_StorageDisabled(t *testing.T) {
	persister := &fakePersister{}
	orch := New(&fakeStoryGen{story: testStory()}, &fakeImageGen{result: realImage()}, persister, &fakeRecorder{}, false)

	resp, err := orch.GenerateStoryWithImage(context.Background(), genRequest())
	if err != nil {
		t.Fatalf("GenerateStoryWithImage() error = %v", err)
	}
	if persister.calls != 0 {
		t.Error("persister must not be called with storage disabled")
	}
	if resp.Metadata.StorageProvider != models.StorageEphemeral {
		t.Errorf("StorageProvider = %q, want ephemeral", resp.Metadata.StorageProvider)
	}
}

func TestGenerateParallel_Success(t *testing.T) {
	images := &fakeImageGen{result: realImage()}
	orch := New(&fakeStoryGen{story: testStory()}, images, &fakePersister{}, &fakeRecorder{}, true)

	req := genRequest()
	req.Theme = "a lost letter"
	resp, err := orch.GenerateParallel(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateParallel() error = %v", err)
	}
	if resp.Story == nil || resp.Image == nil {
		t.Fatalf("resp = %+v, want both story and image", resp)
	}
	if !resp.Metadata.ImagePersisted {
		t.Error("ImagePersisted should be true")
	}
	// Parallel mode cannot see the final story text; the image prompt is
	// built from the request alone.
	if images.gotReq.StoryContent == testStory().Content {
		t.Error("parallel image request must not depend on generated content")
	}
}

func TestGenerateParallel_ImageFailureIsolated(t *testing.T) {
	orch := New(&fakeStoryGen{story: testStory()}, &fakeImageGen{err: errors.New("down")}, &fakePersister{}, &fakeRecorder{}, true)

	resp, err := orch.GenerateParallel(context.Background(), genRequest())
	if err != nil {
		t.Fatalf("image failure must not fail the parallel request: %v", err)
	}
	if resp.Story == nil || resp.Image != nil {
		t.Errorf("resp = %+v, want story without image", resp)
	}
}

func TestGenerateParallel_StoryFailureIsFatal(t *testing.T) {
	orch := New(&fakeStoryGen{err: errors.New("exhausted")}, &fakeImageGen{result: realImage()}, &fakePersister{}, &fakeRecorder{}, true)

	if _, err := orch.GenerateParallel(context.Background(), genRequest()); err == nil {
		t.Fatal("story failure must propagate in parallel mode too")
	}
}

func TestBestGuessContent(t *testing.T) {
	req := genRequest()
	req.Theme = "a midnight train"
	got := bestGuessContent(req)
	if got != "A mystery story for B1 level language learners about a midnight train." {
		t.Errorf("bestGuessContent() = %q", got)
	}

	req.Theme = ""
	got = bestGuessContent(req)
	if got != "A mystery story for B1 level language learners about an everyday scene." {
		t.Errorf("bestGuessContent() = %q", got)
	}
}
