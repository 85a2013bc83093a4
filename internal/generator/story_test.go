package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fluentloop/stories/internal/models"
	"github.com/fluentloop/stories/internal/openrouter"
)

// scriptedClient replays a fixed sequence of responses/errors and records
// which models were asked.
type scriptedClient struct {
	responses []*openrouter.CompletionResponse
	errs      []error
	models    []string
}

func (c *scriptedClient) Complete(ctx context.Context, req *openrouter.CompletionRequest) (*openrouter.CompletionResponse, error) {
	i := len(c.models)
	c.models = append(c.models, req.Model)
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return nil, &openrouter.NetworkError{Err: context.Canceled}
}

func storyJSON(t *testing.T, words int, vocab []models.VocabularyEntry) string {
	t.Helper()
	payload := storyPayload{
		Title:      "The Lighthouse",
		Content:    strings.TrimSpace(strings.Repeat("word ", words)),
		Vocabulary: vocab,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func completionWith(model, content string) *openrouter.CompletionResponse {
	return &openrouter.CompletionResponse{
		Model: model,
		Choices: []openrouter.Choice{
			{Message: openrouter.Message{Role: "assistant", Content: content}},
		},
		Usage: openrouter.Usage{PromptTokens: 100, CompletionTokens: 400, TotalTokens: 500},
	}
}

func validVocab() []models.VocabularyEntry {
	return []models.VocabularyEntry{
		{Word: "lighthouse", Translation: "faro", Pronunciation: "LYT-hows", Definition: "a tower with a light", Difficulty: 4},
	}
}

var baseRequest = models.GenerationRequest{Level: models.LevelB1, Genre: models.GenreAdventure, WordCount: 300}

func TestGenerate_FirstModelSucceeds(t *testing.T) {
	client := &scriptedClient{
		responses: []*openrouter.CompletionResponse{completionWith("chain/primary", storyJSON(t, 300, validVocab()))},
	}
	gen := NewStoryGenerator(client, []string{"chain/primary", "chain/fallback"}, 10, 300)

	req := baseRequest
	story, err := gen.Generate(context.Background(), &req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(client.models) != 1 {
		t.Errorf("gateway calls = %d, want 1", len(client.models))
	}
	if story.Metadata.ModelUsed != "chain/primary" {
		t.Errorf("ModelUsed = %q", story.Metadata.ModelUsed)
	}
	if story.WordCount != 300 {
		t.Errorf("WordCount = %d, want 300", story.WordCount)
	}
	if story.ReadingMinutes != 2 {
		t.Errorf("ReadingMinutes = %d, want 2", story.ReadingMinutes)
	}
	if story.Metadata.TotalTokens != 500 {
		t.Errorf("TotalTokens = %d, want 500", story.Metadata.TotalTokens)
	}
}

func TestGenerate_FallsBackToSecondModel(t *testing.T) {
	client := &scriptedClient{
		errs: []error{&openrouter.APIError{Status: 429, Message: "rate limited"}},
		responses: []*openrouter.CompletionResponse{
			nil,
			completionWith("chain/fallback", storyJSON(t, 300, validVocab())),
		},
	}
	gen := NewStoryGenerator(client, []string{"chain/primary", "chain/fallback", "chain/tertiary"}, 10, 300)

	req := baseRequest
	story, err := gen.Generate(context.Background(), &req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(client.models) != 2 {
		t.Fatalf("gateway calls = %d, want 2", len(client.models))
	}
	if client.models[0] != "chain/primary" || client.models[1] != "chain/fallback" {
		t.Errorf("models tried = %v", client.models)
	}
	if story.Metadata.ModelUsed != "chain/fallback" {
		t.Errorf("ModelUsed = %q, want the fallback model", story.Metadata.ModelUsed)
	}
}

func TestGenerate_ExhaustsChain(t *testing.T) {
	client := &scriptedClient{
		errs: []error{
			&openrouter.APIError{Status: 503, Type: "model_not_available", Message: "down"},
			&openrouter.TimeoutError{},
			&openrouter.APIError{Status: 500, Message: "boom"},
		},
	}
	gen := NewStoryGenerator(client, []string{"a", "b", "c"}, 10, 300)

	req := baseRequest
	_, err := gen.Generate(context.Background(), &req)
	if err == nil {
		t.Fatal("Generate() error = nil, want exhaustion error")
	}
	if len(client.models) != 3 {
		t.Errorf("gateway calls = %d, want 3 (every model tried once)", len(client.models))
	}
	if !strings.Contains(err.Error(), "3 models") {
		t.Errorf("error %q should name the number of models tried", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q should carry the last underlying failure", err)
	}
}

func TestGenerate_AuthErrorShortCircuits(t *testing.T) {
	client := &scriptedClient{
		errs: []error{&openrouter.APIError{Status: 401, Message: "invalid key"}},
	}
	gen := NewStoryGenerator(client, []string{"a", "b", "c"}, 10, 300)

	req := baseRequest
	_, err := gen.Generate(context.Background(), &req)
	if err == nil {
		t.Fatal("Generate() error = nil, want auth abort")
	}
	if len(client.models) != 1 {
		t.Errorf("gateway calls = %d, want 1 (auth failure must not burn the chain)", len(client.models))
	}
	var apiErr *openrouter.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsAuthError() {
		t.Errorf("error %v should unwrap to an auth error", err)
	}
}

func TestGenerate_ModelOverridePrepended(t *testing.T) {
	client := &scriptedClient{
		responses: []*openrouter.CompletionResponse{completionWith("user/preferred", storyJSON(t, 300, validVocab()))},
	}
	gen := NewStoryGenerator(client, []string{"chain/primary"}, 10, 300)

	req := baseRequest
	req.Model = "user/preferred"
	if _, err := gen.Generate(context.Background(), &req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if client.models[0] != "user/preferred" {
		t.Errorf("first model tried = %q, want the override", client.models[0])
	}
}

func TestGenerate_VocabularyContract(t *testing.T) {
	tests := []struct {
		name  string
		vocab []models.VocabularyEntry
	}{
		{"missing translation", []models.VocabularyEntry{{Word: "faro", Pronunciation: "FAH-ro"}}},
		{"missing pronunciation", []models.VocabularyEntry{{Word: "faro", Translation: "lighthouse"}}},
		{"empty word", []models.VocabularyEntry{{Translation: "x", Pronunciation: "y"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{
				responses: []*openrouter.CompletionResponse{completionWith("a", storyJSON(t, 300, tt.vocab))},
			}
			gen := NewStoryGenerator(client, []string{"a"}, 10, 300)

			req := baseRequest
			_, err := gen.Generate(context.Background(), &req)
			if err == nil {
				t.Fatal("incomplete vocabulary entry must fail the call")
			}
		})
	}
}

func TestGenerate_MalformedJSONAdvancesChain(t *testing.T) {
	client := &scriptedClient{
		responses: []*openrouter.CompletionResponse{
			completionWith("a", "this is not json"),
			completionWith("b", storyJSON(t, 300, validVocab())),
		},
	}
	gen := NewStoryGenerator(client, []string{"a", "b"}, 10, 300)

	req := baseRequest
	story, err := gen.Generate(context.Background(), &req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if story.Metadata.ModelUsed != "b" {
		t.Errorf("ModelUsed = %q, want the second model", story.Metadata.ModelUsed)
	}
}

func TestGenerate_WordCountDeviationIsNotFatal(t *testing.T) {
	// 40 words against a 300-word target is far outside [0.5x, 2x] and must
	// still succeed.
	client := &scriptedClient{
		responses: []*openrouter.CompletionResponse{completionWith("a", storyJSON(t, 40, validVocab()))},
	}
	gen := NewStoryGenerator(client, []string{"a"}, 10, 300)

	req := baseRequest
	story, err := gen.Generate(context.Background(), &req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if story.WordCount != 40 {
		t.Errorf("WordCount = %d, want 40 (actual, not requested)", story.WordCount)
	}
}

func TestGenerate_InvalidRequest(t *testing.T) {
	client := &scriptedClient{}
	gen := NewStoryGenerator(client, []string{"a"}, 10, 300)

	req := models.GenerationRequest{Level: "Z9", Genre: models.GenreMystery}
	_, err := gen.Generate(context.Background(), &req)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %T (%v), want *ValidationError", err, err)
	}
	if len(client.models) != 0 {
		t.Errorf("gateway calls = %d, want 0 for invalid input", len(client.models))
	}
}

func TestReadingMinutes(t *testing.T) {
	tests := []struct {
		words, want int
	}{
		{0, 1}, {50, 1}, {200, 1}, {201, 2}, {400, 2}, {1000, 5},
	}
	for _, tt := range tests {
		if got := readingMinutes(tt.words); got != tt.want {
			t.Errorf("readingMinutes(%d) = %d, want %d", tt.words, got, tt.want)
		}
	}
}
