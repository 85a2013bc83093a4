package generator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fluentloop/stories/internal/models"
)

func TestStorySchemaIsValidJSON(t *testing.T) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(storySchema), &parsed); err != nil {
		t.Fatalf("storySchema is not valid JSON: %v", err)
	}
	if parsed["name"] != "generated_story" {
		t.Errorf("schema name = %v", parsed["name"])
	}
}

func TestBuildStorySystemPrompt(t *testing.T) {
	prompt := buildStorySystemPrompt(models.LevelC1, 15)
	if !strings.Contains(prompt, "C1") {
		t.Error("prompt should name the level")
	}
	if !strings.Contains(prompt, levelDescriptions[models.LevelC1]) {
		t.Error("prompt should carry the level description")
	}
	if !strings.Contains(prompt, "15%") {
		t.Error("prompt should carry the vocabulary percentage")
	}
	if !strings.Contains(prompt, "translation") || !strings.Contains(prompt, "pronunciation") {
		t.Error("prompt should state the strict vocabulary contract")
	}
}

func TestBuildStoryUserPrompt(t *testing.T) {
	req := &models.GenerationRequest{
		Level: models.LevelB2,
		Genre: models.GenreThriller,
		Theme: "a missing train",
	}
	prompt := buildStoryUserPrompt(req, 450)
	for _, fragment := range []string{"thriller", "450 words", `"a missing train"`} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q:\n%s", fragment, prompt)
		}
	}
}

func TestLevelAndGenreMapsAreComplete(t *testing.T) {
	for _, level := range models.CEFRLevels {
		if _, ok := levelDescriptions[level]; !ok {
			t.Errorf("no level description for %s", level)
		}
	}
	for _, genre := range models.Genres {
		if _, ok := genreStyleCues[genre]; !ok {
			t.Errorf("no style cue for genre %s", genre)
		}
		if _, ok := genreVisualCues[genre]; !ok {
			t.Errorf("no visual cue for genre %s", genre)
		}
	}
}
