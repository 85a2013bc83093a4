package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.DefaultWordCount != 300 {
		t.Errorf("DefaultWordCount = %d", cfg.DefaultWordCount)
	}
	if cfg.VocabPercentage != 10 {
		t.Errorf("VocabPercentage = %d", cfg.VocabPercentage)
	}
	if !cfg.StorageEnabled {
		t.Error("StorageEnabled should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MODEL_PRIMARY", "test/model")
	t.Setenv("REQUEST_TIMEOUT", "25s")
	t.Setenv("STORAGE_ENABLED", "false")
	t.Setenv("VOCAB_PERCENTAGE", "90")

	cfg := Load()
	if cfg.ModelPrimary != "test/model" {
		t.Errorf("ModelPrimary = %q", cfg.ModelPrimary)
	}
	if cfg.RequestTimeout != 25*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.StorageEnabled {
		t.Error("StorageEnabled override ignored")
	}
	if cfg.VocabPercentage != 50 {
		t.Errorf("VocabPercentage = %d, want clamp to 50", cfg.VocabPercentage)
	}
}

func TestModelChains(t *testing.T) {
	cfg := Load()

	story := cfg.StoryModels()
	if len(story) != 3 || story[0] != cfg.ModelPrimary || story[2] != cfg.ModelTertiary {
		t.Errorf("StoryModels() = %v", story)
	}

	image := cfg.ImageModels()
	if len(image) != 2 || image[0] != cfg.ImageModelPrimary {
		t.Errorf("ImageModels() = %v", image)
	}
}

func TestClampRange(t *testing.T) {
	tests := []struct {
		v, min, max, want int
	}{
		{5, 1, 50, 5},
		{0, 1, 50, 1},
		{99, 1, 50, 50},
	}
	for _, tt := range tests {
		if got := clampRange(tt.v, tt.min, tt.max); got != tt.want {
			t.Errorf("clampRange(%d, %d, %d) = %d, want %d", tt.v, tt.min, tt.max, got, tt.want)
		}
	}
}
