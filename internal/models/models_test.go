package models

import (
	"testing"
	"time"
)

func TestGenerationRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     GenerationRequest
		wantErr bool
	}{
		{"valid", GenerationRequest{Level: LevelB1, Genre: GenreMystery, WordCount: 300}, false},
		{"zero word count allowed", GenerationRequest{Level: LevelA1, Genre: GenreComedy}, false},
		{"invalid level", GenerationRequest{Level: "Z9", Genre: GenreMystery}, true},
		{"invalid genre", GenerationRequest{Level: LevelB1, Genre: "western"}, true},
		{"negative word count", GenerationRequest{Level: LevelB1, Genre: GenreMystery, WordCount: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWantsImage(t *testing.T) {
	req := GenerationRequest{}
	if !req.WantsImage() {
		t.Error("nil IncludeImage must default to true")
	}

	f := false
	req.IncludeImage = &f
	if req.WantsImage() {
		t.Error("explicit false must disable the image")
	}

	tr := true
	req.IncludeImage = &tr
	if !req.WantsImage() {
		t.Error("explicit true must enable the image")
	}
}

func TestAudioCacheEntryExpired(t *testing.T) {
	now := time.Now()
	entry := AudioCacheEntry{ValidUntil: now.Add(time.Hour)}
	if entry.Expired(now) {
		t.Error("entry within validity must not be expired")
	}
	if !entry.Expired(now.Add(2 * time.Hour)) {
		t.Error("entry past validity must be expired")
	}
}

func TestEnumValidators(t *testing.T) {
	for _, level := range CEFRLevels {
		if !level.Valid() {
			t.Errorf("%s should be valid", level)
		}
	}
	if CEFRLevel("b1").Valid() {
		t.Error("levels are case-sensitive")
	}

	for _, genre := range Genres {
		if !genre.Valid() {
			t.Errorf("%s should be valid", genre)
		}
	}
	if Genre("scifi").Valid() {
		t.Error("only the canonical genre names are valid")
	}
}
