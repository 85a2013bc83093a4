package audio

import "github.com/fluentloop/stories/internal/elevenlabs"

// Preset names a voice configuration tuned to a use case.
type Preset string

const (
	// PresetNarration is warm and expressive for story reading.
	PresetNarration Preset = "narration"
	// PresetVocabulary is flat and maximally clear for word pronunciation drills.
	PresetVocabulary Preset = "vocabulary"
	// PresetInstructions is neutral and steady for exercise instructions.
	PresetInstructions Preset = "instructions"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

// presetSettings maps presets to voice settings. These numbers feed the
// audio cache key, so changing any of them invalidates cached narration.
var presetSettings = map[Preset]elevenlabs.VoiceSettings{
	PresetNarration: {
		Stability:       0.50,
		SimilarityBoost: 0.75,
		Style:           floatPtr(0.35),
		UseSpeakerBoost: boolPtr(true),
	},
	PresetVocabulary: {
		Stability:       0.90,
		SimilarityBoost: 0.85,
		Style:           floatPtr(0.0),
	},
	PresetInstructions: {
		Stability:       0.75,
		SimilarityBoost: 0.75,
		Style:           floatPtr(0.1),
	},
}

// settingsFor resolves a preset, defaulting to narration for unknown names.
func settingsFor(preset Preset) elevenlabs.VoiceSettings {
	if s, ok := presetSettings[preset]; ok {
		return s
	}
	return presetSettings[PresetNarration]
}
