package generator

import (
	"fmt"
	"strings"

	"github.com/fluentloop/stories/internal/models"
)

// Narrative cue keywords pattern-matched from story text. Matching is
// case-insensitive on whole words; the first few hits per category are
// embedded in the image prompt so the illustration reflects the story.
var (
	settingKeywords = []string{
		"forest", "castle", "city", "village", "ocean", "sea", "mountain",
		"desert", "school", "market", "station", "island", "river", "garden",
		"library", "cafe", "beach", "cave", "ship", "train",
	}
	characterKeywords = []string{
		"boy", "girl", "man", "woman", "child", "children", "detective",
		"wizard", "captain", "teacher", "doctor", "traveler", "soldier",
		"king", "queen", "cat", "dog", "dragon", "robot", "bird",
	}
	actionKeywords = []string{
		"running", "discovered", "found", "escaped", "searching", "traveled",
		"built", "sailed", "flying", "climbing", "whispered", "explored",
		"waiting", "dancing", "cooking", "reading", "hiding",
	}
)

// genreVisualCues maps genres to visual styling guidance.
var genreVisualCues = map[models.Genre]string{
	models.GenreAdventure:   "dynamic wide shot, sense of movement and journey",
	models.GenreMystery:     "moody lighting, long shadows, fog, a hint of the unknown",
	models.GenreRomance:     "soft warm light, intimate framing, gentle colors",
	models.GenreSciFi:       "futuristic shapes, cool tones, subtle glow",
	models.GenreFantasy:     "magical atmosphere, luminous details, painterly style",
	models.GenreDrama:       "naturalistic lighting, expressive faces, muted tones",
	models.GenreComedy:      "playful composition, exaggerated expressions, bright accents",
	models.GenreHistorical:  "period-accurate clothing and architecture, aged palette",
	models.GenreThriller:    "high contrast, tight framing, tense atmosphere",
	models.GenreSliceOfLife: "everyday warmth, soft daylight, cozy detail",
}

// extractNarrativeCues pattern-matches setting, character and action keywords
// from the story text, at most three per category.
func extractNarrativeCues(content string) []string {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(content)) {
		words[strings.Trim(w, ".,!?;:\"'()")] = true
	}

	var cues []string
	for _, group := range [][]string{settingKeywords, characterKeywords, actionKeywords} {
		found := 0
		for _, kw := range group {
			if words[kw] {
				cues = append(cues, kw)
				found++
				if found == 3 {
					break
				}
			}
		}
	}
	return cues
}

// audienceDescription returns a CEFR-appropriate target-audience line.
func audienceDescription(level models.CEFRLevel) string {
	switch level {
	case models.LevelA1, models.LevelA2:
		return "for beginner language learners, friendly and inviting"
	case models.LevelB1, models.LevelB2:
		return "for intermediate language learners, engaging and realistic"
	default:
		return "for advanced language learners, sophisticated and evocative"
	}
}

// complexityGuidance ties composition and palette to the level band: simpler
// and brighter for A1-A2, more nuanced toward C2.
func complexityGuidance(level models.CEFRLevel) string {
	switch level {
	case models.LevelA1, models.LevelA2:
		return "simple composition, bright cheerful colors, minimal background detail"
	case models.LevelB1, models.LevelB2:
		return "balanced composition, natural color palette, moderate background detail"
	default:
		return "sophisticated composition, nuanced muted palette, rich layered detail"
	}
}

// buildImagePrompt assembles the single structured prompt for an
// illustration: narrative cues, audience, genre styling, and
// level-appropriate complexity guidance.
func buildImagePrompt(req *ImageRequest) string {
	var b strings.Builder
	b.WriteString("Educational story illustration")
	if cues := extractNarrativeCues(req.StoryContent); len(cues) > 0 {
		fmt.Fprintf(&b, " featuring %s", strings.Join(cues, ", "))
	}
	fmt.Fprintf(&b, ". %s. Style: %s. %s.",
		audienceDescription(req.Level),
		genreVisualCues[req.Genre],
		complexityGuidance(req.Level))
	if req.Style != "" {
		fmt.Fprintf(&b, " Art style: %s.", req.Style)
	}
	if req.AspectRatio != "" {
		fmt.Fprintf(&b, " Aspect ratio %s.", req.AspectRatio)
	}
	b.WriteString(" No text or lettering in the image.")
	return b.String()
}
