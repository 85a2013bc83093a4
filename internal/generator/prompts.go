package generator

import (
	"fmt"
	"strings"

	"github.com/fluentloop/stories/internal/models"
)

// levelDescriptions maps CEFR levels to linguistic-complexity guidance used in
// the story system prompt.
var levelDescriptions = map[models.CEFRLevel]string{
	models.LevelA1: "beginner level: very short simple sentences, present tense, the 1000 most common words, concrete everyday topics",
	models.LevelA2: "elementary level: short sentences, simple past and future, common connectors (and, but, because), familiar topics",
	models.LevelB1: "intermediate level: compound sentences, all common tenses, some idiomatic expressions, abstract topics introduced gently",
	models.LevelB2: "upper-intermediate level: complex sentences, passive voice, conditionals, nuanced vocabulary, implied meaning",
	models.LevelC1: "advanced level: sophisticated structures, low-frequency vocabulary, register shifts, subtle humour and irony",
	models.LevelC2: "mastery level: native-like prose, literary devices, specialised vocabulary, layered meaning",
}

// genreStyleCues maps genres to tone guidance for the user prompt.
var genreStyleCues = map[models.Genre]string{
	models.GenreAdventure:   "fast-paced with a clear quest and physical obstacles",
	models.GenreMystery:     "a puzzle revealed gradually, with clues the reader can follow",
	models.GenreRomance:     "warm, character-driven, focused on a developing relationship",
	models.GenreSciFi:       "grounded speculative technology with human consequences",
	models.GenreFantasy:     "a coherent magical world with consistent rules",
	models.GenreDrama:       "emotional conflict between believable characters",
	models.GenreComedy:      "light, situational humour without wordplay that defies translation",
	models.GenreHistorical:  "a vivid period setting with accurate everyday detail",
	models.GenreThriller:    "mounting tension and short, urgent scenes",
	models.GenreSliceOfLife: "quiet everyday moments with gentle observation",
}

// storySchema is the JSON schema sent as response_format to constrain the
// gateway output. Vocabulary translation and pronunciation are required
// fields; the strict contract is enforced again in validateStory.
const storySchema = `{
  "name": "generated_story",
  "strict": true,
  "schema": {
    "type": "object",
    "properties": {
      "title": {"type": "string"},
      "content": {"type": "string"},
      "vocabulary": {
        "type": "array",
        "items": {
          "type": "object",
          "properties": {
            "word": {"type": "string"},
            "part_of_speech": {"type": "string"},
            "definition": {"type": "string"},
            "translation": {"type": "string"},
            "pronunciation": {"type": "string"},
            "example_sentence": {"type": "string"},
            "difficulty": {"type": "integer", "minimum": 1, "maximum": 10}
          },
          "required": ["word", "part_of_speech", "definition", "translation", "pronunciation", "example_sentence", "difficulty"]
        }
      }
    },
    "required": ["title", "content", "vocabulary"]
  }
}`

// buildStorySystemPrompt encodes the CEFR level description and the target
// vocabulary-extraction percentage.
func buildStorySystemPrompt(level models.CEFRLevel, vocabPercentage int) string {
	var b strings.Builder
	b.WriteString("You are a language-learning story writer. Write engaging stories for learners at ")
	b.WriteString(string(level))
	b.WriteString(" (")
	b.WriteString(levelDescriptions[level])
	b.WriteString(").\n")
	fmt.Fprintf(&b, "Extract roughly %d%% of the story's words as vocabulary entries, choosing the words a learner at this level is most likely to not know.\n", vocabPercentage)
	b.WriteString("Every vocabulary entry must include a translation and a pronunciation guide; entries without both are invalid.\n")
	b.WriteString("Respond only with JSON matching the requested schema.")
	return b.String()
}

// buildStoryUserPrompt encodes genre, word count and optional theme.
func buildStoryUserPrompt(req *models.GenerationRequest, wordCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s story of about %d words", req.Genre, wordCount)
	if cue, ok := genreStyleCues[req.Genre]; ok {
		fmt.Fprintf(&b, " (%s)", cue)
	}
	if req.Theme != "" {
		fmt.Fprintf(&b, " on the theme of %q", req.Theme)
	}
	b.WriteString(".")
	return b.String()
}
