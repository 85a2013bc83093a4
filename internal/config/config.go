package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr string
	LogLevel string

	// Environment: development, staging, production. Placeholder audio is only
	// synthesized outside production.
	Environment string

	// Database
	DatabaseURL string

	// S3/Storage
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3PublicURL string
	// StorageEnabled gates durable image persistence; when false the
	// orchestrator serves ephemeral base64 images only.
	StorageEnabled bool

	// OpenRouter gateway
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	SiteURL           string // HTTP-Referer attribution header
	SiteTitle         string // X-Title attribution header
	RequestTimeout    time.Duration

	// Story generation
	ModelPrimary     string
	ModelFallback    string
	ModelTertiary    string
	DefaultWordCount int
	VocabPercentage  int // percent of story words extracted as vocabulary
	MaxRetries       int

	// Image generation
	ImageModelPrimary   string
	ImageModelFallback  string
	ImageTimeout        time.Duration
	PlaceholderImageURL string

	// ElevenLabs TTS
	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	TTSVoiceID        string
	TTSModel          string
	TTSVoiceName      string

	// WordsAPI dictionary
	WordsAPIKey     string
	WordsAPIBaseURL string

	// Auth/quota
	DefaultQuotaChars  int64
	DefaultQuotaPeriod string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		S3Endpoint:     getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("S3_BUCKET", "stories-assets"),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3UseSSL:       getEnvBool("S3_USE_SSL", false),
		S3PublicURL:    getEnv("S3_PUBLIC_URL", ""),
		StorageEnabled: getEnvBool("STORAGE_ENABLED", true),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		SiteURL:           getEnv("SITE_URL", "https://fluentloop.app"),
		SiteTitle:         getEnv("SITE_TITLE", "FluentLoop Stories"),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),

		ModelPrimary:     getEnv("MODEL_PRIMARY", "anthropic/claude-3.5-sonnet"),
		ModelFallback:    getEnv("MODEL_FALLBACK", "openai/gpt-4o-mini"),
		ModelTertiary:    getEnv("MODEL_TERTIARY", "meta-llama/llama-3.1-70b-instruct"),
		DefaultWordCount: getEnvInt("DEFAULT_WORD_COUNT", 300),
		VocabPercentage:  clampRange(getEnvInt("VOCAB_PERCENTAGE", 10), 1, 50),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),

		ImageModelPrimary:   getEnv("IMAGE_MODEL_PRIMARY", "google/gemini-2.5-flash-image"),
		ImageModelFallback:  getEnv("IMAGE_MODEL_FALLBACK", "black-forest-labs/flux-schnell"),
		ImageTimeout:        getEnvDuration("IMAGE_TIMEOUT", 90*time.Second),
		PlaceholderImageURL: getEnv("PLACEHOLDER_IMAGE_URL", "https://cdn.fluentloop.app/static/story-placeholder.webp"),

		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		TTSVoiceID:        getEnv("TTS_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"),
		TTSModel:          getEnv("TTS_MODEL", "eleven_multilingual_v2"),
		TTSVoiceName:      getEnv("TTS_VOICE_NAME", "Sarah"),

		WordsAPIKey:     getEnv("WORDSAPI_KEY", ""),
		WordsAPIBaseURL: getEnv("WORDSAPI_BASE_URL", "https://wordsapiv1.p.rapidapi.com"),

		DefaultQuotaChars:  int64(getEnvInt("DEFAULT_QUOTA_CHARS", 100000)),
		DefaultQuotaPeriod: getEnv("DEFAULT_QUOTA_PERIOD", "monthly"),
	}
}

// StoryModels returns the story model fallback chain in configured order.
func (c *Config) StoryModels() []string {
	return []string{c.ModelPrimary, c.ModelFallback, c.ModelTertiary}
}

// ImageModels returns the image model fallback pair in configured order.
func (c *Config) ImageModels() []string {
	return []string{c.ImageModelPrimary, c.ImageModelFallback}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// clampRange returns v clamped to [min, max]. Used to keep config values in valid range.
func clampRange(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
