package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// VoiceSettings tune synthesis expressiveness. Stability and SimilarityBoost
// are in [0,1]; both affect the generated bytes and so are part of the audio
// cache key.
type VoiceSettings struct {
	Stability       float64  `json:"stability"`
	SimilarityBoost float64  `json:"similarity_boost"`
	Style           *float64 `json:"style,omitempty"`
	UseSpeakerBoost *bool    `json:"use_speaker_boost,omitempty"`
}

// Voice is a voice listed by the gateway.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Subscription is the account quota snapshot from GET /user.
type Subscription struct {
	CharacterCount int64  `json:"character_count"`
	CharacterLimit int64  `json:"character_limit"`
	Tier           string `json:"tier"`
}

// Model is a TTS model listed by the gateway.
type Model struct {
	ModelID string `json:"model_id"`
	Name    string `json:"name"`
}

// TTSError is a non-2xx response from the TTS gateway, parsed from its
// {detail:{status,message}} envelope. Known statuses: 404 unknown voice,
// 429 rate limit, 402 quota exceeded.
type TTSError struct {
	Status  int
	Detail  string
	Message string
}

func (e *TTSError) Error() string {
	return fmt.Sprintf("elevenlabs: %s (status=%d detail=%s)", e.Message, e.Status, e.Detail)
}

// IsQuotaExceeded reports whether the account ran out of characters.
func (e *TTSError) IsQuotaExceeded() bool {
	return e.Status == 402
}

// IsRateLimited reports whether the request was throttled.
func (e *TTSError) IsRateLimited() bool {
	return e.Status == 429
}

type errorEnvelope struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// Client is an authenticated client to the TTS gateway.
type Client struct {
	http *resty.Client
}

// NewClient creates a TTS gateway client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("xi-api-key", apiKey).
		SetTimeout(timeout)

	log.Info().
		Str("base_url", baseURL).
		Dur("timeout", timeout).
		Msg("ElevenLabs client initialized")

	return &Client{http: httpClient}
}

// Synthesize calls POST /text-to-speech/{voiceId} and returns MPEG audio
// bytes. Generation is metered per character; callers should check the audio
// cache first.
func (c *Client) Synthesize(ctx context.Context, voiceID, text, modelID string, settings VoiceSettings) ([]byte, error) {
	body := map[string]any{
		"text":           text,
		"voice_settings": settings,
	}
	if modelID != "" {
		body["model_id"] = modelID
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "audio/mpeg").
		SetBody(body).
		Post("/text-to-speech/" + voiceID)

	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}

	if resp.IsError() {
		return nil, parseError(resp)
	}

	audio := resp.Body()
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs: empty audio response")
	}

	log.Debug().
		Str("voice_id", voiceID).
		Int("text_chars", len(text)).
		Int("audio_bytes", len(audio)).
		Msg("Speech synthesized")

	return audio, nil
}

// Voices calls GET /voices.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var out struct {
		Voices []Voice `json:"voices"`
	}

	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/voices")
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, parseError(resp)
	}

	return out.Voices, nil
}

// User calls GET /user and returns the subscription quota snapshot.
func (c *Client) User(ctx context.Context) (*Subscription, error) {
	var out struct {
		Subscription Subscription `json:"subscription"`
	}

	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/user")
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, parseError(resp)
	}

	return &out.Subscription, nil
}

// Models calls GET /models.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var out []Model

	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/models")
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, parseError(resp)
	}

	return out, nil
}

func parseError(resp *resty.Response) error {
	ttsErr := &TTSError{Status: resp.StatusCode(), Message: resp.Status()}

	var envelope errorEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err == nil {
		if envelope.Detail.Message != "" {
			ttsErr.Message = envelope.Detail.Message
		}
		ttsErr.Detail = envelope.Detail.Status
	}

	log.Warn().
		Int("status", ttsErr.Status).
		Str("detail", ttsErr.Detail).
		Msg("TTS gateway returned error")

	return ttsErr
}
