package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// fallbackModelIDs is returned by ListModels when model discovery fails.
// Discovery is advisory only, so a stale list beats a hard error.
var fallbackModelIDs = []string{
	"anthropic/claude-3.5-sonnet",
	"openai/gpt-4o-mini",
	"meta-llama/llama-3.1-70b-instruct",
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat constrains the gateway output to a JSON schema.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// CompletionRequest is a chat/completions request.
type CompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Choice is one completion candidate.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage is the gateway's token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is a successful chat/completions response.
type CompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the first choice's message content, or empty.
func (r *CompletionResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// errorEnvelope is the gateway's error body: {"error":{"code","message","type"}}.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Client is the single authenticated entry point to the generation gateway.
// It owns timeout enforcement, auth headers and raw-error translation; retry
// and fallback policy belong to callers.
type Client struct {
	http    *resty.Client
	timeout time.Duration
}

// NewClient creates a gateway client. siteURL and siteTitle are sent as
// attribution headers on every request.
func NewClient(baseURL, apiKey, siteURL, siteTitle string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", siteURL).
		SetHeader("X-Title", siteTitle).
		SetTimeout(timeout)

	log.Info().
		Str("base_url", baseURL).
		Dur("timeout", timeout).
		Msg("OpenRouter client initialized")

	return &Client{http: httpClient, timeout: timeout}
}

// Complete calls POST /chat/completions. Non-2xx responses become *APIError,
// aborted calls become *TimeoutError, transport failures become *NetworkError.
func (c *Client) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out CompletionResponse
	var envelope errorEnvelope

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&envelope).
		Post("/chat/completions")

	if err != nil {
		return nil, c.translateTransportError(err)
	}

	if resp.IsError() {
		apiErr := &APIError{
			Code:    envelope.Error.Code,
			Type:    envelope.Error.Type,
			Status:  resp.StatusCode(),
			Message: envelope.Error.Message,
		}
		if apiErr.Message == "" {
			apiErr.Message = resp.Status()
		}
		log.Warn().
			Str("model", req.Model).
			Int("status", apiErr.Status).
			Str("type", apiErr.Type).
			Msg("Gateway returned error")
		return nil, apiErr
	}

	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: response has no choices")
	}

	log.Debug().
		Str("model", out.Model).
		Int("total_tokens", out.Usage.TotalTokens).
		Str("finish_reason", out.Choices[0].FinishReason).
		Msg("Completion received")

	return &out, nil
}

// ListModels calls GET /models. Best-effort: any failure returns the
// hardcoded fallback list instead of an error.
func (c *Client) ListModels(ctx context.Context) []string {
	var out modelList

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/models")

	if err != nil || resp.IsError() || len(out.Data) == 0 {
		log.Warn().Err(err).Msg("Model discovery failed, using fallback list")
		return fallbackModelIDs
	}

	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		ids = append(ids, m.ID)
	}
	return ids
}

func (c *Client) translateTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Timeout: c.timeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Timeout: c.timeout}
	}
	return &NetworkError{Err: err}
}
