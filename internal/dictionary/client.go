package dictionary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// ErrWordNotFound is returned when the gateway has no entry for a word.
var ErrWordNotFound = errors.New("dictionary: word not found")

// Definition is one sense of a word.
type Definition struct {
	Definition   string `json:"definition"`
	PartOfSpeech string `json:"partOfSpeech"`
}

// Word is the full lookup result for a word.
type Word struct {
	Word          string            `json:"word"`
	Results       []Definition      `json:"results"`
	Pronunciation map[string]string `json:"pronunciation"`
	Frequency     float64           `json:"frequency"`
}

// Client is a read-only client to the dictionary gateway.
type Client struct {
	http *resty.Client
}

// NewClient creates a dictionary client. The gateway authenticates via
// RapidAPI headers.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("X-RapidAPI-Key", apiKey).
		SetTimeout(timeout)

	log.Info().Str("base_url", baseURL).Msg("Dictionary client initialized")

	return &Client{http: httpClient}
}

// Lookup calls GET /words/{word}.
func (c *Client) Lookup(ctx context.Context, word string) (*Word, error) {
	var out Word
	if err := c.get(ctx, "/words/"+word, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Definitions calls GET /words/{word}/definitions.
func (c *Client) Definitions(ctx context.Context, word string) ([]Definition, error) {
	var out struct {
		Definitions []Definition `json:"definitions"`
	}
	if err := c.get(ctx, "/words/"+word+"/definitions", &out); err != nil {
		return nil, err
	}
	return out.Definitions, nil
}

// Pronunciation calls GET /words/{word}/pronunciation.
func (c *Client) Pronunciation(ctx context.Context, word string) (map[string]string, error) {
	var out struct {
		Pronunciation map[string]string `json:"pronunciation"`
	}
	if err := c.get(ctx, "/words/"+word+"/pronunciation", &out); err != nil {
		return nil, err
	}
	return out.Pronunciation, nil
}

// Synonyms calls GET /words/{word}/synonyms.
func (c *Client) Synonyms(ctx context.Context, word string) ([]string, error) {
	var out struct {
		Synonyms []string `json:"synonyms"`
	}
	if err := c.get(ctx, "/words/"+word+"/synonyms", &out); err != nil {
		return nil, err
	}
	return out.Synonyms, nil
}

// Antonyms calls GET /words/{word}/antonyms.
func (c *Client) Antonyms(ctx context.Context, word string) ([]string, error) {
	var out struct {
		Antonyms []string `json:"antonyms"`
	}
	if err := c.get(ctx, "/words/"+word+"/antonyms", &out); err != nil {
		return nil, err
	}
	return out.Antonyms, nil
}

// Examples calls GET /words/{word}/examples.
func (c *Client) Examples(ctx context.Context, word string) ([]string, error) {
	var out struct {
		Examples []string `json:"examples"`
	}
	if err := c.get(ctx, "/words/"+word+"/examples", &out); err != nil {
		return nil, err
	}
	return out.Examples, nil
}

// Frequency calls GET /words/{word}/frequency.
func (c *Client) Frequency(ctx context.Context, word string) (float64, error) {
	var out struct {
		Frequency struct {
			PerMillion float64 `json:"perMillion"`
		} `json:"frequency"`
	}
	if err := c.get(ctx, "/words/"+word+"/frequency", &out); err != nil {
		return 0, err
	}
	return out.Frequency.PerMillion, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(out).
		Get(path)

	if err != nil {
		return fmt.Errorf("dictionary: request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrWordNotFound
	}
	if resp.IsError() {
		return fmt.Errorf("dictionary: gateway error: %s", resp.Status())
	}
	return nil
}
