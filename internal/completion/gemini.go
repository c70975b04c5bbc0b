// Package completion wraps the generative-text HTTP API. Each call is a
// stateless, single-turn exchange; no conversation history is transmitted.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
)

// FallbackText is returned when the response payload lacks the expected
// text field. The API answered, it just had nothing usable to say.
const FallbackText = "No response"

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client calls a generateContent-style endpoint. The zero Client is not
// usable; construct with NewClient.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	log        zerolog.Logger
}

var _ domain.Completer = (*Client)(nil)

// NewClient builds a client for the given endpoint. No request timeout is
// set; cancellation is entirely the caller's context.
func NewClient(endpoint, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		endpoint:   endpoint,
		apiKey:     apiKey,
		log:        log.With().Str("component", "completion").Logger(),
	}
}

// Complete sends the prompt and returns the first candidate's first text
// part, or FallbackText when that path is missing from the payload.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	url := c.endpoint
	if c.apiKey != "" {
		url += "?key=" + c.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().Int("status", resp.StatusCode).Bytes("body", snippet).Msg("completion API returned non-2xx")
		return "", fmt.Errorf("completion API status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		c.log.Debug().Msg("completion response missing candidates, using fallback text")
		return FallbackText, nil
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return FallbackText, nil
	}
	return text, nil
}
