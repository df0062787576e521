// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider calls OpenAI-compatible chat-completions endpoints.
// Both the research gateway and the enhancement provider speak this shape.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/health-search/internal/httputil"
	"github.com/pdiddy/health-search/pkg/types"
)

// ErrEmptyContent is returned when a 2xx response carries no completion text.
var ErrEmptyContent = errors.New("provider returned no content")

// StatusError reports a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Role values for chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat-completions call. Model and decoding settings come from
// the client's configuration.
type Request struct {
	Messages []Message
}

// chatRequest is the wire body.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls one provider endpoint.
type Client struct {
	Name   string
	Config types.ProviderConfig
	HTTP   *http.Client
}

// New returns a client whose HTTP timeout is taken from cfg.
func New(name string, cfg types.ProviderConfig) *Client {
	return &Client{
		Name:   name,
		Config: cfg,
		HTTP:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Complete sends the messages and returns the first choice's content.
// Non-2xx responses yield *StatusError; a 2xx without text yields
// ErrEmptyContent. No retries are attempted.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model:       c.Config.Model,
		Messages:    req.Messages,
		Temperature: c.Config.Temperature,
		MaxTokens:   c.Config.MaxTokens,
	}

	resp, err := httputil.PostJSON(ctx, c.HTTP, c.Config.URL, c.Config.APIKey, c.Config.UserAgent, body)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", c.Name, err)
	}

	data, err := httputil.ReadBody(resp, 0)
	if err != nil {
		return "", fmt.Errorf("reading %s response: %w", c.Name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("decoding %s response: %w", c.Name, err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", ErrEmptyContent
	}
	return cr.Choices[0].Message.Content, nil
}

// StatusCode extracts the HTTP status from err, or 0 if err is not a
// *StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
