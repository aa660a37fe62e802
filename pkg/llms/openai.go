// Package llms provides the client for the remote chat-completion endpoint.
package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/askdev-bot/askdev/pkg/config"
)

// Client issues single chat-completion calls against an OpenAI-compatible
// API. It performs no retries: one failed call produces one failed result.
type Client struct {
	cfg    *config.LLMConfig
	client *http.Client
}

// NewClient creates a completion client from config.
// The config must already be validated.
func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends the message sequence upstream and returns the assistant
// text from the first completion choice.
//
// Failures are typed: ErrTimeout on deadline expiry, *StatusError on a
// non-2xx response, ErrBadResponse on transport or decode failures and on
// responses missing the expected fields.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	request := ChatRequest{
		Model:            c.cfg.Model,
		Messages:         messages,
		Temperature:      c.cfg.Temperature,
		MaxTokens:        c.cfg.MaxTokens,
		TopP:             c.cfg.TopP,
		FrequencyPenalty: c.cfg.FrequencyPenalty,
		PresencePenalty:  c.cfg.PresencePenalty,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.Host, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Warn("Completion request rejected", "status", resp.StatusCode)
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrBadResponse, response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrBadResponse)
	}

	return response.Choices[0].Message.Content, nil
}

// isTimeout reports whether err represents an expired request deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return false
}
