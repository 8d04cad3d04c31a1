package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

/*
 * HTTP judgment client.
 *
 * Talks to a chat-completion style endpoint: the prompt becomes the system
 * message, the text under judgment the user message, and the first token of
 * the reply is parsed as the verdict. Every call carries a hard timeout on
 * top of caller cancellation so a stalled service cannot block ingestion.
 *
 * Failures map to ErrUnavailable (transport, non-2xx, timeout) or
 * ErrNoVerdict (reply not readable as true/false). Both propagate out of
 * evaluation as errors rather than false.
 */

// DefaultTimeout bounds a single judgment call.
const DefaultTimeout = 10 * time.Second

// Client is an HTTP implementation of Judge.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	timeout  time.Duration
	http     *http.Client
}

// NewClient creates a judgment client for the given endpoint and model.
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		timeout:  timeout,
		http:     &http.Client{},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Judge submits (prompt, text) and parses the reply as a boolean verdict.
func (c *Client) Judge(ctx context.Context, prompt, text string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt + " Respond with exactly true or false."},
			{Role: "user", Content: text},
		},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return false, fmt.Errorf("encode judgment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build judgment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return false, ErrNoVerdict
	}

	return parseVerdict(parsed.Choices[0].Message.Content)
}

// parseVerdict reads the first token of the reply as true/false/yes/no.
func parseVerdict(content string) (bool, error) {
	token := strings.ToLower(strings.Trim(strings.TrimSpace(content), ".!\"'"))
	if i := strings.IndexAny(token, " \t\n"); i >= 0 {
		token = token[:i]
	}
	switch token {
	case "true", "yes":
		return true, nil
	case "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrNoVerdict, content)
	}
}
