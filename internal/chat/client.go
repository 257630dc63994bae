// Package chat calls the HORUS chat/prediction collaborator backing the
// floating chat widget.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"horus/internal/backend"
)

// Client calls the chatagent endpoints.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client rooted at baseURL (e.g. http://host:8000/chatagent).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Chat sends a query and returns the agent's plain-text reply.
func (c *Client) Chat(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/chat?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", backend.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", backend.DecodeError(resp, "Chat request failed")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return string(body), nil
}

// Predict returns the model's next-word suggestion for a partial prompt.
func (c *Client) Predict(ctx context.Context, prompt string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"prompt": prompt})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", backend.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", backend.DecodeError(resp, "Prediction failed")
	}
	var out struct {
		NextWord string `json:"next_word"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.NextWord, nil
}
