// Package violations follows the HORUS live-detection collaborator: recent
// safety violations plus the per-camera image feed endpoints.
package violations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"horus/internal/backend"
)

// Violation is one detected safety violation.
type Violation struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	CameraID      any    `json:"camera_id"`
	PersonName    string `json:"person_name"`
	ViolationType string `json:"violation_type"`
	ClassName     string `json:"class_name"`
}

// Client calls the violations endpoints.
type Client struct {
	BaseURL string
	FeedURL string
	HTTP    *http.Client
}

// New creates a client. baseURL is the violations API root
// (e.g. http://host:8000/api/violations); feedBase is the root the camera
// feeds hang off (e.g. http://host:8000/api).
func New(baseURL, feedBase string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		FeedURL: strings.TrimRight(feedBase, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Recent fetches the latest violations, newest first.
func (c *Client) Recent(ctx context.Context, limit int) ([]Violation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/recent?limit=%d", c.BaseURL, limit), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, backend.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, backend.DecodeError(resp, "Failed to fetch violations")
	}
	var out struct {
		Violations []Violation `json:"violations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Violations, nil
}

// CameraFeedURL returns the continuous-image feed URL for a camera. Feeds are
// plain image endpoints rendered directly by the UI.
func (c *Client) CameraFeedURL(cameraID int) string {
	return fmt.Sprintf("%s/video_feed%d", c.FeedURL, cameraID)
}
