// Package backend holds the pieces shared by every HORUS collaborator client:
// the error taxonomy and the non-2xx response decoding.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrUnreachable marks transport-level failures (connection refused, DNS, timeouts).
// Call sites surface it as "backend not running / check your connection".
var ErrUnreachable = errors.New("backend unreachable")

// APIError is a non-2xx response from a collaborator. Detail carries the
// backend's {detail} message when one was present.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend error: status %d", e.Status)
}

// DecodeError reads a failed response body and extracts the {detail} message,
// falling back to the given generic message.
func DecodeError(resp *http.Response, fallback string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Detail string `json:"detail"`
	}
	detail := fallback
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		detail = payload.Detail
	}
	return &APIError{Status: resp.StatusCode, Detail: detail}
}

// Transport wraps a failed round trip as an unreachable-backend error.
func Transport(err error) error {
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
