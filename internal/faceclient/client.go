// Package faceclient calls the HORUS face-recognition collaborator.
// Every request carries the caller's organization email as a query parameter.
package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"horus/internal/backend"
	"horus/internal/camera"
)

// FaceLocation is the bounding box of a detected face.
type FaceLocation struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// RecognizedFace is one ranked match from a recognize call. UserID is empty
// and Name is "Unknown" when the face matched nobody enrolled.
type RecognizedFace struct {
	UserID     string       `json:"user_id"`
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Confidence float64      `json:"confidence"`
	Location   FaceLocation `json:"location"`
}

// Known reports whether the face resolved to an enrolled identity.
func (f RecognizedFace) Known() bool {
	return f.UserID != "" && f.Name != "" && f.Name != "Unknown"
}

// RecognitionResult is the response for one captured image.
type RecognitionResult struct {
	FacesDetected   int              `json:"faces_detected"`
	RecognizedFaces []RecognizedFace `json:"recognized_faces"`
	Organization    string           `json:"organization"`
	Timestamp       string           `json:"timestamp"`
}

// RegisterResult is the response to a face enrollment.
type RegisterResult struct {
	Message      string `json:"message"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Organization string `json:"organization"`
}

// AttendanceOutcome is the result of marking attendance for an identity.
type AttendanceOutcome struct {
	Message       string `json:"message"`
	UserID        string `json:"user_id"`
	Name          string `json:"name,omitempty"`
	Type          string `json:"type,omitempty"`
	Organization  string `json:"organization"`
	Timestamp     string `json:"timestamp,omitempty"`
	AlreadyMarked bool   `json:"already_marked,omitempty"`
}

// RegisteredUser is an enrolled identity.
type RegisteredUser struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	EncodingsCount int    `json:"encodings_count"`
}

// UserList is the registered-users response.
type UserList struct {
	TotalUsers int              `json:"total_users"`
	Users      []RegisteredUser `json:"users"`
}

// AttendanceRecord is one attendance entry for a day.
type AttendanceRecord struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// AttendanceReport is the attendance listing for a date.
type AttendanceReport struct {
	Date            string             `json:"date"`
	TotalAttendance int                `json:"total_attendance"`
	Records         []AttendanceRecord `json:"records"`
	Organization    string             `json:"organization"`
}

// DeleteResult is the response to removing an enrolled identity.
type DeleteResult struct {
	Message      string `json:"message"`
	UserID       string `json:"user_id"`
	Organization string `json:"organization"`
}

// Client calls the face recognition service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client rooted at baseURL (e.g. http://host:8000/api/face-recognition).
// Skip short-circuits every call with canned results for dev without a backend.
func New(baseURL string, timeout time.Duration, skip bool) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Skip:    skip,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// RegisterFace enrolls a captured image under a name and employee type.
func (c *Client) RegisterFace(ctx context.Context, org, name, employeeType string, img camera.Image) (*RegisterResult, error) {
	if c.Skip {
		return &RegisterResult{Message: "Face registered (mock)", UserID: "mock-user", Name: name, Type: employeeType, Organization: org}, nil
	}
	q := url.Values{}
	q.Set("org_email", org)
	q.Set("name", name)
	q.Set("employee_type", employeeType)

	var out RegisterResult
	if err := c.postImage(ctx, "/register-face?"+q.Encode(), img, "Registration failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecognizeFace sends one captured frame for identification.
func (c *Client) RecognizeFace(ctx context.Context, org string, img camera.Image) (*RecognitionResult, error) {
	if c.Skip {
		return &RecognitionResult{
			FacesDetected:   1,
			RecognizedFaces: []RecognizedFace{{UserID: "mock-user", Name: "Mock User", Type: "employee", Confidence: 0.92}},
			Organization:    org,
		}, nil
	}
	q := url.Values{}
	q.Set("org_email", org)

	var out RecognitionResult
	if err := c.postImage(ctx, "/recognize-face?"+q.Encode(), img, "Recognition failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkAttendance records attendance for a recognized identity. Marking twice
// on the same day is not an error; the outcome carries already_marked.
func (c *Client) MarkAttendance(ctx context.Context, org, userID string) (*AttendanceOutcome, error) {
	if c.Skip {
		return &AttendanceOutcome{Message: "Attendance marked (mock)", UserID: userID, Organization: org}, nil
	}
	q := url.Values{}
	q.Set("org_email", org)
	q.Set("user_id", userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/mark-attendance?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var out AttendanceOutcome
	if err := c.do(req, "Failed to mark attendance", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisteredUsers lists the identities enrolled for the organization.
func (c *Client) RegisteredUsers(ctx context.Context, org string) (*UserList, error) {
	if c.Skip {
		return &UserList{TotalUsers: 1, Users: []RegisteredUser{{UserID: "mock-user", Name: "Mock User", Type: "employee", EncodingsCount: 1}}}, nil
	}
	q := url.Values{}
	q.Set("org_email", org)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/registered-users?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var out UserList
	if err := c.do(req, "Failed to fetch users", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Attendance fetches the attendance report for a date (yyyy-mm-dd); an empty
// date means today.
func (c *Client) Attendance(ctx context.Context, org, date string) (*AttendanceReport, error) {
	if c.Skip {
		return &AttendanceReport{Date: date, Organization: org}, nil
	}
	q := url.Values{}
	q.Set("org_email", org)

	path := "/attendance"
	if date != "" {
		path += "/" + url.PathEscape(date)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var out AttendanceReport
	if err := c.do(req, "Failed to fetch attendance", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes an enrolled identity.
func (c *Client) DeleteUser(ctx context.Context, org, userID string) (*DeleteResult, error) {
	if c.Skip {
		return &DeleteResult{Message: "User deleted (mock)", UserID: userID, Organization: org}, nil
	}
	q := url.Values{}
	q.Set("org_email", org)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/user/"+url.PathEscape(userID)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var out DeleteResult
	if err := c.do(req, "Failed to delete user", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// postImage uploads img as the multipart "file" field and decodes into out.
func (c *Client) postImage(ctx context.Context, path string, img camera.Image, fallback string, out interface{}) error {
	if len(img.Data) == 0 {
		return fmt.Errorf("empty image")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", img.Filename())
	if err != nil {
		return fmt.Errorf("create form file failed: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(img.Data)); err != nil {
		return fmt.Errorf("write file failed: %w", err)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, fallback, out)
}

func (c *Client) do(req *http.Request, fallback string, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return backend.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return backend.DecodeError(resp, fallback)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
