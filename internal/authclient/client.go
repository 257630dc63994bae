// Package authclient calls the HORUS auth collaborator.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"horus/internal/backend"
)

// Profile is the account profile returned by the auth service.
type Profile struct {
	Email       string `json:"email"`
	AdminName   string `json:"admin_name"`
	CompanyName string `json:"company_name"`
	ContactNo   string `json:"contact_no"`
	Location    string `json:"location,omitempty"`
}

// SignupRequest carries the fields of a new account.
type SignupRequest struct {
	AdminName   string `json:"admin_name"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	ContactNo   string `json:"contact_no"`
	Password    string `json:"password"`
}

// ProfileUpdate is a partial profile change.
type ProfileUpdate struct {
	AdminName   string `json:"admin_name"`
	CompanyName string `json:"company_name"`
	ContactNo   string `json:"contact_no"`
	Location    string `json:"location,omitempty"`
}

// Client calls the auth endpoints.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client rooted at baseURL (e.g. http://host:8000/api/auth).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Signup creates an account and returns the issued token.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	body, _ := json.Marshal(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/signup", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", backend.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", backend.DecodeError(resp, "Signup failed. Please try again.")
	}
	return decodeToken(resp)
}

// Signin exchanges credentials for a token. The backend expects an
// OAuth2-style form body with the email in the username field.
func (c *Client) Signin(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/signin", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", backend.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", backend.DecodeError(resp, "Invalid credentials")
	}
	return decodeToken(resp)
}

// Profile fetches the profile of the token's account.
func (c *Client) Profile(ctx context.Context, token string) (Profile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/me", nil)
	if err != nil {
		return Profile{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Profile{}, backend.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Profile{}, backend.DecodeError(resp, "Failed to fetch user profile")
	}

	var out Profile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Profile{}, err
	}
	return out, nil
}

// UpdateProfile applies a partial profile change and returns the result.
func (c *Client) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (Profile, error) {
	body, _ := json.Marshal(update)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+"/update-profile", bytes.NewReader(body))
	if err != nil {
		return Profile{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Profile{}, backend.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Profile{}, backend.DecodeError(resp, "Failed to update profile")
	}

	var out Profile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Profile{}, err
	}
	return out, nil
}

func decodeToken(resp *http.Response) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("no token received")
	}
	return out.Token, nil
}
