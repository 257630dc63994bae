package faceclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horus/internal/backend"
	"horus/internal/camera"
)

func testImage() camera.Image {
	return camera.Image{Data: []byte{0xff, 0xd8, 0xff}, MIME: "image/jpeg"}
}

func TestRecognizeFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/recognize-face", r.URL.Path)
		assert.Equal(t, "org@example.com", r.URL.Query().Get("org_email"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "capture.jpg", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"faces_detected": 1,
			"recognized_faces": [
				{"user_id":"u1","name":"Alice","type":"employee","confidence":0.97,
				 "location":{"top":10,"right":90,"bottom":80,"left":20}}
			],
			"organization": "org@example.com",
			"timestamp": "2026-09-01T09:00:00Z"
		}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, false)
	result, err := c.RecognizeFace(context.Background(), "org@example.com", testImage())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FacesDetected)
	require.Len(t, result.RecognizedFaces, 1)
	face := result.RecognizedFaces[0]
	assert.Equal(t, "u1", face.UserID)
	assert.Equal(t, "Alice", face.Name)
	assert.True(t, face.Known())
	assert.Equal(t, 10, face.Location.Top)
	assert.Equal(t, 20, face.Location.Left)
}

func TestRegisterFaceQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/register-face", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "org@example.com", q.Get("org_email"))
		assert.Equal(t, "Alice", q.Get("name"))
		assert.Equal(t, "employee", q.Get("employee_type"))
		io.WriteString(w, `{"message":"Face registered successfully","user_id":"u1","name":"Alice","type":"employee","organization":"org@example.com"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, false)
	result, err := c.RegisterFace(context.Background(), "org@example.com", "Alice", "employee", testImage())
	require.NoError(t, err)
	assert.Equal(t, "u1", result.UserID)
	assert.Equal(t, "Face registered successfully", result.Message)
}

func TestMarkAttendanceAlreadyMarked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mark-attendance", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		io.WriteString(w, `{"message":"Already marked","user_id":"u1","name":"Alice","organization":"org@example.com","already_marked":true}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, false)
	outcome, err := c.MarkAttendance(context.Background(), "org@example.com", "u1")
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyMarked)
	assert.Equal(t, "Alice", outcome.Name)
}

func TestRegisteredUsersAndDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/registered-users":
			io.WriteString(w, `{"total_users":2,"users":[
				{"user_id":"u1","name":"Alice","type":"employee","encodings_count":3},
				{"user_id":"u2","name":"Bob","type":"visitor","encodings_count":1}]}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/user/u2":
			io.WriteString(w, `{"message":"User deleted","user_id":"u2","organization":"org@example.com"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, false)
	users, err := c.RegisteredUsers(context.Background(), "org@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, users.TotalUsers)
	assert.Equal(t, "Bob", users.Users[1].Name)

	deleted, err := c.DeleteUser(context.Background(), "org@example.com", "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", deleted.UserID)
}

func TestAttendanceDatePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/attendance":
			io.WriteString(w, `{"date":"today","total_attendance":0,"records":[],"organization":"org@example.com"}`)
		case "/attendance/2026-09-01":
			io.WriteString(w, `{"date":"2026-09-01","total_attendance":1,
				"records":[{"name":"Alice","type":"employee","timestamp":"2026-09-01T09:00:00Z"}],
				"organization":"org@example.com"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, false)

	today, err := c.Attendance(context.Background(), "org@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "today", today.Date)

	day, err := c.Attendance(context.Background(), "org@example.com", "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, 1, day.TotalAttendance)
	assert.Equal(t, "Alice", day.Records[0].Name)
}

func TestErrorDetailParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"No face found in the image"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, false)
	_, err := c.RecognizeFace(context.Background(), "org@example.com", testImage())
	require.Error(t, err)

	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "No face found in the image", apiErr.Detail)
}

func TestErrorFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, false)
	_, err := c.MarkAttendance(context.Background(), "org@example.com", "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to mark attendance")
}

func TestTransportErrorWrapped(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second, false)
	_, err := c.RegisteredUsers(context.Background(), "org@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrUnreachable)
}

func TestSkipMode(t *testing.T) {
	c := New("http://unused", time.Second, true)
	result, err := c.RecognizeFace(context.Background(), "org@example.com", testImage())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FacesDetected)
	assert.True(t, result.RecognizedFaces[0].Known())
}

func TestEmptyImageRejected(t *testing.T) {
	c := New("http://unused", time.Second, false)
	_, err := c.RecognizeFace(context.Background(), "org@example.com", camera.Image{})
	require.Error(t, err)
}
