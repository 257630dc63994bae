package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"horus/internal/faceclient"
)

func TestStatusTextAndClassify(t *testing.T) {
	alice := &faceclient.RecognizedFace{UserID: "u1", Name: "Alice", Confidence: 0.97}
	unknown := &faceclient.RecognizedFace{Name: "Unknown"}

	tests := []struct {
		name       string
		outcome    Outcome
		wantClass  Class
		wantInText string
	}{
		{
			name:       "no faces",
			outcome:    Outcome{FacesDetected: 0},
			wantClass:  ClassNotRecognized,
			wantInText: "No faces detected",
		},
		{
			name:       "unknown face",
			outcome:    Outcome{FacesDetected: 1, Face: unknown},
			wantClass:  ClassNotRecognized,
			wantInText: "not recognized",
		},
		{
			name:       "newly marked",
			outcome:    Outcome{FacesDetected: 1, Face: alice, Marked: true},
			wantClass:  ClassSuccess,
			wantInText: "Welcome Alice! Attendance marked successfully.",
		},
		{
			name:       "already marked",
			outcome:    Outcome{FacesDetected: 1, Face: alice, Marked: true, AlreadyMarked: true},
			wantClass:  ClassAlreadyMarked,
			wantInText: "already marked",
		},
		{
			name:       "attendance failed after recognition",
			outcome:    Outcome{FacesDetected: 1, Face: alice, AttendanceErr: errors.New("backend down")},
			wantClass:  ClassError,
			wantInText: "Recognition successful but failed to mark attendance",
		},
		{
			name:       "capture failed",
			outcome:    Outcome{CaptureErr: errors.New("no frame")},
			wantClass:  ClassError,
			wantInText: "Failed to capture and recognize",
		},
		{
			name:       "recognize call failed",
			outcome:    Outcome{RecognizeErr: errors.New("timeout")},
			wantClass:  ClassError,
			wantInText: "Failed to capture and recognize",
		},
		{
			name:       "camera start failed",
			outcome:    Outcome{StartErr: errors.New("permission denied")},
			wantClass:  ClassError,
			wantInText: "Failed to start camera",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantClass, Classify(tt.outcome))
			assert.Contains(t, StatusText(tt.outcome), tt.wantInText)
		})
	}
}

func TestAlreadyMarkedMentionsName(t *testing.T) {
	o := Outcome{
		FacesDetected: 1,
		Face:          &faceclient.RecognizedFace{UserID: "u1", Name: "Bob"},
		Marked:        true,
		AlreadyMarked: true,
	}
	assert.Contains(t, StatusText(o), "Welcome back Bob!")
}
