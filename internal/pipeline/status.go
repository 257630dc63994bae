package pipeline

import (
	"fmt"

	"horus/internal/faceclient"
)

// Class is the presentation classification of a pipeline outcome.
type Class string

const (
	ClassNone          Class = ""
	ClassSuccess       Class = "success"
	ClassAlreadyMarked Class = "already-marked"
	ClassNotRecognized Class = "not-recognized"
	ClassError         Class = "error"
)

// Outcome is everything one pipeline run produced. Status text and class are
// derived from it alone.
type Outcome struct {
	StartErr     error
	CaptureErr   error
	RecognizeErr error

	FacesDetected int
	Face          *faceclient.RecognizedFace

	AttendanceErr error
	AlreadyMarked bool
	Marked        bool
}

// Classify maps an outcome to its presentation class.
func Classify(o Outcome) Class {
	switch {
	case o.StartErr != nil, o.CaptureErr != nil, o.RecognizeErr != nil, o.AttendanceErr != nil:
		return ClassError
	case o.AlreadyMarked:
		return ClassAlreadyMarked
	case o.Marked:
		return ClassSuccess
	default:
		return ClassNotRecognized
	}
}

// StatusText renders the user-facing status message for an outcome.
func StatusText(o Outcome) string {
	switch {
	case o.StartErr != nil:
		return fmt.Sprintf("Failed to start camera: %v", o.StartErr)
	case o.CaptureErr != nil:
		return fmt.Sprintf("Failed to capture and recognize: %v", o.CaptureErr)
	case o.RecognizeErr != nil:
		return fmt.Sprintf("Failed to capture and recognize: %v", o.RecognizeErr)
	case o.AttendanceErr != nil:
		return fmt.Sprintf("Recognition successful but failed to mark attendance: %v", o.AttendanceErr)
	case o.AlreadyMarked:
		return fmt.Sprintf("Welcome back %s! Your attendance was already marked for today.", o.Face.Name)
	case o.Marked:
		return fmt.Sprintf("Welcome %s! Attendance marked successfully.", o.Face.Name)
	case o.FacesDetected == 0:
		return "No faces detected in the image."
	default:
		return "Face detected but not recognized. Please register this person first."
	}
}
