// Package pipeline drives the one-tap recognition flow: start the camera, let
// it settle, capture one frame, recognize it, conditionally mark attendance,
// and tear the camera back down. One attempt per invocation, no retry loop;
// the camera is never left running.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horus/internal/camera"
	"horus/internal/faceclient"
)

// ErrBusy is returned when a run is already in flight for the surface.
var ErrBusy = errors.New("recognition already in progress")

// State is the pipeline's position in the recognition flow.
type State string

const (
	StateIdle               State = "idle"
	StateCameraStarting     State = "camera-starting"
	StateSettling           State = "settling"
	StateCapturing          State = "capturing"
	StateRecognizing        State = "recognizing"
	StateAttendanceChecking State = "attendance-checking"
	StateStopping           State = "stopping"
)

// FaceService is the slice of the face-recognition collaborator the pipeline
// needs. *faceclient.Client satisfies it.
type FaceService interface {
	RecognizeFace(ctx context.Context, org string, img camera.Image) (*faceclient.RecognitionResult, error)
	MarkAttendance(ctx context.Context, org, userID string) (*faceclient.AttendanceOutcome, error)
}

// OrgSource resolves the caller's organization email. *session.Store satisfies it.
type OrgSource interface {
	OrgEmail() (string, error)
}

// Config holds the pipeline delays.
type Config struct {
	// SettleDelay is the pause after camera start before capturing, so the
	// frame is not unfocused or unexposed.
	SettleDelay time.Duration
	// DisplayDelay is how long the final status stays up before teardown.
	DisplayDelay time.Duration
	// CallTimeout bounds each collaborator call.
	CallTimeout time.Duration
}

// Snapshot is the pipeline state projected for the UI.
type Snapshot struct {
	State  State                         `json:"state"`
	RunID  string                        `json:"run_id,omitempty"`
	Status string                        `json:"status,omitempty"`
	Class  Class                         `json:"class,omitempty"`
	Result *faceclient.RecognitionResult `json:"result,omitempty"`
}

// Runner executes recognition runs on the recognize surface. Only one run
// mutates the snapshot at a time; status is overwritten, never merged.
type Runner struct {
	cameras *camera.Controller
	faces   FaceService
	org     OrgSource
	cfg     Config
	log     zerolog.Logger

	mu     sync.Mutex
	busy   bool
	cancel context.CancelFunc
	snap   Snapshot
}

// New creates a runner.
func New(cameras *camera.Controller, faces FaceService, org OrgSource, cfg Config, log zerolog.Logger) *Runner {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 1500 * time.Millisecond
	}
	if cfg.DisplayDelay <= 0 {
		cfg.DisplayDelay = 2 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	return &Runner{
		cameras: cameras,
		faces:   faces,
		org:     org,
		cfg:     cfg,
		log:     log,
		snap:    Snapshot{State: StateIdle},
	}
}

// Snapshot returns the current UI projection.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Start kicks one run in the background. ErrBusy when one is in flight.
func (r *Runner) Start(ctx context.Context) error {
	runCtx, runID, err := r.begin(ctx)
	if err != nil {
		return err
	}
	go r.run(runCtx, runID)
	return nil
}

// Run executes one run synchronously and returns its outcome.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	runCtx, runID, err := r.begin(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return r.run(runCtx, runID)
}

// Stop cancels any in-flight run and tears down the recognize camera.
// Idempotent; safe while a run is mid-call, whose late result is then dropped.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.cameras.Stop(camera.SurfaceRecognize)
	r.mu.Lock()
	r.snap.State = StateIdle
	r.mu.Unlock()
}

func (r *Runner) begin(ctx context.Context) (context.Context, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return nil, "", ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	runID := uuid.NewString()
	r.busy = true
	r.cancel = cancel
	r.snap = Snapshot{State: StateCameraStarting, RunID: runID}
	return runCtx, runID, nil
}

func (r *Runner) run(ctx context.Context, runID string) (Outcome, error) {
	runsInFlight.Inc()
	defer func() {
		runsInFlight.Dec()
		// Every exit returns the snapshot to idle, including stale-drop
		// returns where the camera session was torn down underneath the run
		// (surface switch). Guarded by run id, so a newer run is untouched.
		r.setIdle(runID)
		r.mu.Lock()
		r.busy = false
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}
		r.mu.Unlock()
	}()

	var outcome Outcome

	org, err := r.org.OrgEmail()
	if err != nil {
		outcome.StartErr = err
		r.finishWithoutCamera(runID, outcome)
		return outcome, nil
	}

	gen, err := r.cameras.Start(ctx, camera.SurfaceRecognize)
	if err != nil {
		outcome.StartErr = err
		r.finishWithoutCamera(runID, outcome)
		return outcome, nil
	}
	r.log.Debug().Str("run", runID).Uint64("gen", gen).Msg("recognition run started")

	if !r.apply(gen, func(s *Snapshot) {
		s.State = StateSettling
		s.Status = "Capturing image and recognizing faces..."
	}) {
		return outcome, ctx.Err()
	}
	if err := wait(ctx, r.cfg.SettleDelay); err != nil {
		return outcome, err
	}

	if !r.apply(gen, func(s *Snapshot) { s.State = StateCapturing }) {
		return outcome, ctx.Err()
	}
	img, err := r.cameras.Capture(ctx, camera.SurfaceRecognize)
	if err != nil {
		outcome.CaptureErr = err
		return outcome, r.finish(ctx, runID, gen, outcome)
	}

	if !r.apply(gen, func(s *Snapshot) { s.State = StateRecognizing }) {
		return outcome, ctx.Err()
	}
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	result, err := r.faces.RecognizeFace(callCtx, org, img)
	cancel()
	if err != nil {
		outcome.RecognizeErr = err
		return outcome, r.finish(ctx, runID, gen, outcome)
	}

	outcome.FacesDetected = result.FacesDetected
	if !r.apply(gen, func(s *Snapshot) { s.Result = result }) {
		return outcome, ctx.Err()
	}

	if result.FacesDetected > 0 && len(result.RecognizedFaces) > 0 {
		// Single-face policy: attendance is marked for the highest-ranked
		// match only, the kiosk being a one-person-at-a-time surface.
		face := result.RecognizedFaces[0]
		outcome.Face = &face
		if face.Known() {
			if !r.apply(gen, func(s *Snapshot) { s.State = StateAttendanceChecking }) {
				return outcome, ctx.Err()
			}
			callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
			att, err := r.faces.MarkAttendance(callCtx, org, face.UserID)
			cancel()
			if err != nil {
				outcome.AttendanceErr = err
			} else {
				outcome.Marked = true
				outcome.AlreadyMarked = att.AlreadyMarked
			}
		}
	}

	return outcome, r.finish(ctx, runID, gen, outcome)
}

// finish posts the outcome, holds it on screen, then tears the camera down.
func (r *Runner) finish(ctx context.Context, runID string, gen uint64, outcome Outcome) error {
	class := Classify(outcome)
	if !r.apply(gen, func(s *Snapshot) {
		s.State = StateStopping
		s.Status = StatusText(outcome)
		s.Class = class
	}) {
		return ctx.Err()
	}
	runsTotal.WithLabelValues(string(class)).Inc()
	r.log.Info().Str("run", runID).Str("class", string(class)).Msg(StatusText(outcome))

	// Display delay so the user can read the status; cancellation skips the
	// wait but never the teardown.
	_ = wait(ctx, r.cfg.DisplayDelay)

	if r.cameras.Live(camera.SurfaceRecognize, gen) {
		r.cameras.Stop(camera.SurfaceRecognize)
	}
	r.setIdle(runID)
	return nil
}

// finishWithoutCamera posts a failure that happened before any camera session
// existed.
func (r *Runner) finishWithoutCamera(runID string, outcome Outcome) {
	class := Classify(outcome)
	runsTotal.WithLabelValues(string(class)).Inc()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap.RunID != runID {
		return
	}
	r.snap.State = StateIdle
	r.snap.Status = StatusText(outcome)
	r.snap.Class = class
}

// apply mutates the snapshot only while the run's camera session is live.
// A stale run (session torn down underneath it) drops the write.
func (r *Runner) apply(gen uint64, mutate func(*Snapshot)) bool {
	if !r.cameras.Live(camera.SurfaceRecognize, gen) {
		runsStale.Inc()
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	mutate(&r.snap)
	return true
}

// setIdle returns the surface to idle, keeping the last status visible. The
// run id guard keeps a finished stale run from clobbering a newer one.
func (r *Runner) setIdle(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap.RunID != runID {
		return
	}
	r.snap.State = StateIdle
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
