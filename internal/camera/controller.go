package camera

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Surface is a UI area that can independently own a camera session.
type Surface string

const (
	SurfaceRegister  Surface = "register"
	SurfaceRecognize Surface = "recognize"
)

// Controller manages the exclusive camera session per surface.
//
// Invariant: at most one active session per surface. Starting a new session
// fully tears down the prior one first. Every Start bumps the surface's
// generation; async results taken under an older generation are stale and
// must be dropped by the caller (see Live).
type Controller struct {
	factory func() Device
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[Surface]*surfaceSession
}

type surfaceSession struct {
	device Device
	gen    uint64
	active bool
}

// NewController creates a controller that acquires devices via factory.
func NewController(factory func() Device, log zerolog.Logger) *Controller {
	return &Controller{
		factory:  factory,
		log:      log,
		sessions: make(map[Surface]*surfaceSession),
	}
}

// Start acquires a camera session for the surface and returns its generation.
// Any prior session on the surface is stopped first. On failure the surface
// is left inactive and a later Start may retry.
func (c *Controller) Start(ctx context.Context, surface Surface) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.sessions[surface]
	if s == nil {
		s = &surfaceSession{}
		c.sessions[surface] = s
	}
	if s.active {
		c.log.Debug().Str("surface", string(surface)).Msg("stopping prior camera session")
		c.stopLocked(surface, s)
	}

	device := c.factory()
	if err := device.Open(ctx); err != nil {
		// No half-bound state: a failed open holds nothing.
		_ = device.Close()
		return 0, err
	}

	s.gen++
	s.device = device
	s.active = true
	c.log.Info().Str("surface", string(surface)).Uint64("gen", s.gen).Msg("camera session started")
	return s.gen, nil
}

// Stop releases the surface's session. Idempotent: stopping an inactive
// surface is a no-op.
func (c *Controller) Stop(surface Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessions[surface]
	if s == nil || !s.active {
		return
	}
	c.stopLocked(surface, s)
}

// StopOthers stops every surface except keep, used when the active surface
// changes so no orphaned camera access survives a tab switch.
func (c *Controller) StopOthers(keep Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for surface, s := range c.sessions {
		if surface != keep && s.active {
			c.stopLocked(surface, s)
		}
	}
}

// Capture extracts one frame from the surface's active session.
func (c *Controller) Capture(ctx context.Context, surface Surface) (Image, error) {
	c.mu.Lock()
	s := c.sessions[surface]
	if s == nil || !s.active {
		c.mu.Unlock()
		return Image{}, fmt.Errorf("no active camera session on %s", surface)
	}
	device := s.device
	c.mu.Unlock()

	return device.Capture(ctx)
}

// Active reports whether the surface currently holds a session.
func (c *Controller) Active(surface Surface) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessions[surface]
	return s != nil && s.active
}

// Live reports whether the session started as generation gen is still the
// active one. Callers check it before applying any async result.
func (c *Controller) Live(surface Surface, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessions[surface]
	return s != nil && s.active && s.gen == gen
}

func (c *Controller) stopLocked(surface Surface, s *surfaceSession) {
	if err := s.device.Close(); err != nil {
		c.log.Warn().Err(err).Str("surface", string(surface)).Msg("camera close failed")
	}
	s.device = nil
	s.active = false
	c.log.Info().Str("surface", string(surface)).Uint64("gen", s.gen).Msg("camera session stopped")
}
