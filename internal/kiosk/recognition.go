package kiosk

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"horus/internal/camera"
	"horus/internal/pipeline"
	"horus/internal/validate"
)

func (s *Server) handleRecognitionStart(c *gin.Context) {
	// Surface switch: the register camera may not stay live while the
	// recognize surface owns the screen.
	s.cameras.StopOthers(camera.SurfaceRecognize)
	s.dropHeldFrame()

	// The run outlives the request; handlers poll /recognition/status.
	if err := s.runner.Start(context.Background()); err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "recognition started"})
}

func (s *Server) handleRecognitionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Snapshot())
}

func (s *Server) handleRecognitionStop(c *gin.Context) {
	s.runner.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "recognition stopped"})
}

func (s *Server) handleRegisterCapture(c *gin.Context) {
	s.cameras.StopOthers(camera.SurfaceRegister)

	ctx := c.Request.Context()
	if !s.cameras.Active(camera.SurfaceRegister) {
		if _, err := s.cameras.Start(ctx, camera.SurfaceRegister); err != nil {
			s.fail(c, err)
			return
		}
	}
	img, err := s.cameras.Capture(ctx, camera.SurfaceRegister)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.holdFrame(img)
	c.JSON(http.StatusOK, gin.H{"message": "Image captured for registration"})
}

type registerRequest struct {
	Name         string `json:"name" binding:"required"`
	EmployeeType string `json:"employee_type"`
}

func (s *Server) handleRegisterSubmit(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validate.ValidName(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide name and capture an image using the camera"})
		return
	}
	if req.EmployeeType == "" {
		req.EmployeeType = "employee"
	}

	img, ok := s.takeHeldFrame()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide name and capture an image using the camera"})
		return
	}

	org, err := s.session.OrgEmail()
	if err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.faces.RegisterFace(c.Request.Context(), org, req.Name, req.EmployeeType, img)
	if err != nil {
		// The frame was consumed; the user recaptures on retry.
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRegisterStop(c *gin.Context) {
	s.cameras.Stop(camera.SurfaceRegister)
	s.dropHeldFrame()
	c.JSON(http.StatusOK, gin.H{"message": "camera stopped"})
}

func (s *Server) holdFrame(img camera.Image) {
	s.heldMu.Lock()
	defer s.heldMu.Unlock()
	s.held = &img
}

// takeHeldFrame consumes the held frame; a captured image is used once.
func (s *Server) takeHeldFrame() (camera.Image, bool) {
	s.heldMu.Lock()
	defer s.heldMu.Unlock()
	if s.held == nil {
		return camera.Image{}, false
	}
	img := *s.held
	s.held = nil
	return img, true
}

func (s *Server) dropHeldFrame() {
	s.heldMu.Lock()
	defer s.heldMu.Unlock()
	s.held = nil
}
