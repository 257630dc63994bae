package kiosk

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"horus/internal/camera"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"authenticated":    s.session.Authenticated(),
		"register_camera":  s.cameras.Active(camera.SurfaceRegister),
		"recognize_camera": s.cameras.Active(camera.SurfaceRecognize),
	})
}

func (s *Server) handleUsers(c *gin.Context) {
	org, err := s.session.OrgEmail()
	if err != nil {
		s.fail(c, err)
		return
	}
	users, err := s.faces.RegisteredUsers(c.Request.Context(), org)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	org, err := s.session.OrgEmail()
	if err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.faces.DeleteUser(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAttendance(c *gin.Context) {
	org, err := s.session.OrgEmail()
	if err != nil {
		s.fail(c, err)
		return
	}
	report, err := s.faces.Attendance(c.Request.Context(), org, c.Query("date"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleViolations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"violations": s.watcher.Latest()})
}

func (s *Server) handleCameraFeed(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera_id": id, "feed_url": s.feeds.CameraFeedURL(id)})
}

type chatRequest struct {
	Query string `json:"query" binding:"required"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := s.chat.Chat(c.Request.Context(), req.Query)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

type predictRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Server) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	word, err := s.chat.Predict(c.Request.Context(), req.Prompt)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_word": word})
}
