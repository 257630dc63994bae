package kiosk

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"horus/internal/authclient"
	"horus/internal/session"
	"horus/internal/validate"
)

type signupRequest struct {
	AdminName   string `json:"admin_name" binding:"required"`
	CompanyName string `json:"company_name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	ContactNo   string `json:"contact_no" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch {
	case !validate.ValidName(req.AdminName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Admin name is required"})
		return
	case !validate.ValidEmail(req.Email):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid email address"})
		return
	case !validate.ValidPhone(req.ContactNo):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid contact number"})
		return
	case !validate.ValidPassword(req.Password):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters with uppercase, lowercase and a number"})
		return
	}

	token, err := s.auth.Signup(c.Request.Context(), authclient.SignupRequest{
		AdminName:   req.AdminName,
		CompanyName: req.CompanyName,
		Email:       req.Email,
		ContactNo:   validate.FormatPhone("", req.ContactNo),
		Password:    req.Password,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.session.Save(token); err != nil {
		s.log.Error().Err(err).Msg("token save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

type signinRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSignin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := s.auth.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.session.Save(token); err != nil {
		s.log.Error().Err(err).Msg("token save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.session.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) handleProfile(c *gin.Context) {
	token, ok := s.session.Token()
	if !ok {
		s.fail(c, session.ErrNotAuthenticated)
		return
	}
	profile, err := s.auth.Profile(c.Request.Context(), token)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var update authclient.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if update.ContactNo != "" && !validate.ValidPhone(update.ContactNo) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid contact number"})
		return
	}
	token, ok := s.session.Token()
	if !ok {
		s.fail(c, session.ErrNotAuthenticated)
		return
	}
	profile, err := s.auth.UpdateProfile(c.Request.Context(), token, update)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
