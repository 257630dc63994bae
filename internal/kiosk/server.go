// Package kiosk is the agent's local HTTP surface: the API the terminal's
// touchscreen UI talks to.
package kiosk

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"horus/internal/authclient"
	"horus/internal/backend"
	"horus/internal/camera"
	"horus/internal/chat"
	"horus/internal/config"
	"horus/internal/faceclient"
	"horus/internal/httpmiddleware"
	"horus/internal/pipeline"
	"horus/internal/session"
	"horus/internal/violations"
)

// Server wires the kiosk components behind the local API.
type Server struct {
	cfg     config.App
	log     zerolog.Logger
	session *session.Store
	auth    *authclient.Client
	faces   *faceclient.Client
	cameras *camera.Controller
	runner  *pipeline.Runner
	watcher *violations.Watcher
	feeds   *violations.Client
	chat    *chat.Client

	// Frame captured on the register surface, held until the user submits
	// a name and type.
	heldMu sync.Mutex
	held   *camera.Image
}

// New assembles the server.
func New(
	cfg config.App,
	log zerolog.Logger,
	sess *session.Store,
	auth *authclient.Client,
	faces *faceclient.Client,
	cameras *camera.Controller,
	runner *pipeline.Runner,
	watcher *violations.Watcher,
	feeds *violations.Client,
	chatClient *chat.Client,
) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		session: sess,
		auth:    auth,
		faces:   faces,
		cameras: cameras,
		runner:  runner,
		watcher: watcher,
		feeds:   feeds,
		chat:    chatClient,
	}
}

// Router builds the gin engine with the kiosk middleware stack.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(s.cfg.RateLimitPerMin, s.cfg.RateLimitPerMin).Middleware())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/auth/signup", s.handleSignup)
	v1.POST("/auth/signin", s.handleSignin)
	v1.POST("/auth/logout", s.handleLogout)
	v1.POST("/chat", s.handleChat)
	v1.POST("/chat/predict", s.handlePredict)

	authed := v1.Group("", s.requireSession())
	authed.GET("/auth/me", s.handleProfile)
	authed.PUT("/auth/profile", s.handleUpdateProfile)

	authed.POST("/recognition/start", s.handleRecognitionStart)
	authed.GET("/recognition/status", s.handleRecognitionStatus)
	authed.POST("/recognition/stop", s.handleRecognitionStop)

	authed.POST("/register/capture", s.handleRegisterCapture)
	authed.POST("/register", s.handleRegisterSubmit)
	authed.POST("/register/stop", s.handleRegisterStop)

	authed.GET("/users", s.handleUsers)
	authed.DELETE("/users/:id", s.handleDeleteUser)
	authed.GET("/attendance", s.handleAttendance)

	authed.GET("/violations", s.handleViolations)
	authed.GET("/cameras/:id/feed", s.handleCameraFeed)

	return r
}

// requireSession rejects requests without a live token. An expired token is
// deleted by the read itself; the caller only ever sees "please login".
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.session.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": session.ErrNotAuthenticated.Error()})
			return
		}
		c.Next()
	}
}

// fail converts the error taxonomy into an HTTP response: auth errors 401,
// camera capability errors 503, collaborator errors pass their status through,
// transport failures 502.
func (s *Server) fail(c *gin.Context, err error) {
	var capErr *camera.CapabilityError
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &capErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": capErr.Error()})
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status > 499 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": apiErr.Error()})
	case errors.Is(err, backend.ErrUnreachable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Backend not running. Please check your connection."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
