package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string
	HTTPPort string

	BackendURL    string
	AuthPath      string
	FacePath      string
	ViolationPath string
	ChatPath      string

	TokenFile string

	CameraSource string
	SnapshotURL  string
	FrameDir     string

	SettleDelay  time.Duration
	DisplayDelay time.Duration
	CallTimeout  time.Duration

	ViolationPollEvery time.Duration
	ViolationLimit     int

	FaceSkip bool

	RateLimitPerMin int

	LogLevel  string
	LogFormat string
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPPort: getEnv("HTTP_PORT", "8090"),

		BackendURL:    getEnv("BACKEND_URL", "http://localhost:8000"),
		AuthPath:      getEnv("AUTH_PATH", "/api/auth"),
		FacePath:      getEnv("FACE_PATH", "/api/face-recognition"),
		ViolationPath: getEnv("VIOLATION_PATH", "/api/violations"),
		ChatPath:      getEnv("CHAT_PATH", "/chatagent"),

		TokenFile: getEnv("TOKEN_FILE", "horus-token"),

		CameraSource: getEnv("CAMERA_SOURCE", "file"),
		SnapshotURL:  getEnv("CAMERA_SNAPSHOT_URL", ""),
		FrameDir:     getEnv("CAMERA_FRAME_DIR", "testdata/frames"),

		SettleDelay:  durationEnv("SETTLE_DELAY", 1500*time.Millisecond),
		DisplayDelay: durationEnv("DISPLAY_DELAY", 2*time.Second),
		CallTimeout:  durationEnv("CALL_TIMEOUT", 15*time.Second),

		ViolationPollEvery: durationEnv("VIOLATION_POLL_EVERY", 10*time.Second),
		ViolationLimit:     intEnv("VIOLATION_LIMIT", 20),

		FaceSkip: boolEnv("FACE_SKIP", false),

		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
