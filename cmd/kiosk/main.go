package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"horus/internal/authclient"
	"horus/internal/camera"
	"horus/internal/chat"
	"horus/internal/config"
	"horus/internal/faceclient"
	"horus/internal/kiosk"
	"horus/internal/logging"
	"horus/internal/pipeline"
	"horus/internal/session"
	"horus/internal/violations"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("kiosk failed: %v", err)
	}
}

func run(cfg config.App) error {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	sess := session.NewStore(cfg.TokenFile)
	sess.Subscribe(func() {
		logger.Info().Msg("session ended, token removed")
	})

	auth := authclient.New(cfg.BackendURL+cfg.AuthPath, cfg.CallTimeout)
	faces := faceclient.New(cfg.BackendURL+cfg.FacePath, cfg.CallTimeout, cfg.FaceSkip)
	feeds := violations.New(cfg.BackendURL+cfg.ViolationPath, cfg.BackendURL+"/api", cfg.CallTimeout)
	chatClient := chat.New(cfg.BackendURL+cfg.ChatPath, cfg.CallTimeout)

	cameras := camera.NewController(deviceFactory(cfg), logger.With().Str("component", "camera").Logger())
	runner := pipeline.New(cameras, faces, sess, pipeline.Config{
		SettleDelay:  cfg.SettleDelay,
		DisplayDelay: cfg.DisplayDelay,
		CallTimeout:  cfg.CallTimeout,
	}, logger.With().Str("component", "pipeline").Logger())

	watcher := violations.NewWatcher(feeds, cfg.ViolationPollEvery, cfg.ViolationLimit,
		logger.With().Str("component", "violations").Logger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	server := kiosk.New(cfg, logger, sess, auth, faces, cameras, runner, watcher, feeds, chatClient)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("kiosk listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	// Stop pipeline and cameras before closing the listener so no device
	// outlives the process.
	runner.Stop()
	cameras.Stop(camera.SurfaceRegister)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("kiosk exited")
	return nil
}

func deviceFactory(cfg config.App) func() camera.Device {
	if cfg.CameraSource == "snapshot" && cfg.SnapshotURL != "" {
		return func() camera.Device {
			return camera.NewSnapshotDevice(cfg.SnapshotURL, cfg.CallTimeout)
		}
	}
	return func() camera.Device {
		return camera.NewFileDevice(cfg.FrameDir)
	}
}
