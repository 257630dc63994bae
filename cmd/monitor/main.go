package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"horus/internal/config"
	"horus/internal/logging"
	"horus/internal/violations"
)

// Monitor follows the violation feed headlessly and logs every new violation,
// for sites that want the log without running the kiosk UI.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	feed := violations.New(cfg.BackendURL+cfg.ViolationPath, cfg.BackendURL+"/api", cfg.CallTimeout)
	watcher := violations.NewWatcher(feed, cfg.ViolationPollEvery, cfg.ViolationLimit,
		logger.With().Str("component", "violations").Logger())

	go watcher.Run(ctx)

	logger.Info().
		Str("backend", cfg.BackendURL).
		Dur("interval", cfg.ViolationPollEvery).
		Msg("monitor started, following violation feed")

	for v := range watcher.Events() {
		logger.Warn().
			Str("id", v.ID).
			Str("time", v.Timestamp).
			Any("camera", v.CameraID).
			Str("person", v.PersonName).
			Str("type", v.ViolationType).
			Str("class", v.ClassName).
			Msg("violation detected")
	}

	logger.Info().Msg("monitor stopped")
}
