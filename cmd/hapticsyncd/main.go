// Package main wires together the hapticsync service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/api"
	"github.com/hapticlabs/hapticsync/internal/app"
	"github.com/hapticlabs/hapticsync/internal/config"
	"github.com/hapticlabs/hapticsync/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	filePath := flag.String("file", "", "Analysis document to play once and exit")
	audioPath := flag.String("audio", "", "Audio file override for -file mode")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("service init failed", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	if *filePath != "" {
		os.Exit(playOnce(ctx, container, logger, *filePath, *audioPath))
	}

	serve(ctx, stop, container, cfg, logger)
}

// playOnce runs a single session to completion and returns the exit code.
func playOnce(ctx context.Context, container *app.App, logger *zap.Logger, analysisPath, audioPath string) int {
	go func() {
		<-ctx.Done()
		container.StopSession()
	}()

	res, err := container.PlaySession(ctx, app.PlayRequest{
		AnalysisPath: analysisPath,
		AudioPath:    audioPath,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("playback failed",
			zap.String("fault", string(res.Fault)),
			zap.Error(err),
		)
		return 1
	}
	logger.Info("playback finished", zap.Duration("runtime", res.Runtime))
	return 0
}

func serve(ctx context.Context, stop context.CancelFunc, container *app.App, cfg config.Config, logger *zap.Logger) {
	apiServer := api.NewServer(container, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	// Stop any running session before taking the server down so outputs
	// land at neutral.
	container.StopSession()
	waitForIdle(container)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func waitForIdle(container *app.App) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, running := container.Supervisor().CurrentSession(); !running {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
