// In file: cmd/assistant/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dileep-u-k/pmo-assistant/internal/app"
	"github.com/dileep-u-k/pmo-assistant/internal/config"
	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/version"
)

// main is the composition root: it loads configuration, builds the registry
// and the agent, and serves the chat endpoint until SIGINT or SIGTERM.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	build := version.Get()
	logger.Info().
		Str("version", build.Version).
		Str("commit", build.GitCommit).
		Str("components", build.Components).
		Strs("config_sources", cfg.Sources).
		Msg("starting PMO assistant")

	registry, err := app.BuildRegistry(cfg, logger)
	if err != nil {
		exit(logger, err, "failed to build tools")
	}

	ctx := context.Background()
	assistant, err := app.BuildAssistant(ctx, cfg, registry, logger)
	if err != nil {
		exit(logger, err, "failed to build agent")
	}
	defer assistant.Close()

	gin.SetMode(cfg.Server.Mode)
	handler := NewChatHandler(assistant.Agent, registry, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	runServerWithGracefulShutdown(srv, cfg.Server.ShutdownTimeout, logger)
}

// runServerWithGracefulShutdown handles the server lifecycle.
func runServerWithGracefulShutdown(srv *http.Server, timeout time.Duration, logger *logging.Logger) {
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			exit(logger, err, "listen error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return
	}
	logger.Info().Msg("server exited")
}

func exit(logger *logging.Logger, err error, msg string) {
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}
