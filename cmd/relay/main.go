// cmd/relay/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/api"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/config"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/relay"
	"github.com/bail-wils/Support-Knowledge-Agent/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	svc, err := relay.FromConfig(cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialise relay")
	}

	router := api.NewRouter(&api.Services{
		Relay:        svc,
		FunctionName: cfg.Relay.FunctionName,
	}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("graph_backend", cfg.Graph.Backend).
			Str("output_mode", cfg.Relay.OutputMode).
			Bool("ledger", cfg.LedgerEnabled()).
			Msg("Starting relay handler")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// In-flight relays get a short grace period.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
