package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/config"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/db"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/logging"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/server"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "laicafm",
	Short:   "LaicaFM - Internet radio station coordinator",
	Long:    "LaicaFM coordinates a shared radio playback state, websocket listeners, song library, playlists and chat.",
	Version: version.Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LaicaFM server",
	Long:  "Start the HTTP API server, websocket hub and background workers",
	RunE:  runServe,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the database schema",
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("LaicaFM starting")

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	httpServer := srv.HTTPServer()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}

	logger.Info().Msg("LaicaFM stopped")
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if err := db.Reset(database); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("recreate schema: %w", err)
	}

	logger.Info().Msg("database schema reset")
	return nil
}
