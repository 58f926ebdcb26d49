package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tasktracker/internal/assistant"
	"tasktracker/internal/config"
	"tasktracker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API for the board",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address")
	serveCmd.Flags().String("static", "", "directory with the built frontend")
	mustBindFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	mustBindFlag("server.static_dir", serveCmd.Flags().Lookup("static"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := openStore(os.Stdout)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("tasktracker starting", slog.String("version", version), slog.String("db", cfg.Database.Path))

	watchCtx, stopWatch := context.WithCancel(cmd.Context())
	defer stopWatch()

	settings := config.NewSettingsStore(v, cfgFile, logger)
	if err := settings.Watch(watchCtx); err != nil {
		logger.Warn("config hot reload disabled", slog.String("error", err.Error()))
	}

	bridge := assistant.NewBridge(store, settings, assistant.WithLogger(logger))

	srv := server.New(store, bridge, settings, logger, server.Options{
		StaticDir:      cfg.Server.StaticDir,
		CORSOrigins:    cfg.Server.CORSOrigins,
		AssistantRate:  cfg.Server.AssistantRate,
		AssistantBurst: cfg.Server.AssistantBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err, ok := <-errCh:
		if ok {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}
