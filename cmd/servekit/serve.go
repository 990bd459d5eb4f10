package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/servekit/config"
	"github.com/sagarc03/servekit/filesystem"
	servehttp "github.com/sagarc03/servekit/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serve the configured root directory under the configured URL prefix.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port (env: SERVEKIT_SERVER_PORT)")
	serveCmd.Flags().String("root", "", "directory to serve (default: ./public, env: SERVEKIT_STATIC_ROOT)")
	serveCmd.Flags().String("prefix", "", "URL prefix of served files (default: /)")
	serveCmd.Flags().String("dotfiles", "", "dotfile policy: ignore, allow, deny")
	serveCmd.Flags().Duration("max-age", 0, "Cache-Control max-age (default: 8760h)")
	serveCmd.Flags().Bool("immutable", false, "add the immutable Cache-Control directive")
	serveCmd.Flags().Bool("sniff", false, "detect content type from content when the extension is unknown")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	info, err := os.Stat(cfg.Static.Root)
	if err != nil {
		return fmt.Errorf("open static root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("static root %s is not a directory", cfg.Static.Root)
	}

	logger := slog.Default()

	hc, err := cfg.Handler()
	if err != nil {
		return err
	}

	handler, err := servehttp.NewHandler(hc, filesystem.NewStore(), logger)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	return serve(cmd.Context(), cfg.Server, handler.Router(), logger)
}

func serve(ctx context.Context, cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
