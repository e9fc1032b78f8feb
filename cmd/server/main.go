package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/promptgallery/internal/app"
	"github.com/charlesng35/promptgallery/internal/server"
	"github.com/charlesng35/promptgallery/pkg/logger"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	default:
		fmt.Fprintln(os.Stderr, "promptgallery:", err)
		os.Exit(1)
	}
}

// run wires the gallery stack from the command line and serves it until ctx
// is cancelled.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("promptgallery", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	configPath := fs.String("config", "", "configuration directory or config.yaml path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(*configPath)
	if err != nil {
		return err
	}
	if err := app.ConfigureLogging(cfg.Server); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync()

	stack, err := server.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Server.Port)),
		Handler:           stack.Router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serveErr := serve(ctx, srv, logger.WithModule("http"))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, stack.Shutdown(shutdownCtx))
}

// serve runs srv until it fails or ctx ends, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	failed := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		failed <- srv.ListenAndServe()
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("draining connections", zap.Duration("timeout", shutdownTimeout))
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	if err := <-failed; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("stopped")
	return nil
}

// loadApplicationConfig accepts either a directory holding config.yaml or the
// file itself. An empty path falls back to the default search locations.
func loadApplicationConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config path %q does not exist", path)
	case err != nil:
		return nil, fmt.Errorf("stat config path: %w", err)
	case !info.IsDir():
		path = filepath.Dir(path)
	}
	return app.LoadConfig(path)
}
