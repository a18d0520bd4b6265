// Command mockapi runs the in-memory strategy and backtest-agent backend.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/stratdesk/internal/config"
	"github.com/okian/stratdesk/internal/mockapi"
	"github.com/okian/stratdesk/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

// Process exit codes.
const (
	exitOK    = 0
	exitError = 1
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

// run serves until ctx is cancelled, a signal arrives or the listener fails.
// A listener failure yields exitError after shutdown.
func run(parent context.Context, args []string) int {
	fs := flag.NewFlagSet("mockapi", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (overrides mock_addr)")
	token := fs.String("token", "", "require this bearer token (overrides token)")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return exitError
	}
	if *addr != "" {
		cfg.MockAddr = *addr
	}
	if *token != "" {
		cfg.Token = *token
	}

	log := logger.Named("mockapi")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	srv := mockapi.NewServer(mockapi.NewStore(),
		mockapi.WithLogger(log),
		mockapi.WithToken(cfg.Token))

	go startServiceMetricsUpdater(ctx, srv)

	httpSrv := &http.Server{
		Addr:              cfg.MockAddr,
		Handler:           srv.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.MockAddr), logger.Bool("auth", cfg.Token != ""))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	code := exitOK
	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error(ctx, "HTTP server failed", logger.Error(err))
		code = exitError
		stop()
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		code = exitError
	}
	log.Info(ctx, "server stopped")
	return code
}

// startServiceMetricsUpdater keeps the store gauges fresh between scrapes.
func startServiceMetricsUpdater(ctx context.Context, srv *mockapi.Server) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.RefreshMetrics()
		}
	}
}
