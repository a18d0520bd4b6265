// Command stratctl calls the strategy-management and backtest-agent APIs
// from the shell.
//
//	stratctl [global flags] <group> <command> [flags]
//
// Groups are strategy, agent and smoke. Response bodies are written to
// stdout; logs go to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/stratdesk/internal/config"
	"github.com/okian/stratdesk/pkg/backtest"
	"github.com/okian/stratdesk/pkg/logger"
	"github.com/okian/stratdesk/pkg/metrics"
	"github.com/okian/stratdesk/pkg/request"
	"github.com/okian/stratdesk/pkg/strategy"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const metricsReadHeaderTimeout = 5 * time.Second

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// env is what every command needs.
type env struct {
	cfg    *config.Config
	doer   request.Doer
	strat  *strategy.Client
	agent  *backtest.Client
	log    logger.Logger
	out    io.Writer
	errOut io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stratctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	baseURL := fs.String("url", "", "backend base URL (overrides base_url)")
	token := fs.String("token", "", "bearer token (overrides token)")
	timeout := fs.Duration("timeout", 0, "per-request timeout (overrides timeout)")
	level := fs.String("log-level", "", "debug, info, warn or error (overrides log_level)")
	fs.Usage = func() { usage(fs, stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return exitError
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	_ = logger.Init(logger.WithOutput(stderr), logger.WithFormat(logger.Format(cfg.LogFormat)))
	log := logger.Named("stratctl")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(ctx, cfg.MetricsAddr, log)
		defer stopMetrics()
	}

	client := request.NewClient(
		request.WithBaseURL(cfg.BaseURL),
		request.WithTimeout(cfg.Timeout),
		request.WithToken(cfg.Token),
		request.WithUserAgent(cfg.UserAgent),
		request.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		request.WithRetry(cfg.MaxRetries),
		request.WithLogger(logger.Named("request")),
	)
	e := &env{
		cfg:    cfg,
		doer:   client,
		strat:  strategy.New(client),
		agent:  backtest.New(client),
		log:    log,
		out:    stdout,
		errOut: stderr,
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(fs, stderr)
		return exitUsage
	}
	cmd, cmdArgs, err := lookup(rest)
	if err != nil {
		fmt.Fprintln(stderr, err)
		usage(fs, stderr)
		return exitUsage
	}
	if err := cmd.run(ctx, e, cmdArgs); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return exitUsage
		}
		log.Error(ctx, "command failed", logger.String("command", strings.Join(rest[:min(2, len(rest))], " ")), logger.Error(err))
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
	return exitOK
}

// serveMetrics exposes the client metrics while the command runs.
func serveMetrics(ctx context.Context, addr string, log logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: metricsReadHeaderTimeout}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(ctx, "metrics server failed", logger.String("addr", addr), logger.Error(err))
		}
	}()
	return func() { _ = srv.Close() }
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "usage: stratctl [global flags] <group> <command> [flags]")
	fmt.Fprintln(w, "\nglobal flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	groups := make([]string, 0, len(commands))
	for g := range commands {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		fmt.Fprintf(w, "\n%s:\n", g)
		names := make([]string, 0, len(commands[g]))
		for n := range commands[g] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(w, "  %-16s %s\n", n, commands[g][n].help)
		}
	}
	fmt.Fprintln(w, "\nconfig: defaults < $"+config.EnvConfigFile+" YAML file < "+config.EnvPrefix+"* env < flags")
}
