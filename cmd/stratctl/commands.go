package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"github.com/okian/stratdesk/internal/smoke"
	"github.com/okian/stratdesk/pkg/backtest"
	"github.com/okian/stratdesk/pkg/logger"
	"github.com/okian/stratdesk/pkg/request"
	"github.com/okian/stratdesk/pkg/strategy"
)

type command struct {
	help string
	run  func(ctx context.Context, e *env, args []string) error
}

//nolint:gochecknoglobals // command table
var commands = map[string]map[string]command{
	"strategy": {
		"list":            {"list strategies [-user N]", cmdList},
		"detail":          {"show one strategy -id N", idCommand((*strategy.Client).Detail)},
		"create":          {"create from -data/-data-file JSON", cmdCreate},
		"batch-create":    {"create one per symbol from -data/-data-file JSON", cmdBatchCreate},
		"update":          {"partial update -id N with -data/-data-file JSON", cmdUpdate},
		"start":           {"start -id N", idCommand((*strategy.Client).Start)},
		"stop":            {"stop -id N", idCommand((*strategy.Client).Stop)},
		"delete":          {"delete -id N", idCommand((*strategy.Client).Delete)},
		"batch-start":     {"start -ids 1,2 or -group G", batchCommand((*strategy.Client).BatchStart)},
		"batch-stop":      {"stop -ids 1,2 or -group G", batchCommand((*strategy.Client).BatchStop)},
		"batch-delete":    {"delete -ids 1,2 or -group G", batchCommand((*strategy.Client).BatchDelete)},
		"test-connection": {"check exchange config from -data/-data-file JSON", cmdTestConnection},
		"trades":          {"trade records -id N", idCommand((*strategy.Client).Trades)},
		"positions":       {"positions -id N", idCommand((*strategy.Client).Positions)},
		"equity":          {"equity curve -id N", idCommand((*strategy.Client).EquityCurve)},
		"notifications":   {"signals [-id N] [-limit N] [-since N]", cmdNotifications},
		"import":          {"upload an exported document -file PATH", cmdImport},
		"export":          {"download -id N to -out PATH (stdout when empty)", cmdExport},
		"sync":            {"sync positions -id N", idCommand((*strategy.Client).SyncPositions)},
	},
	"agent": {
		"start":   {"start optimization from -data/-data-file JSON, -metric/-iterations/-model override", cmdAgentStart},
		"control": {"-job ID -action pause|resume|stop", cmdAgentControl},
		"status":  {"-job ID", cmdAgentStatus},
		"watch":   {"poll -job ID until it finishes [-interval D]", cmdAgentWatch},
	},
	"smoke": {
		"run": {"full lifecycle against the backend [-symbols A,B] [-iterations N]", cmdSmoke},
	},
}

func lookup(args []string) (command, []string, error) {
	group, ok := commands[args[0]]
	if !ok {
		return command{}, nil, fmt.Errorf("unknown group %q", args[0])
	}
	if len(args) < 2 || strings.HasPrefix(args[1], "-") {
		if len(group) == 1 {
			for _, c := range group {
				return c, args[1:], nil
			}
		}
		return command{}, nil, fmt.Errorf("%s: missing command", args[0])
	}
	c, ok := group[args[1]]
	if !ok {
		return command{}, nil, fmt.Errorf("%s: unknown command %q", args[0], args[1])
	}
	return c, args[2:], nil
}

func newFlags(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.errOut)
	return fs
}

// dataFlags registers -data and -data-file.
func dataFlags(fs *flag.FlagSet) func(v any) error {
	inline := fs.String("data", "", "JSON body")
	file := fs.String("data-file", "", "path to a JSON body ('-' for stdin)")
	return func(v any) error {
		var raw []byte
		switch {
		case *inline != "" && *file != "":
			return fmt.Errorf("%w: -data and -data-file are exclusive", errUsage)
		case *inline != "":
			raw = []byte(*inline)
		case *file == "-":
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			raw = b
		case *file != "":
			b, err := os.ReadFile(*file)
			if err != nil {
				return err
			}
			raw = b
		default:
			return fmt.Errorf("%w: -data or -data-file is required", errUsage)
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		return nil
	}
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := cast.ToInt64E(part)
		if err != nil {
			return nil, fmt.Errorf("%w: bad id %q", errUsage, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// print writes the response body followed by a newline.
func (e *env) print(resp *request.Response, err error) error {
	if err != nil {
		return err
	}
	if _, err := e.out.Write(resp.Body); err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.out)
	return err
}

func requireID(fs *flag.FlagSet, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s requires -id", errUsage, fs.Name())
	}
	return nil
}

func idCommand(call func(*strategy.Client, context.Context, int64) (*request.Response, error)) func(context.Context, *env, []string) error {
	return func(ctx context.Context, e *env, args []string) error {
		fs := newFlags(e, "strategy")
		id := fs.Int64("id", 0, "strategy id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := requireID(fs, *id); err != nil {
			return err
		}
		return e.print(call(e.strat, ctx, *id))
	}
}

func batchCommand(call func(*strategy.Client, context.Context, strategy.BatchRequest) (*request.Response, error)) func(context.Context, *env, []string) error {
	return func(ctx context.Context, e *env, args []string) error {
		fs := newFlags(e, "strategy batch")
		ids := fs.String("ids", "", "comma separated strategy ids")
		group := fs.String("group", "", "strategy group id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		req := strategy.BatchRequest{StrategyGroupID: *group}
		if *ids != "" {
			parsed, err := parseIDs(*ids)
			if err != nil {
				return err
			}
			req.StrategyIDs = parsed
		}
		if len(req.StrategyIDs) == 0 && req.StrategyGroupID == "" {
			return fmt.Errorf("%w: -ids or -group is required", errUsage)
		}
		return e.print(call(e.strat, ctx, req))
	}
}

func cmdList(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "strategy list")
	user := fs.Int64("user", 0, "filter by user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return e.print(e.strat.List(ctx, strategy.ListParams{UserID: *user}))
}

func cmdCreate(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "strategy create")
	body := dataFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	var req strategy.CreateRequest
	if err := body(&req); err != nil {
		return err
	}
	return e.print(e.strat.Create(ctx, req))
}

func cmdBatchCreate(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "strategy batch-create")
	body := dataFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	var req strategy.BatchCreateRequest
	if err := body(&req); err != nil {
		return err
	}
	return e.print(e.strat.BatchCreate(ctx, req))
}

func cmdUpdate(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "strategy update")
	id := fs.Int64("id", 0, "strategy id")
	body := dataFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	var req strategy.UpdateRequest
	if err := body(&req); err != nil {
		return err
	}
	return e.print(e.strat.Update(ctx, *id, req))
}

func cmdTestConnection(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "strategy test-connection")
	body := dataFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	var cfg strategy.Config
	if err := body(&cfg); err != nil {
		return err
	}
	return e.print(e.strat.TestConnection(ctx, cfg))
}

func cmdNotifications(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "strategy notifications")
	id := fs.Int64("id", 0, "strategy id")
	limit := fs.Int("limit", 0, "max items")
	since := fs.Int64("since", 0, "only items with a greater id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return e.print(e.strat.Notifications(ctx, strategy.NotificationParams{ID: *id, Limit: *limit, SinceID: *since}))
}

func cmdImport(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "strategy import")
	path := fs.String("file", "", "exported strategy document")
	user := fs.Int64("user", 0, "owner user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: -file is required", errUsage)
	}
	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var fields map[string]string
	if *user != 0 {
		fields = map[string]string{"user_id": cast.ToString(*user)}
	}
	name := (*path)[strings.LastIndexAny(*path, `/\`)+1:]
	return e.print(e.strat.Import(ctx, strategy.ImportFile{Name: name, Content: f, Fields: fields}))
}

func cmdExport(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "strategy export")
	id := fs.Int64("id", 0, "strategy id")
	out := fs.String("out", "", "output file (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	resp, err := e.strat.Export(ctx, *id)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = e.out.Write(resp.Body)
		return err
	}
	if err := os.WriteFile(*out, resp.Body, 0o600); err != nil {
		return err
	}
	e.log.Info(ctx, "exported strategy", logger.Int64("id", *id), logger.String("file", *out), logger.Int("bytes", len(resp.Body)))
	return nil
}

func cmdAgentStart(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "agent start")
	body := dataFlags(fs)
	metric := fs.String("metric", "", "target metric: sharpeRatio, totalReturn or winRate")
	iterations := fs.Int("iterations", 0, "max iterations")
	model := fs.String("model", "", "LLM model")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var req backtest.StartRequest
	if err := body(&req); err != nil {
		return err
	}
	if *metric != "" {
		req.TargetMetric = backtest.TargetMetric(*metric)
	}
	if *iterations > 0 {
		req.MaxIterations = *iterations
	}
	if *model != "" {
		req.Model = *model
	}
	return e.print(e.agent.StartOptimization(ctx, req))
}

func jobFlag(fs *flag.FlagSet) *string {
	return fs.String("job", "", "job id")
}

func requireJob(job string) error {
	if job == "" {
		return fmt.Errorf("%w: -job is required", errUsage)
	}
	return nil
}

func cmdAgentControl(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "agent control")
	job := jobFlag(fs)
	action := fs.String("action", "", "pause, resume or stop")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireJob(*job); err != nil {
		return err
	}
	if *action == "" {
		return fmt.Errorf("%w: -action is required", errUsage)
	}
	return e.print(e.agent.ControlJob(ctx, *job, backtest.Action(*action)))
}

func cmdAgentStatus(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "agent status")
	job := jobFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireJob(*job); err != nil {
		return err
	}
	return e.print(e.agent.JobStatus(ctx, *job))
}

func cmdAgentWatch(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "agent watch")
	job := jobFlag(fs)
	interval := fs.Duration("interval", e.cfg.PollInterval, "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireJob(*job); err != nil {
		return err
	}
	final, err := backtest.Watch(ctx, e.agent, *job, *interval, func(st backtest.JobStatus) error {
		e.log.Info(ctx, "job progress",
			logger.String("job", st.ID),
			logger.String("status", string(st.Status)),
			logger.Int("iteration", st.CurrentIteration),
			logger.Int("max_iterations", st.MaxIterations))
		return nil
	})
	if err != nil {
		return err
	}
	b, err := json.Marshal(final)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.out, string(b))
	return err
}

func cmdSmoke(ctx context.Context, e *env, args []string) error {
	cfg := smoke.DefaultConfig()
	fs := newFlags(e, "smoke")
	symbols := fs.String("symbols", strings.Join(cfg.Symbols, ","), "comma separated symbols")
	iterations := fs.Int("iterations", cfg.MaxIterations, "agent job iterations")
	user := fs.Int64("user", cfg.UserID, "owner user id")
	readers := fs.Int("readers", cfg.Readers, "concurrent readers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Symbols = strings.Split(*symbols, ",")
	cfg.MaxIterations = *iterations
	cfg.UserID = *user
	cfg.Readers = *readers
	cfg.PollInterval = e.cfg.PollInterval

	stats, err := smoke.NewRunner(e.doer, cfg, e.log.Named("smoke")).Run(ctx)
	for _, st := range stats.Steps {
		status := "ok"
		if st.Err != nil {
			status = "FAIL"
		}
		fmt.Fprintf(e.out, "%-14s %-4s %s\n", st.Name, status, st.Duration.Round(time.Microsecond))
	}
	fmt.Fprintf(e.out, "requests=%d strategies=%d job=%s state=%s duration=%s\n",
		stats.Requests, stats.Strategies, stats.JobID, stats.JobState, stats.Duration.Round(time.Millisecond))
	return err
}
