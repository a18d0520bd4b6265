// Package smoke drives a full strategy and agent lifecycle against a live
// backend and reports per-step timings.
package smoke

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/okian/stratdesk/pkg/backtest"
	"github.com/okian/stratdesk/pkg/logger"
	"github.com/okian/stratdesk/pkg/request"
	"github.com/okian/stratdesk/pkg/strategy"
)

// Runner executes the lifecycle.
type Runner struct {
	cfg      Config
	log      logger.Logger
	requests atomic.Int64
	strat    *strategy.Client
	agent    *backtest.Client
}

// NewRunner builds a Runner dispatching through doer.
func NewRunner(doer request.Doer, cfg Config, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	r := &Runner{cfg: cfg, log: log}
	counted := request.DoerFunc(func(ctx context.Context, d request.Descriptor) (*request.Response, error) {
		r.requests.Add(1)
		return doer.Do(ctx, d)
	})
	r.strat = strategy.New(counted)
	r.agent = backtest.New(counted)
	return r
}

// lifecycle carries ids between steps.
type lifecycle struct {
	groupID  string
	ids      []int64
	primary  int64
	export   []byte
	imported int64
	jobID    string
	jobState backtest.State
}

// Run executes every step in order and stops at the first failure. Stats
// are returned in both cases.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	lc := &lifecycle{}

	r.log.Info(ctx, "starting smoke run",
		logger.Int("symbols", len(r.cfg.Symbols)),
		logger.Int("max_iterations", r.cfg.MaxIterations))

	steps := []struct {
		name string
		fn   func(context.Context, *lifecycle) error
	}{
		{"batch_create", r.batchCreate},
		{"list", r.list},
		{"detail", r.detail},
		{"update", r.update},
		{"start", r.start},
		{"reads", r.reads},
		{"sync", r.sync},
		{"export", r.export},
		{"import", r.importDoc},
		{"stop", r.stop},
		{"batch_stop", r.batchStop},
		{"batch_delete", r.batchDelete},
		{"agent", r.agentJob},
	}

	var runErr error
	for _, st := range steps {
		begin := time.Now()
		err := st.fn(ctx, lc)
		step := Step{Name: st.name, Duration: time.Since(begin), Err: err}
		stats.Steps = append(stats.Steps, step)
		if err != nil {
			r.log.Error(ctx, "smoke step failed", logger.String("step", st.name), logger.Error(err))
			runErr = fmt.Errorf("%w: %s: %w", ErrStep, st.name, err)
			break
		}
		r.log.Debug(ctx, "smoke step passed", logger.String("step", st.name), logger.Duration("elapsed", step.Duration))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	stats.Requests = int(r.requests.Load())
	stats.Strategies = len(lc.ids)
	if lc.imported != 0 {
		stats.Strategies++
	}
	stats.JobID = lc.jobID
	stats.JobState = string(lc.jobState)

	r.log.Info(ctx, "smoke run finished",
		logger.Int("steps", len(stats.Steps)),
		logger.Int("requests", stats.Requests),
		logger.Duration("duration", stats.Duration),
		logger.Bool("ok", runErr == nil))
	return stats, runErr
}

// decodeOK checks the envelope code and decodes data into v when v is
// non-nil.
func decodeOK(resp *request.Response, v any) error {
	env, err := resp.Envelope()
	if err != nil {
		return err
	}
	if env.Code != 1 {
		return fmt.Errorf("%w: code %d: %s", ErrRejected, env.Code, env.Msg)
	}
	if v == nil {
		return nil
	}
	return resp.DecodeData(v)
}

func (r *Runner) batchCreate(ctx context.Context, lc *lifecycle) error {
	resp, err := r.strat.BatchCreate(ctx, strategy.BatchCreateRequest{
		UserID:        r.cfg.UserID,
		StrategyName:  r.cfg.StrategyName,
		Symbols:       r.cfg.Symbols,
		StrategyType:  "IndicatorStrategy",
		TradingConfig: strategy.Config{"timeframe": "1h", "leverage": 1},
	})
	if err != nil {
		return err
	}
	var out struct {
		GroupID string  `json:"strategy_group_id"`
		IDs     []int64 `json:"strategy_ids"`
	}
	if err := decodeOK(resp, &out); err != nil {
		return err
	}
	if len(out.IDs) != len(r.cfg.Symbols) {
		return fmt.Errorf("%w: created %d strategies for %d symbols", ErrMismatch, len(out.IDs), len(r.cfg.Symbols))
	}
	lc.groupID, lc.ids, lc.primary = out.GroupID, out.IDs, out.IDs[0]
	return nil
}

func (r *Runner) list(ctx context.Context, lc *lifecycle) error {
	resp, err := r.strat.List(ctx, strategy.ListParams{UserID: r.cfg.UserID})
	if err != nil {
		return err
	}
	var out struct {
		Strategies []struct {
			ID int64 `json:"id"`
		} `json:"strategies"`
	}
	if err := decodeOK(resp, &out); err != nil {
		return err
	}
	seen := make(map[int64]bool, len(out.Strategies))
	for _, s := range out.Strategies {
		seen[s.ID] = true
	}
	for _, id := range lc.ids {
		if !seen[id] {
			return fmt.Errorf("%w: strategy %d missing from list", ErrMismatch, id)
		}
	}
	return nil
}

func (r *Runner) detail(ctx context.Context, lc *lifecycle) error {
	resp, err := r.strat.Detail(ctx, lc.primary)
	if err != nil {
		return err
	}
	return decodeOK(resp, nil)
}

func (r *Runner) update(ctx context.Context, lc *lifecycle) error {
	name := r.cfg.StrategyName + "-updated"
	if _, err := r.strat.Update(ctx, lc.primary, strategy.UpdateRequest{StrategyName: name}); err != nil {
		return err
	}
	resp, err := r.strat.Detail(ctx, lc.primary)
	if err != nil {
		return err
	}
	var out struct {
		StrategyName string `json:"strategy_name"`
	}
	if err := decodeOK(resp, &out); err != nil {
		return err
	}
	if out.StrategyName != name {
		return fmt.Errorf("%w: name %q after update", ErrMismatch, out.StrategyName)
	}
	return nil
}

func (r *Runner) start(ctx context.Context, lc *lifecycle) error {
	resp, err := r.strat.Start(ctx, lc.primary)
	if err != nil {
		return err
	}
	return decodeOK(resp, nil)
}

// reads fans the per-strategy read endpoints out over a bounded pool.
func (r *Runner) reads(ctx context.Context, lc *lifecycle) error {
	readers := r.cfg.Readers
	if readers <= 0 {
		readers = 1
	}
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(readers)
	for _, id := range lc.ids {
		calls := []func(context.Context) (*request.Response, error){
			func(ctx context.Context) (*request.Response, error) { return r.strat.Trades(ctx, id) },
			func(ctx context.Context) (*request.Response, error) { return r.strat.Positions(ctx, id) },
			func(ctx context.Context) (*request.Response, error) { return r.strat.EquityCurve(ctx, id) },
			func(ctx context.Context) (*request.Response, error) {
				return r.strat.Notifications(ctx, strategy.NotificationParams{ID: id, Limit: 20})
			},
		}
		for _, call := range calls {
			p.Go(func(ctx context.Context) error {
				resp, err := call(ctx)
				if err != nil {
					return err
				}
				return decodeOK(resp, nil)
			})
		}
	}
	return p.Wait()
}

func (r *Runner) sync(ctx context.Context, lc *lifecycle) error {
	resp, err := r.strat.SyncPositions(ctx, lc.primary)
	if err != nil {
		return err
	}
	return decodeOK(resp, nil)
}

func (r *Runner) export(ctx context.Context, lc *lifecycle) error {
	resp, err := r.strat.Export(ctx, lc.primary)
	if err != nil {
		return err
	}
	if len(resp.Body) == 0 {
		return fmt.Errorf("%w: empty export", ErrMismatch)
	}
	lc.export = resp.Body
	return nil
}

func (r *Runner) importDoc(ctx context.Context, lc *lifecycle) error {
	resp, err := r.strat.Import(ctx, strategy.ImportFile{
		Name:    fmt.Sprintf("strategy_%d.json", lc.primary),
		Content: strings.NewReader(string(lc.export)),
		Fields:  map[string]string{"user_id": fmt.Sprint(r.cfg.UserID)},
	})
	if err != nil {
		return err
	}
	var out struct {
		ID int64 `json:"id"`
	}
	if err := decodeOK(resp, &out); err != nil {
		return err
	}
	if out.ID == 0 {
		return fmt.Errorf("%w: import returned no id", ErrMismatch)
	}
	lc.imported = out.ID
	return nil
}

func (r *Runner) stop(ctx context.Context, lc *lifecycle) error {
	resp, err := r.strat.Stop(ctx, lc.primary)
	if err != nil {
		return err
	}
	return decodeOK(resp, nil)
}

func (r *Runner) batchStop(ctx context.Context, lc *lifecycle) error {
	resp, err := r.strat.BatchStop(ctx, strategy.BatchRequest{StrategyGroupID: lc.groupID})
	if err != nil {
		return err
	}
	return decodeOK(resp, nil)
}

func (r *Runner) batchDelete(ctx context.Context, lc *lifecycle) error {
	ids := append([]int64(nil), lc.ids...)
	if lc.imported != 0 {
		ids = append(ids, lc.imported)
	}
	resp, err := r.strat.BatchDelete(ctx, strategy.BatchRequest{StrategyIDs: ids})
	if err != nil {
		return err
	}
	return decodeOK(resp, nil)
}

func (r *Runner) agentJob(ctx context.Context, lc *lifecycle) error {
	resp, err := r.agent.StartOptimization(ctx, backtest.StartRequest{
		Config:        map[string]any{"symbol": "BTC/USDT", "timeframe": "1h", "initial_capital": 10000},
		StrategyCode:  "# smoke",
		TargetMetric:  backtest.TargetSharpeRatio,
		MaxIterations: r.cfg.MaxIterations,
	})
	if err != nil {
		return err
	}
	started, err := backtest.DecodeStart(resp)
	if err != nil {
		return err
	}
	lc.jobID = started.JobID

	for _, action := range []backtest.Action{backtest.ActionPause, backtest.ActionResume} {
		resp, err := r.agent.ControlJob(ctx, lc.jobID, action)
		if err != nil {
			return err
		}
		if err := decodeOK(resp, nil); err != nil {
			return err
		}
	}

	resp, err = r.agent.JobStatus(ctx, lc.jobID)
	if err != nil {
		return err
	}
	st, err := backtest.DecodeStatus(resp)
	if err != nil {
		return err
	}
	lc.jobState = st.Status
	if st.IsTerminal() {
		return nil
	}

	if resp, err = r.agent.Stop(ctx, lc.jobID); err != nil {
		return err
	}
	if err := decodeOK(resp, nil); err != nil {
		return err
	}

	final, err := backtest.Watch(ctx, r.agent, lc.jobID, r.cfg.PollInterval, nil)
	if err != nil {
		return err
	}
	lc.jobState = final.Status
	if final.Status != backtest.StateCancelled {
		return fmt.Errorf("%w: job %s ended %s", ErrMismatch, lc.jobID, final.Status)
	}
	return nil
}
