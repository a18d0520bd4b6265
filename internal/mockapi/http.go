package mockapi

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"

	"github.com/okian/stratdesk/pkg/backtest"
	"github.com/okian/stratdesk/pkg/logger"
	"github.com/okian/stratdesk/pkg/metrics"
	"github.com/okian/stratdesk/pkg/strategy"
)

// Envelope codes.
const (
	codeSuccess = 1
	codeFailure = 0
)

const maxImportSize = 1 << 20

type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// Server serves the fake backend routes.
type Server struct {
	store *Store
	log   logger.Logger
	token string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithToken requires every API call to carry this bearer token.
func WithToken(token string) ServerOption {
	return func(s *Server) { s.token = token }
}

// NewServer creates a Server over store.
func NewServer(store *Store, opts ...ServerOption) *Server {
	s := &Server{store: store, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	routes := []struct {
		pattern  string
		endpoint string
		h        http.HandlerFunc
	}{
		{"GET " + strategy.PathList, "strategies_list", s.handleList},
		{"GET " + strategy.PathDetail, "strategies_detail", s.handleDetail},
		{"POST " + strategy.PathCreate, "strategies_create", s.handleCreate},
		{"POST " + strategy.PathBatchCreate, "strategies_batch_create", s.handleBatchCreate},
		{"PUT " + strategy.PathUpdate, "strategies_update", s.handleUpdate},
		{"POST " + strategy.PathStop, "strategies_stop", s.handleSetStatus(StatusStopped)},
		{"POST " + strategy.PathStart, "strategies_start", s.handleSetStatus(StatusRunning)},
		{"DELETE " + strategy.PathDelete, "strategies_delete", s.handleDelete},
		{"POST " + strategy.PathBatchStart, "strategies_batch_start", s.handleBatchStatus(StatusRunning)},
		{"POST " + strategy.PathBatchStop, "strategies_batch_stop", s.handleBatchStatus(StatusStopped)},
		{"DELETE " + strategy.PathBatchDelete, "strategies_batch_delete", s.handleBatchDelete},
		{"POST " + strategy.PathTestConnection, "strategies_test_connection", s.handleTestConnection},
		{"GET " + strategy.PathTrades, "strategies_trades", s.handleTrades},
		{"GET " + strategy.PathPositions, "strategies_positions", s.handlePositions},
		{"GET " + strategy.PathEquityCurve, "strategies_equity_curve", s.handleEquityCurve},
		{"GET " + strategy.PathNotifications, "strategies_notifications", s.handleNotifications},
		{"POST " + strategy.PathImport, "strategies_import", s.handleImport},
		{"GET " + strategy.PathExport, "strategies_export", s.handleExport},
		{"POST " + strategy.PathSync, "strategies_sync", s.handleSync},
		{"POST " + backtest.PathStart, "agent_start", s.handleAgentStart},
		{"POST " + backtest.PathControl, "agent_control", s.handleAgentControl},
		{"GET " + backtest.PathStatus + "/{jobID}", "agent_status", s.handleAgentStatus},
	}
	for _, rt := range routes {
		mux.HandleFunc(rt.pattern, MetricsMiddleware(AuthMiddleware(rt.h, s.token), rt.endpoint))
	}
}

// Handler returns a ServeMux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// RefreshMetrics publishes store gauges.
func (s *Server) RefreshMetrics() {
	total, running := s.store.Counts()
	metrics.UpdateStrategyCounts(total, running)
	metrics.UpdateAgentJobs(s.store.JobCounts())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.RefreshMetrics()
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeOK(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, envelope{Code: codeSuccess, Msg: "success", Data: data})
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(ctx, "request failed", logger.Error(err))
	} else {
		s.log.Debug(ctx, "request rejected", logger.Int("status", status), logger.Error(err))
	}
	writeEnvelope(w, status, envelope{Code: codeFailure, Msg: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrUnknownAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(op string, r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return wrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// queryInt64 reads an optional integer query parameter.
func queryInt64(op string, r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, wrapKind(op, ErrBadRequest, err)
	}
	return v, nil
}

// requireID reads the mandatory id query parameter.
func requireID(op string, r *http.Request) (int64, error) {
	id, err := queryInt64(op, r, "id")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, wrapKind(op, ErrBadRequest, errMissingID)
	}
	return id, nil
}
