// Package mockapi is an in-memory stand-in for the strategy and
// backtest-agent backend. It serves the same REST surface with the
// {code, msg, data} envelope so the clients can be exercised end to end.
package mockapi

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stratdesk/pkg/strategy"
)

// Strategy states.
const (
	StatusStopped = "stopped"
	StatusRunning = "running"
)

const (
	defaultMaxIterations = 10
	defaultMaxJobLogs    = 500
	defaultNotifyLimit   = 50
)

// Strategy is the stored strategy record.
type Strategy struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	StrategyName    string          `json:"strategy_name"`
	StrategyType    string          `json:"strategy_type,omitempty"`
	Status          string          `json:"status"`
	StrategyGroupID string          `json:"strategy_group_id,omitempty"`
	Symbol          string          `json:"symbol,omitempty"`
	LLMModelConfig  strategy.Config `json:"llm_model_config,omitempty"`
	IndicatorConfig strategy.Config `json:"indicator_config,omitempty"`
	ExchangeConfig  strategy.Config `json:"exchange_config,omitempty"`
	TradingConfig   strategy.Config `json:"trading_config,omitempty"`
	CreatedAt       int64           `json:"created_at"`
	UpdatedAt       int64           `json:"updated_at"`
}

// Notification is a persisted strategy signal.
type Notification struct {
	ID         int64  `json:"id"`
	StrategyID int64  `json:"strategy_id"`
	Level      string `json:"level"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	CreatedAt  int64  `json:"created_at"`
}

// Store holds strategies, notifications and agent jobs. It is safe for
// concurrent use.
type Store struct {
	mu sync.RWMutex

	strategies    map[int64]*Strategy
	nextID        int64
	notifications []Notification
	nextNotifyID  int64
	jobs          map[string]*job

	now        func() time.Time
	newJobID   func() string
	maxJobLogs int
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		strategies: make(map[int64]*Strategy),
		jobs:       make(map[string]*job),
		now:        time.Now,
		newJobID:   uuid.NewString,
		maxJobLogs: defaultMaxJobLogs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns strategies ordered by id, filtered by userID when non-zero.
func (s *Store) List(_ context.Context, userID int64) []Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		if userID != 0 && st.UserID != userID {
			continue
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns one strategy.
func (s *Store) Get(_ context.Context, id int64) (Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.strategies[id]
	if !ok {
		return Strategy{}, wrapKind("mockapi.get", ErrNotFound, fmt.Errorf("strategy %d", id))
	}
	return *st, nil
}

// Create stores a new stopped strategy.
func (s *Store) Create(_ context.Context, req strategy.CreateRequest) (Strategy, error) {
	if strings.TrimSpace(req.StrategyName) == "" {
		return Strategy{}, wrapKind("mockapi.create", ErrBadRequest, fmt.Errorf("missing strategy_name"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.insertLocked(req, "", "")
	return *st, nil
}

// BatchCreate stores one strategy per symbol under a fresh group id.
func (s *Store) BatchCreate(_ context.Context, req strategy.BatchCreateRequest) (string, []int64, error) {
	const op = "mockapi.batch_create"
	if strings.TrimSpace(req.StrategyName) == "" {
		return "", nil, wrapKind(op, ErrBadRequest, fmt.Errorf("missing strategy_name"))
	}
	if len(req.Symbols) == 0 {
		return "", nil, wrapKind(op, ErrBadRequest, fmt.Errorf("missing symbols"))
	}
	base := strategy.CreateRequest{
		UserID:          req.UserID,
		StrategyName:    req.StrategyName,
		StrategyType:    req.StrategyType,
		LLMModelConfig:  req.LLMModelConfig,
		IndicatorConfig: req.IndicatorConfig,
		ExchangeConfig:  req.ExchangeConfig,
		TradingConfig:   req.TradingConfig,
	}
	group := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(req.Symbols))
	for _, sym := range req.Symbols {
		st := s.insertLocked(base, group, sym)
		st.StrategyName = req.StrategyName + "-" + symbolName(sym)
		ids = append(ids, st.ID)
	}
	return group, ids, nil
}

// symbolName turns "Crypto:BTC/USDT" into "BTC/USDT".
func symbolName(sym string) string {
	if i := strings.LastIndexByte(sym, ':'); i >= 0 {
		return sym[i+1:]
	}
	return sym
}

func (s *Store) insertLocked(req strategy.CreateRequest, group, symbol string) *Strategy {
	s.nextID++
	ts := s.now().Unix()
	st := &Strategy{
		ID:              s.nextID,
		UserID:          req.UserID,
		StrategyName:    req.StrategyName,
		StrategyType:    req.StrategyType,
		Status:          StatusStopped,
		StrategyGroupID: group,
		Symbol:          symbol,
		LLMModelConfig:  req.LLMModelConfig,
		IndicatorConfig: req.IndicatorConfig,
		ExchangeConfig:  req.ExchangeConfig,
		TradingConfig:   req.TradingConfig,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	s.strategies[st.ID] = st
	s.notifyLocked(st.ID, "info", "created", "strategy "+st.StrategyName+" created")
	return st
}

// Update applies the non-empty fields of req.
func (s *Store) Update(_ context.Context, id int64, req strategy.UpdateRequest) (Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.strategies[id]
	if !ok {
		return Strategy{}, wrapKind("mockapi.update", ErrNotFound, fmt.Errorf("strategy %d", id))
	}
	if req.StrategyName != "" {
		st.StrategyName = req.StrategyName
	}
	if req.IndicatorConfig != nil {
		st.IndicatorConfig = req.IndicatorConfig
	}
	if req.ExchangeConfig != nil {
		st.ExchangeConfig = req.ExchangeConfig
	}
	if req.TradingConfig != nil {
		st.TradingConfig = req.TradingConfig
	}
	st.UpdatedAt = s.now().Unix()
	return *st, nil
}

// SetStatus moves a strategy to running or stopped.
func (s *Store) SetStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStatusLocked(id, status)
}

func (s *Store) setStatusLocked(id int64, status string) error {
	st, ok := s.strategies[id]
	if !ok {
		return wrapKind("mockapi.set_status", ErrNotFound, fmt.Errorf("strategy %d", id))
	}
	if st.Status == status {
		return nil
	}
	st.Status = status
	st.UpdatedAt = s.now().Unix()
	s.notifyLocked(id, "info", status, "strategy "+st.StrategyName+" "+status)
	return nil
}

// Delete removes a strategy.
func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strategies[id]; !ok {
		return wrapKind("mockapi.delete", ErrNotFound, fmt.Errorf("strategy %d", id))
	}
	delete(s.strategies, id)
	return nil
}

// Select resolves a batch selection to existing ids. Explicit ids take
// precedence over the group id.
func (s *Store) Select(_ context.Context, sel strategy.BatchRequest) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	switch {
	case len(sel.StrategyIDs) > 0:
		for _, id := range sel.StrategyIDs {
			if _, ok := s.strategies[id]; ok {
				ids = append(ids, id)
			}
		}
	case sel.StrategyGroupID != "":
		for id, st := range s.strategies {
			if st.StrategyGroupID == sel.StrategyGroupID {
				ids = append(ids, id)
			}
		}
	default:
		return nil, wrapKind("mockapi.select", ErrBadRequest, fmt.Errorf("strategy_ids or strategy_group_id required"))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SetStatusMany applies status to every id and returns how many exist.
func (s *Store) SetStatusMany(_ context.Context, ids []int64, status string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if s.setStatusLocked(id, status) == nil {
			n++
		}
	}
	return n
}

// DeleteMany removes every id and returns how many existed.
func (s *Store) DeleteMany(_ context.Context, ids []int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := s.strategies[id]; ok {
			delete(s.strategies, id)
			n++
		}
	}
	return n
}

// Sync records a position reconciliation.
func (s *Store) Sync(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.strategies[id]
	if !ok {
		return wrapKind("mockapi.sync", ErrNotFound, fmt.Errorf("strategy %d", id))
	}
	s.notifyLocked(id, "info", "sync", "positions of "+st.StrategyName+" synced")
	return nil
}

func (s *Store) notifyLocked(strategyID int64, level, title, msg string) {
	s.nextNotifyID++
	s.notifications = append(s.notifications, Notification{
		ID:         s.nextNotifyID,
		StrategyID: strategyID,
		Level:      level,
		Title:      title,
		Message:    msg,
		CreatedAt:  s.now().Unix(),
	})
}

// Notifications returns notifications with id > sinceID in ascending id
// order, optionally restricted to one strategy, capped at limit.
func (s *Store) Notifications(_ context.Context, strategyID int64, limit int, sinceID int64) []Notification {
	if limit <= 0 {
		limit = defaultNotifyLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, 0, limit)
	for _, n := range s.notifications {
		if n.ID <= sinceID || (strategyID != 0 && n.StrategyID != strategyID) {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Counts returns the number of strategies and how many are running.
func (s *Store) Counts() (total, running int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.strategies {
		if st.Status == StatusRunning {
			running++
		}
	}
	return len(s.strategies), running
}
