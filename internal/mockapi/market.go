package mockapi

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/okian/stratdesk/pkg/strategy"
)

// Trade is one executed order.
type Trade struct {
	ID         int64   `json:"id"`
	StrategyID int64   `json:"strategy_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Amount     float64 `json:"amount"`
	Profit     float64 `json:"profit"`
	CreatedAt  int64   `json:"created_at"`
}

// Position is an open exposure.
type Position struct {
	StrategyID    int64   `json:"strategy_id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Time   int64   `json:"time"`
	Equity float64 `json:"equity"`
}

const (
	generatedTrades = 8
	equityPoints    = 30
	initialEquity   = 10000.0
	hourSeconds     = 3600
	daySeconds      = 86400
)

// Generated market data is seeded by strategy id so repeated reads agree.
func seeded(id int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(id), 0x5eed)) //nolint:gosec // synthetic data
}

func symbolOf(st Strategy) string {
	if st.Symbol != "" {
		return symbolName(st.Symbol)
	}
	if sym, ok := st.TradingConfig["symbol"].(string); ok && sym != "" {
		return sym
	}
	return "BTC/USDT"
}

// Trades returns generated trades for a strategy.
func (s *Store) Trades(ctx context.Context, id int64) ([]Trade, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r := seeded(id)
	sym := symbolOf(st)
	price := 100 + r.Float64()*900
	out := make([]Trade, 0, generatedTrades)
	for i := range generatedTrades {
		side := "buy"
		if i%2 == 1 {
			side = "sell"
		}
		price *= 1 + (r.Float64()-0.5)*0.04
		amount := round2(0.1 + r.Float64())
		var profit float64
		if side == "sell" {
			profit = round2((r.Float64() - 0.4) * price * amount * 0.05)
		}
		out = append(out, Trade{
			ID:         id*1000 + int64(i) + 1,
			StrategyID: id,
			Symbol:     sym,
			Side:       side,
			Price:      round2(price),
			Amount:     amount,
			Profit:     profit,
			CreatedAt:  st.CreatedAt + int64(i)*hourSeconds,
		})
	}
	return out, nil
}

// Positions returns generated positions; stopped strategies hold none.
func (s *Store) Positions(ctx context.Context, id int64) ([]Position, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status != StatusRunning {
		return []Position{}, nil
	}
	r := seeded(id)
	entry := 100 + r.Float64()*900
	current := entry * (1 + (r.Float64()-0.5)*0.1)
	size := round2(0.5 + r.Float64())
	return []Position{{
		StrategyID:    id,
		Symbol:        symbolOf(st),
		Side:          "long",
		Size:          size,
		EntryPrice:    round2(entry),
		CurrentPrice:  round2(current),
		UnrealizedPnL: round2((current - entry) * size),
	}}, nil
}

// EquityCurve returns a generated daily equity series.
func (s *Store) EquityCurve(ctx context.Context, id int64) ([]EquityPoint, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r := seeded(id)
	equity := initialEquity
	start := st.CreatedAt - equityPoints*daySeconds
	out := make([]EquityPoint, 0, equityPoints)
	for i := range equityPoints {
		equity *= 1 + (r.Float64()-0.48)*0.02
		out = append(out, EquityPoint{Time: start + int64(i)*daySeconds, Equity: round2(equity)})
	}
	return out, nil
}

// ExportDoc is the portable form of a strategy used by export and import.
type ExportDoc struct {
	StrategyName    string         `json:"strategy_name"`
	StrategyType    string         `json:"strategy_type,omitempty"`
	LLMModelConfig  map[string]any `json:"llm_model_config,omitempty"`
	IndicatorConfig map[string]any `json:"indicator_config,omitempty"`
	ExchangeConfig  map[string]any `json:"exchange_config,omitempty"`
	TradingConfig   map[string]any `json:"trading_config,omitempty"`
}

// Export returns the portable document for a strategy. Exchange
// credentials are not exported.
func (s *Store) Export(ctx context.Context, id int64) (ExportDoc, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return ExportDoc{}, err
	}
	doc := ExportDoc{
		StrategyName:    st.StrategyName,
		StrategyType:    st.StrategyType,
		LLMModelConfig:  st.LLMModelConfig,
		IndicatorConfig: st.IndicatorConfig,
		TradingConfig:   st.TradingConfig,
	}
	if st.ExchangeConfig != nil {
		doc.ExchangeConfig = map[string]any{}
		for k, v := range st.ExchangeConfig {
			switch k {
			case "api_key", "secret_key", "passphrase":
				continue
			}
			doc.ExchangeConfig[k] = v
		}
	}
	return doc, nil
}

// Import creates a strategy from an exported document.
func (s *Store) Import(ctx context.Context, userID int64, doc ExportDoc) (Strategy, error) {
	if doc.StrategyName == "" {
		return Strategy{}, wrapKind("mockapi.import", ErrBadRequest, fmt.Errorf("document has no strategy_name"))
	}
	return s.Create(ctx, createFromDoc(userID, doc))
}

func createFromDoc(userID int64, doc ExportDoc) strategy.CreateRequest {
	return strategy.CreateRequest{
		UserID:          userID,
		StrategyName:    doc.StrategyName,
		StrategyType:    doc.StrategyType,
		LLMModelConfig:  doc.LLMModelConfig,
		IndicatorConfig: doc.IndicatorConfig,
		ExchangeConfig:  doc.ExchangeConfig,
		TradingConfig:   doc.TradingConfig,
	}
}
