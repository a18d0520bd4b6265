package strategy

import (
	"io"
)

// Config is an opaque nested configuration object (LLM model, indicator,
// exchange or trading settings). Its shape belongs to the backend.
type Config map[string]any

// ListParams filters List. Zero values are omitted.
type ListParams struct {
	UserID int64
}

func (p ListParams) params() map[string]any {
	out := map[string]any{}
	if p.UserID != 0 {
		out["user_id"] = p.UserID
	}
	return out
}

// CreateRequest is the body of Create.
type CreateRequest struct {
	UserID          int64  `json:"user_id,omitempty"`
	StrategyName    string `json:"strategy_name"`
	StrategyType    string `json:"strategy_type,omitempty"`
	LLMModelConfig  Config `json:"llm_model_config,omitempty"`
	IndicatorConfig Config `json:"indicator_config,omitempty"`
	ExchangeConfig  Config `json:"exchange_config,omitempty"`
	TradingConfig   Config `json:"trading_config,omitempty"`
}

// BatchCreateRequest creates one strategy per symbol, named after
// StrategyName. Symbols look like "Crypto:BTC/USDT".
type BatchCreateRequest struct {
	UserID          int64    `json:"user_id,omitempty"`
	StrategyName    string   `json:"strategy_name"`
	Symbols         []string `json:"symbols"`
	StrategyType    string   `json:"strategy_type,omitempty"`
	LLMModelConfig  Config   `json:"llm_model_config,omitempty"`
	IndicatorConfig Config   `json:"indicator_config,omitempty"`
	ExchangeConfig  Config   `json:"exchange_config,omitempty"`
	TradingConfig   Config   `json:"trading_config,omitempty"`
}

// UpdateRequest is a partial update; only non-zero fields are sent. An empty
// name or an empty config map is indistinguishable from "unchanged" and is
// omitted, so fields cannot be cleared through Update.
type UpdateRequest struct {
	StrategyName    string `json:"strategy_name,omitempty"`
	IndicatorConfig Config `json:"indicator_config,omitempty"`
	ExchangeConfig  Config `json:"exchange_config,omitempty"`
	TradingConfig   Config `json:"trading_config,omitempty"`
}

// BatchRequest selects strategies either by id or by group id. The two are
// mutually exclusive by convention; the backend decides what to do if both
// are set.
type BatchRequest struct {
	StrategyIDs     []int64 `json:"strategy_ids,omitempty"`
	StrategyGroupID string  `json:"strategy_group_id,omitempty"`
}

// NotificationParams filters Notifications. Zero values are omitted.
type NotificationParams struct {
	// ID restricts results to one strategy.
	ID int64
	// Limit caps the number of items.
	Limit int
	// SinceID returns only items with id > SinceID.
	SinceID int64
}

func (p NotificationParams) params() map[string]any {
	out := map[string]any{}
	if p.ID != 0 {
		out["id"] = p.ID
	}
	if p.Limit != 0 {
		out["limit"] = p.Limit
	}
	if p.SinceID != 0 {
		out["since_id"] = p.SinceID
	}
	return out
}

// ImportFile is the exported strategy document to upload.
type ImportFile struct {
	Name    string
	Content io.Reader
	// Fields are extra plain form fields sent alongside the file.
	Fields map[string]string
}
