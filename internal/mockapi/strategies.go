package mockapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"github.com/okian/stratdesk/pkg/strategy"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt64("mockapi.list", r, "user_id")
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, map[string]any{"strategies": s.store.List(r.Context(), userID)})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.detail"
	id, err := requireID(op, r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	st, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, st)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.create"
	var req strategy.CreateRequest
	if err := decodeBody(op, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	st, err := s.store.Create(r.Context(), req)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, map[string]any{"id": st.ID})
}

func (s *Server) handleBatchCreate(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.batch_create"
	var req strategy.BatchCreateRequest
	if err := decodeBody(op, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	group, ids, err := s.store.BatchCreate(r.Context(), req)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, map[string]any{
		"strategy_group_id": group,
		"strategy_ids":      ids,
		"total_created":     len(ids),
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.update"
	id, err := requireID(op, r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	var req strategy.UpdateRequest
	if err := decodeBody(op, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	st, err := s.store.Update(r.Context(), id, req)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, st)
}

func (s *Server) handleSetStatus(status string) http.HandlerFunc {
	op := "mockapi.set_status." + status
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := requireID(op, r)
		if err != nil {
			s.writeError(r.Context(), w, err)
			return
		}
		if err := s.store.SetStatus(r.Context(), id, status); err != nil {
			s.writeError(r.Context(), w, err)
			return
		}
		writeOK(w, map[string]any{"id": id, "status": status})
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.delete"
	id, err := requireID(op, r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) selection(op string, r *http.Request) ([]int64, error) {
	var req strategy.BatchRequest
	if err := decodeBody(op, r, &req); err != nil {
		return nil, err
	}
	return s.store.Select(r.Context(), req)
}

func (s *Server) handleBatchStatus(status string) http.HandlerFunc {
	op := "mockapi.batch_status." + status
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := s.selection(op, r)
		if err != nil {
			s.writeError(r.Context(), w, err)
			return
		}
		n := s.store.SetStatusMany(r.Context(), ids, status)
		writeOK(w, map[string]any{"strategy_ids": ids, "affected": n})
	}
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	ids, err := s.selection("mockapi.batch_delete", r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	n := s.store.DeleteMany(r.Context(), ids)
	writeOK(w, map[string]any{"strategy_ids": ids, "affected": n})
}

// handleTestConnection accepts any config naming an exchange and carrying an
// api key. A failed check is reported in the envelope, not the HTTP status.
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExchangeConfig strategy.Config `json:"exchange_config"`
	}
	if err := decodeBody("mockapi.test_connection", r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	exchange := cast.ToString(req.ExchangeConfig["exchange_id"])
	switch {
	case exchange == "":
		writeEnvelope(w, http.StatusOK, envelope{Code: codeFailure, Msg: "exchange_id is required"})
	case cast.ToString(req.ExchangeConfig["api_key"]) == "":
		writeEnvelope(w, http.StatusOK, envelope{Code: codeFailure, Msg: "api_key is required"})
	default:
		writeOK(w, map[string]any{"connected": true, "exchange_id": exchange})
	}
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	id, err := requireID("mockapi.trades", r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	trades, err := s.store.Trades(r.Context(), id)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, map[string]any{"trades": trades})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	id, err := requireID("mockapi.positions", r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	positions, err := s.store.Positions(r.Context(), id)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, map[string]any{"positions": positions})
}

func (s *Server) handleEquityCurve(w http.ResponseWriter, r *http.Request) {
	id, err := requireID("mockapi.equity_curve", r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	curve, err := s.store.EquityCurve(r.Context(), id)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, curve)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.notifications"
	var q [3]int64
	for i, key := range []string{"id", "limit", "since_id"} {
		v, err := queryInt64(op, r, key)
		if err != nil {
			s.writeError(r.Context(), w, err)
			return
		}
		q[i] = v
	}
	items := s.store.Notifications(r.Context(), q[0], int(q[1]), q[2])
	writeOK(w, map[string]any{"items": items})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.import"
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		s.writeError(r.Context(), w, wrapKind(op, ErrBadRequest, err))
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(r.Context(), w, wrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		s.writeError(r.Context(), w, wrapKind(op, ErrBadRequest, err))
		return
	}
	var doc ExportDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.writeError(r.Context(), w, wrapKind(op, ErrBadRequest, err))
		return
	}
	userID, err := cast.ToInt64E(r.FormValue("user_id"))
	if r.FormValue("user_id") != "" && err != nil {
		s.writeError(r.Context(), w, wrapKind(op, ErrBadRequest, err))
		return
	}
	st, err := s.store.Import(r.Context(), userID, doc)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, map[string]any{"id": st.ID})
}

// handleExport streams the document itself, not an envelope.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := requireID("mockapi.export", r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	doc, err := s.store.Export(r.Context(), id)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("mockapi.export: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="strategy_`+strconv.FormatInt(id, 10)+`.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	id, err := requireID("mockapi.sync", r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	if err := s.store.Sync(r.Context(), id); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, map[string]any{"id": id, "synced": true})
}
