package mockapi

import (
	"net/http"

	"github.com/okian/stratdesk/pkg/backtest"
)

func (s *Server) handleAgentStart(w http.ResponseWriter, r *http.Request) {
	var req backtest.StartRequest
	if err := decodeBody("mockapi.agent_start", r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	id := s.store.StartJob(r.Context(), req)
	writeOK(w, backtest.StartResult{JobID: id})
}

func (s *Server) handleAgentControl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID  string          `json:"job_id"`
		Action backtest.Action `json:"action"`
	}
	if err := decodeBody("mockapi.agent_control", r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	st, err := s.store.ControlJob(r.Context(), req.JobID, req.Action)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, map[string]any{"job_id": st.ID, "status": st.Status})
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.PollJob(r.Context(), r.PathValue("jobID"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeOK(w, st)
}
