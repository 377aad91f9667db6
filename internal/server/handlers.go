package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/kingrea/roadmap-survey/internal/roadmap"
	"github.com/kingrea/roadmap-survey/internal/sink"
	"github.com/kingrea/roadmap-survey/internal/survey"
)

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Sessions      int    `json:"sessions"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type sessionResponse struct {
	ID        string       `json:"id"`
	Variant   string       `json:"variant"`
	Title     string       `json:"title"`
	Intro     string       `json:"intro"`
	ItemLabel string       `json:"item_label"`
	Roadmap   roadmap.Seed `json:"roadmap"`
}

type editResponse struct {
	Result  string             `json:"result"`
	Edit    roadmap.EditResult `json:"edit"`
	Roadmap roadmap.Seed       `json:"roadmap"`
}

type submitRequest struct {
	Name     string              `json:"name"`
	Comments string              `json:"comments"`
	Checked  map[string][]string `json:"checked"`
}

type submitResponse struct {
	State   string     `json:"state"`
	Sink    string     `json:"sink"`
	File    string     `json:"file"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Field      string `json:"field,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	uptime := s.uptimeSeconds()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        string(s.Status()),
		Version:       APIVersion,
		Sessions:      s.sessions.len(),
		UptimeSeconds: uptime,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	store := roadmap.NewStore(s.deployment.Seed)
	submitter := survey.NewSubmitter(s.deployment.Variant, s.deployment.Sink,
		survey.WithLogbook(s.logbook),
		survey.WithMetrics(s.metrics),
		survey.WithClock(s.clock),
	)
	sess, swept := s.sessions.create(now, store, submitter)
	for _, id := range swept {
		s.logger.Printf("server: session %s expired", id)
	}
	s.metrics.SetSessions(s.sessions.len())

	sess.mu.Lock()
	rm := sess.store.Seed()
	resp := s.sessionView(sess.id, rm)
	sess.mu.Unlock()

	s.logger.Printf("server: session %s created (%d barriers)", sess.id, rm.Len())
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.touch(s.now())
	resp := s.sessionView(sess.id, sess.store.Seed())
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.remove(id) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	s.metrics.SetSessions(s.sessions.len())
	s.logger.Printf("server: session %s closed", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var edit roadmap.Edit
	if !s.decodeBody(w, r, &edit) {
		return
	}
	sess.mu.Lock()
	sess.touch(s.now())
	rm := sess.store.Seed()
	result := rm.Apply(edit)
	snapshot := rm.Entries()
	sess.mu.Unlock()

	s.metrics.ObserveEdit(result.Outcome())
	switch {
	case result.Changed():
		s.logbook.Info("Roadmap updated · %s · barrier_added=%t action_added=%t", result.Barrier, result.BarrierAdded, result.ActionAdded)
	case result.Duplicate:
		s.logbook.Info("Duplicate ignored · %s", result.Barrier)
	}
	writeJSON(w, http.StatusOK, editResponse{Result: result.Outcome(), Edit: result, Roadmap: snapshot})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(s.now())
	rm := sess.store.Seed()
	outcome, err := sess.submitter.Submit(r.Context(), survey.Request{
		Name:      req.Name,
		Comments:  req.Comments,
		Selection: survey.Collect(rm, req.Checked),
		Roadmap:   rm,
	})
	if err != nil {
		var verr *survey.ValidationError
		var rerr *sink.RemoteWriteError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
		case errors.As(err, &rerr):
			s.logger.Printf("server: session %s remote write failed: %d", sess.id, rerr.StatusCode)
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: rerr.Error(), StatusCode: rerr.StatusCode, Body: rerr.Body})
		default:
			s.logger.Printf("server: session %s submit failed: %v", sess.id, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		State:   string(outcome.State),
		Sink:    outcome.Receipt.Sink,
		File:    outcome.Receipt.Location,
		Columns: outcome.Record.Columns,
		Rows:    outcome.Record.Rows,
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return nil, false
	}
	return sess, true
}

func (s *Server) sessionView(id string, rm *roadmap.Roadmap) sessionResponse {
	v := s.deployment.Variant
	return sessionResponse{
		ID:        id,
		Variant:   string(v),
		Title:     s.deployment.Title,
		Intro:     v.Intro(),
		ItemLabel: v.ItemLabel(),
		Roadmap:   rm.Entries(),
	}
}

// decodeBody reads a size-limited JSON body into dst, writing the error
// response itself when it fails.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty body"})
		return false
	}
	reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload exceeds limit"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unable to read body"})
		return false
	}
	if strings.TrimSpace(string(body)) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty body"})
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
