package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/extract"
	"github.com/Veraticus/tender/internal/model"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type feedbackRequest struct {
	Action   string `json:"action"`
	Comment  string `json:"comment"`
	Document string `json:"document"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	record, err := decodeRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.deps.Classifier.Classify(r.Context(), record)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	if s.deps.Thresholds == nil {
		writeError(w, fmt.Errorf("%w: no threshold provider", common.ErrMissingConfig))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Thresholds.Threshold(r.Context()))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: limit must be a non-negative integer", common.ErrInvalidInput))
			return
		}
		limit = n
	}

	sessions, err := s.deps.Drafting.Sessions(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*drafting.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleCreateSession drafts an announcement for the posted purchase plan.
// A plan that fails classification still creates a session; the response
// carries it with 422 so the caller can inspect the error log.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	record, err := decodeRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := s.deps.Drafting.StartWithRecord(r.Context(), record, nil)
	if err != nil {
		if session != nil && drafting.IsInputError(err) {
			writeJSON(w, http.StatusUnprocessableEntity, session)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Drafting.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Drafting.Resume(r.Context(), chi.URLParam(r, "id"), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	action, err := drafting.ParseFeedbackAction(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := s.deps.Drafting.Feedback(r.Context(), chi.URLParam(r, "id"), drafting.Feedback{
		Action:   action,
		Comment:  req.Comment,
		Document: req.Document,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Drafting.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	doc := session.Document
	if doc == "" {
		doc = session.Baseline
	}
	if doc == "" {
		writeError(w, fmt.Errorf("%w: session %s has no document yet", common.ErrNotFound, session.ID))
		return
	}

	page, err := s.preview.Render(previewPage{
		Title:       session.ID,
		State:       string(session.State),
		NeedsReview: session.NeedsReview,
		Markdown:    doc,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Templates.List(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(records) == 0 {
		writeError(w, fmt.Errorf("%w: no stored versions of %s", common.ErrNotFound, chi.URLParam(r, "type")))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleLatestTemplate(w http.ResponseWriter, r *http.Request) {
	record, err := s.deps.Templates.Latest(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reconciler == nil {
		writeError(w, fmt.Errorf("%w: reconciliation is not configured", common.ErrMissingConfig))
		return
	}

	result, err := s.deps.Reconciler.Reconcile(r.Context(), chi.URLParam(r, "type"), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeRecord parses a JSON purchase plan. Field validation is left to
// classification so that drafting records the failure on the session.
func decodeRecord(r *http.Request) (*model.ExtractedRecord, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", common.ErrInvalidInput, err)
	}
	return extract.DecodeJSON(data)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", common.ErrInvalidInput, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case drafting.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidTransition), errors.Is(err, common.ErrSessionTerminal):
		return http.StatusConflict
	case errors.Is(err, common.ErrMissingConfig):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}
