// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/health-search/internal/history"
	"github.com/pdiddy/health-search/internal/query"
	"github.com/pdiddy/health-search/internal/research"
)

const msgInvalidPayload = "Invalid request payload"

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Debug("decoding request body", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	if err := s.searcher.Configured(); err != nil {
		s.fail(w, r, err)
		return
	}

	var raw string
	if v, ok := body["query"]; !ok || json.Unmarshal(v, &raw) != nil || raw == "" {
		s.writeError(w, http.StatusBadRequest, query.ErrMissing.Error())
		return
	}

	out, err := s.searcher.Search(r.Context(), raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, out.Document)
	s.record(r, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if s.searcher.Configured() != nil {
		status = "unconfigured"
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// fail writes the public message for err. Internal causes are only logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	rerr, ok := research.AsError(err)
	if !ok {
		s.logger.Error("unclassified search error",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, research.MsgInternal)
		return
	}
	if rerr.Kind != research.KindValidation {
		s.logger.Warn("search failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("kind", rerr.Kind.String()),
			zap.Error(rerr.Err))
	}
	s.writeError(w, rerr.Status(), rerr.Message)
}

// record stores the processed query in the background once the response
// has been written. The write is bounded by recordTimeout.
func (s *Server) record(r *http.Request, out research.Outcome) {
	if s.recorder == nil {
		return
	}
	entry := history.Entry{
		Query:       out.Query,
		Stage:       string(out.Stage),
		ResultCount: len(out.Document.Results),
	}
	token := bearerToken(r)
	ctx := context.WithoutCancel(r.Context())

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, recordTimeout)
		defer cancel()
		s.store(ctx, token, entry)
	}()
}

func (s *Server) store(ctx context.Context, token string, entry history.Entry) {
	if resolver, ok := s.recorder.(history.UserResolver); ok && token != "" {
		id, err := resolver.ResolveUser(ctx, token)
		if err != nil {
			s.logger.Debug("history user not resolved", zap.Error(err))
		}
		entry.UserID = id
	}

	err := s.recorder.Record(ctx, entry)
	switch {
	case errors.Is(err, history.ErrAnonymous):
		s.logger.Debug("anonymous search not recorded")
	case err != nil:
		s.logger.Warn("recording search history", zap.Error(err))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("encoding response body", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
