package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danshapiro/murderparty/internal/llm"
	"github.com/danshapiro/murderparty/internal/mystery/engine"
	"github.com/danshapiro/murderparty/internal/mystery/seed"
	"github.com/danshapiro/murderparty/internal/mystery/validate"
)

// validRunID matches ULIDs and other safe identifiers.
var validRunID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,127}$`)

const maxBodyBytes = 4 << 20

type submitRunRequest struct {
	engine.Request
	// RunID is optional; a ULID is generated when empty.
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   len(s.registry.List()),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gen.Categories())
}

// handleGenerate runs a generation inside the request and returns the package.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeGenerateError(w, err)
		return
	}
	if err := s.sem.Acquire(r.Context(), 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "request canceled while waiting for a generation slot")
		return
	}
	defer s.sem.Release(1)

	runID := engine.NewRunID()
	w.Header().Set("X-Run-ID", runID)
	res, err := s.gen.Generate(r.Context(), req, engine.RunOptions{RunID: runID})
	if res != nil && res.StructureDigest != "" {
		w.Header().Set("X-Structure-Digest", res.StructureDigest)
	}
	if err != nil {
		s.logger.Warn("generate failed", zap.String("run_id", runID), zap.Error(err))
		writeGenerateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Package)
}

func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.Request.Validate(); err != nil {
		writeGenerateError(w, err)
		return
	}
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = engine.NewRunID()
	}
	if !validRunID.MatchString(runID) {
		writeError(w, http.StatusBadRequest, "run_id must be alphanumeric with dashes/underscores, 1-128 chars")
		return
	}

	broadcaster := NewBroadcaster()
	ctx, cancel := context.WithCancelCause(s.baseCtx)
	rs := &RunState{
		RunID:       runID,
		Broadcaster: broadcaster,
		Cancel:      cancel,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.registry.Register(runID, rs); err != nil {
		cancel(nil)
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	go func() {
		defer broadcaster.Close()
		defer cancel(nil)
		if err := s.sem.Acquire(ctx, 1); err != nil {
			rs.SetResult(nil, err)
			return
		}
		defer s.sem.Release(1)
		res, err := s.gen.Generate(ctx, req.Request, engine.RunOptions{RunID: runID, ProgressSink: broadcaster.Send})
		if err != nil {
			s.logger.Warn("run failed", zap.String("run_id", runID), zap.Error(err))
		}
		rs.SetResult(res, err)
	}()

	w.Header().Set("X-Run-ID", runID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "accepted",
	})
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*RunState, bool) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return nil, false
	}
	rs, ok := s.registry.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", runID))
		return nil, false
	}
	return rs, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rs, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rs.Status())
}

func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	rs, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	WriteSSE(w, r, rs.Broadcaster)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	rs, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if rs.Done() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "finished"})
		return
	}
	rs.Cancel(errors.New("canceled via HTTP API"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceling"})
}

// handleValidate checks a free-form package document and always answers 200 with the
// issue list; only an undecodable body is a client error.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}
	issues := validate.Document(doc)
	if issues == nil {
		issues = []string{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Issues: issues})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	data, err := seed.DecodeShareCode(r.PathValue("code"))
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// --- Helpers ---

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// statusFor maps request-shaped failures to 400 and everything else to 500.
func statusFor(err error) int {
	var ce *engine.ConfigError
	var sc *seed.ShareCodeError
	switch {
	case errors.As(err, &ce), errors.As(err, &sc):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func issuesOf(err error) []string {
	var vf *engine.ValidationFailedError
	if errors.As(err, &vf) {
		return vf.Issues
	}
	var sr *engine.SafetyRejectedError
	if errors.As(err, &sr) {
		return sr.Matches
	}
	return nil
}

func upstreamOf(err error) *UpstreamFailure {
	ce, ok := llm.AsCallError(err)
	if !ok {
		return nil
	}
	return &UpstreamFailure{
		Provider:          ce.Provider,
		Kind:              string(ce.Kind),
		Status:            ce.Status,
		Retryable:         ce.Resubmittable(),
		RetryAfterSeconds: int(math.Ceil(ce.RetryAfter.Seconds())),
	}
}

func writeGenerateError(w http.ResponseWriter, err error) {
	up := upstreamOf(err)
	if up != nil && up.Retryable && up.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(up.RetryAfterSeconds))
	}
	writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error(), Issues: issuesOf(err), Upstream: up})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
