package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/landing-agent/internal/payment"
	"github.com/jonathan/landing-agent/internal/types"
)

// defaultGalleryLimit caps the gallery listing when no limit is given.
const defaultGalleryLimit = 50

// handleGenerate validates a submission, applies the rate limit and payment
// gate, then starts the pipeline in the background. The response carries
// only the run identifier; progress is polled via /status.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSubmission(w, r)
	if !ok {
		return
	}
	if !s.allowSubmission(w, r, req) {
		return
	}

	runID := uuid.New().String()
	go s.runInBackground(runID, *req)

	s.jsonResponse(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "started",
	})
}

// handleGenerateStream is the synchronous variant: the pipeline runs while
// the client holds the connection, receiving each step transition as an
// SSE event.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSubmission(w, r)
	if !ok {
		return
	}
	if !s.allowSubmission(w, r, req) {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	runID := uuid.New().String()
	events := s.hub.Subscribe(runID)
	defer s.hub.Unsubscribe(runID, events)

	sse.WriteEvent("started", map[string]string{"run_id": runID}) //nolint:errcheck

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()
		done <- s.runner.Run(ctx, runID, *req)
	}()

	for {
		select {
		case rec := <-events:
			sse.WriteEvent("step", map[string]any{ //nolint:errcheck
				"run_id": runID,
				"step":   rec,
			})
		case err := <-done:
			// Drain transitions published before the run finished.
			for {
				select {
				case rec := <-events:
					sse.WriteEvent("step", map[string]any{"run_id": runID, "step": rec}) //nolint:errcheck
					continue
				default:
				}
				break
			}
			status := string(types.RunCompleted)
			if err != nil {
				status = string(types.RunFailed)
				sse.WriteError(err.Error())
			}
			sse.WriteComplete(runID, status)
			return
		case <-r.Context().Done():
			log.Printf("[server] stream client disconnected, run %s continues", runID)
			return
		}
	}
}

// handleStatus reconstructs a run's status from whichever source is
// authoritative. Unknown runs read as running until the grace window
// expires; only then do they become 404.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	res, err := s.resolver.Resolve(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to resolve run status")
		return
	}
	if res.NotFound {
		notFound := &ErrRunNotFound{RunID: runID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	steps := res.Steps
	if r.URL.Query().Get("detailed") != "true" {
		steps = summarizeSteps(steps)
	}

	response := map[string]any{
		"run_id": runID,
		"status": res.Status,
		"steps":  steps,
		"result": nil,
	}
	if res.Status == types.RunCompleted && res.Result != nil {
		response["result"] = res.Result
	}
	if res.Error != "" {
		response["error"] = res.Error
	}
	s.jsonResponse(w, http.StatusOK, response)
}

// handleListPages returns the gallery projection of stored pages.
func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	limit := defaultGalleryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	pages, err := s.pages.ListLandingPages(r.Context(), limit)
	if err != nil {
		log.Printf("[server] failed to list pages: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list pages")
		return
	}
	if pages == nil {
		pages = []types.PageSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"pages": pages})
}

// handleGetPage returns the full stored artifact for a run.
func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	page, err := s.pages.GetLandingPage(r.Context(), runID)
	if err != nil {
		log.Printf("[server] failed to load page %s: %v", runID, err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load page")
		return
	}
	if page == nil {
		notFound := &ErrPageNotFound{RunID: runID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, page)
}

// handleGetPageHTML serves the stored markup directly.
func (s *Server) handleGetPageHTML(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	page, err := s.pages.GetLandingPage(r.Context(), runID)
	if err != nil {
		log.Printf("[server] failed to load page %s: %v", runID, err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load page")
		return
	}
	if page == nil || page.HTML == "" {
		notFound := &ErrPageNotFound{RunID: runID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page.HTML))
}

// handleDeletePage removes a stored page. Admin only.
func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	if err := s.pages.DeleteLandingPage(r.Context(), runID); err != nil {
		notFound := &ErrPageNotFound{RunID: runID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"run_id": runID, "status": "deleted"})
}

// handleRunAudit returns a run's recorded step payloads. Admin only.
func (s *Server) handleRunAudit(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	entries, err := s.audit.ListStepAudit(r.Context(), runID)
	if err != nil {
		log.Printf("[server] failed to list audit for %s: %v", runID, err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"run_id": runID, "entries": entries})
}

// decodeSubmission parses and validates the generate payload.
func (s *Server) decodeSubmission(w http.ResponseWriter, r *http.Request) (*types.GenerateRequest, bool) {
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON payload")
		return nil, false
	}

	if err := req.Validate(); err != nil {
		verr := &ErrValidation{Field: "request", Message: err.Error()}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			verr = &ErrValidation{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on '%s' constraint", fe.Tag()),
			}
		}
		s.errorResponse(w, HTTPStatus(verr), verr.Error())
		return nil, false
	}
	return &req, true
}

// allowSubmission enforces the per-identifier rate limit and the payment
// gate. On rejection the response has already been written.
func (s *Server) allowSubmission(w http.ResponseWriter, r *http.Request, req *types.GenerateRequest) bool {
	identifier := s.identifier(r, req)
	allowed, info := s.rateLimiter.Allow(identifier, "/generate", http.MethodPost)
	s.setRateLimitHeaders(w, info)
	if !allowed {
		s.rateLimitResponse(w, info)
		return false
	}

	if !s.verifier.Enabled() {
		return true
	}

	verification, err := s.verifier.Verify(r.Context(), r.Header.Get("X-PAYMENT"), s.payReqs)
	if err != nil {
		log.Printf("[payment] verification unavailable: %v", err)
		s.errorResponse(w, http.StatusBadGateway, "payment verification unavailable")
		return false
	}
	if !verification.Valid {
		body := payment.NewRequiredError(verification.Reason, s.payReqs)
		body.Payer = verification.Payer
		s.jsonResponse(w, http.StatusPaymentRequired, body)
		return false
	}
	return true
}

// runInBackground executes the pipeline detached from the submitting
// request.
func (s *Server) runInBackground(runID string, req types.GenerateRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	if err := s.runner.Run(ctx, runID, req); err != nil {
		log.Printf("[server] run %s failed: %v", runID, err)
	}
}

// summarizeSteps strips detail payloads down to their encoded size. The
// detailed view is opt-in; default polling responses stay small.
func summarizeSteps(steps []types.StepRecord) []types.StepRecord {
	out := make([]types.StepRecord, len(steps))
	for i, rec := range steps {
		if rec.Detail != nil {
			encoded, err := json.Marshal(rec.Detail)
			size := 0
			if err == nil {
				size = len(encoded)
			}
			rec.Detail = map[string]any{"bytes": size}
		}
		out[i] = rec
	}
	return out
}

// PushStep feeds a published step transition into the SSE hub. Wired as
// the broadcaster's push callback.
func (s *Server) PushStep(runID string, rec types.StepRecord) {
	s.hub.Publish(runID, rec)
}
