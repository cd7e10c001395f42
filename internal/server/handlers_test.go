package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/landing-agent/internal/config"
	"github.com/jonathan/landing-agent/internal/db"
	"github.com/jonathan/landing-agent/internal/payment"
	"github.com/jonathan/landing-agent/internal/server/ratelimit"
	"github.com/jonathan/landing-agent/internal/status"
	"github.com/jonathan/landing-agent/internal/types"
)

type fakeRunner struct {
	started chan string
	err     error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan string, 4)}
}

func (f *fakeRunner) Run(_ context.Context, runID string, _ types.GenerateRequest) error {
	f.started <- runID
	return f.err
}

type fakePageStore struct {
	pages   map[string]*types.LandingPage
	list    []types.PageSummary
	listErr error
}

func (f *fakePageStore) GetLandingPage(_ context.Context, runID string) (*types.LandingPage, error) {
	return f.pages[runID], nil
}

func (f *fakePageStore) ListLandingPages(_ context.Context, limit int) ([]types.PageSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.list) {
		return f.list[:limit], nil
	}
	return f.list, nil
}

func (f *fakePageStore) DeleteLandingPage(_ context.Context, runID string) error {
	if _, ok := f.pages[runID]; !ok {
		return fmt.Errorf("landing page not found: %s", runID)
	}
	delete(f.pages, runID)
	return nil
}

type fakeAudit struct {
	entries []db.AuditEntry
}

func (f *fakeAudit) ListStepAudit(_ context.Context, _ string) ([]db.AuditEntry, error) {
	return f.entries, nil
}

type fakeVerifier struct {
	enabled      bool
	verification *payment.Verification
	err          error
	gotHeader    string
}

func (f *fakeVerifier) Verify(_ context.Context, header string, _ payment.Requirements) (*payment.Verification, error) {
	f.gotHeader = header
	if f.err != nil {
		return nil, f.err
	}
	return f.verification, nil
}

func (f *fakeVerifier) Enabled() bool { return f.enabled }

type serverFixture struct {
	srv     *Server
	runner  *fakeRunner
	pages   *fakePageStore
	cache   *status.MemoryCache
	tracker *status.Tracker
}

func newTestServer(t *testing.T, mutate func(*Deps)) *serverFixture {
	t.Helper()

	runner := newFakeRunner()
	pages := &fakePageStore{pages: map[string]*types.LandingPage{}}
	cache := status.NewMemoryCache()
	tracker := status.NewTracker()
	resolver := status.NewResolver(tracker, cache, nil, nil, 9)

	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/generate", Method: "POST", Limit: 100, Window: time.Hour, Burst: 100},
		},
	})
	t.Cleanup(limiter.Stop)

	deps := Deps{
		Runner:      runner,
		Resolver:    resolver,
		Pages:       pages,
		Audit:       &fakeAudit{},
		RateLimiter: limiter,
	}
	if mutate != nil {
		mutate(&deps)
	}

	return &serverFixture{
		srv:     New(Config{Port: 0}, deps),
		runner:  runner,
		pages:   pages,
		cache:   cache,
		tracker: tracker,
	}
}

func validSubmission() map[string]string {
	return map[string]string{
		"url":                 "https://example.com",
		"campaignDescription": "Promote the spring launch of our analytics product to startups",
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleGenerate_Accepted(t *testing.T) {
	fx := newTestServer(t, nil)

	w := postJSON(t, fx.srv.Handler(), "/generate", validSubmission())

	require.Equal(t, http.StatusAccepted, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "started", body["status"])
	runID, _ := body["run_id"].(string)
	require.NotEmpty(t, runID)
	_, err := uuid.Parse(runID)
	assert.NoError(t, err)

	select {
	case started := <-fx.runner.started:
		assert.Equal(t, runID, started)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline run was not started")
	}
}

func TestHandleGenerate_Validation(t *testing.T) {
	fx := newTestServer(t, nil)

	longDescription := strings.Repeat("d", 1001)
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing url", map[string]string{
			"campaignDescription": "Promote the spring launch of our analytics product",
		}},
		{"url too short", map[string]string{
			"url":                 "a.co",
			"campaignDescription": "Promote the spring launch of our analytics product",
		}},
		{"url not a url", map[string]string{
			"url":                 "not a valid url at all",
			"campaignDescription": "Promote the spring launch of our analytics product",
		}},
		{"description too short", map[string]string{
			"url":                 "https://example.com",
			"campaignDescription": "too short",
		}},
		{"description too long", map[string]string{
			"url":                 "https://example.com",
			"campaignDescription": longDescription,
		}},
		{"image url too long", map[string]string{
			"url":                 "https://example.com",
			"campaignDescription": "Promote the spring launch of our analytics product",
			"imageUrl":            "https://example.com/" + strings.Repeat("x", 500),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, fx.srv.Handler(), "/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Contains(t, body["error"], "validation error")
		})
	}

	select {
	case runID := <-fx.runner.started:
		t.Fatalf("invalid submission started run %s", runID)
	default:
	}
}

func TestHandleGenerate_InvalidJSON(t *testing.T) {
	fx := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "invalid JSON")
}

func TestHandleGenerate_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/generate", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	})
	fx := newTestServer(t, func(d *Deps) { d.RateLimiter = limiter })
	t.Cleanup(limiter.Stop)

	first := postJSON(t, fx.srv.Handler(), "/generate", validSubmission())
	require.Equal(t, http.StatusAccepted, first.Code)
	<-fx.runner.started

	second := postJSON(t, fx.srv.Handler(), "/generate", validSubmission())
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	body := decodeBody(t, second)
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	resetAt, err := time.Parse(time.RFC3339, body["reset_at"].(string))
	require.NoError(t, err)
	assert.True(t, resetAt.After(time.Now()))
}

func TestHandleGenerate_RateLimitKeyedByUser(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/generate", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	})
	fx := newTestServer(t, func(d *Deps) { d.RateLimiter = limiter })
	t.Cleanup(limiter.Stop)

	// Two users behind the same address each get their own bucket.
	for _, userID := range []string{"user-a", "user-b"} {
		body := validSubmission()
		body["userId"] = userID
		w := postJSON(t, fx.srv.Handler(), "/generate", body)
		assert.Equal(t, http.StatusAccepted, w.Code, "user %s", userID)
		<-fx.runner.started
	}
}

func TestHandleGenerate_PaymentRequired(t *testing.T) {
	reqs := payment.NewRequirements("100000", "base", "0xabc", "https://api.example.com/generate")
	verifier := &fakeVerifier{
		enabled:      true,
		verification: &payment.Verification{Valid: false, Payer: "0xpayer", Reason: "insufficient funds"},
	}
	fx := newTestServer(t, func(d *Deps) {
		d.Verifier = verifier
		d.PayReqs = reqs
	})

	req := httptest.NewRequest(http.MethodPost, "/generate", submissionReader(t))
	req.Header.Set("X-PAYMENT", "some-payment-header")
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "some-payment-header", verifier.gotHeader)

	var body payment.RequiredError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Version)
	assert.Equal(t, "insufficient funds", body.Error)
	assert.Equal(t, "0xpayer", body.Payer)
	require.Len(t, body.Accepts, 1)
	assert.Equal(t, "exact", body.Accepts[0].Scheme)
	assert.Equal(t, "100000", body.Accepts[0].MaxAmountRequired)
}

func TestHandleGenerate_PaymentAccepted(t *testing.T) {
	verifier := &fakeVerifier{
		enabled:      true,
		verification: &payment.Verification{Valid: true, Payer: "0xpayer"},
	}
	fx := newTestServer(t, func(d *Deps) { d.Verifier = verifier })

	w := postJSON(t, fx.srv.Handler(), "/generate", validSubmission())
	assert.Equal(t, http.StatusAccepted, w.Code)
	<-fx.runner.started
}

func TestHandleGenerate_FacilitatorUnavailable(t *testing.T) {
	verifier := &fakeVerifier{enabled: true, err: fmt.Errorf("connection refused")}
	fx := newTestServer(t, func(d *Deps) { d.Verifier = verifier })

	w := postJSON(t, fx.srv.Handler(), "/generate", validSubmission())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "payment verification unavailable")
}

func submissionReader(t *testing.T) *bytes.Reader {
	t.Helper()
	encoded, err := json.Marshal(validSubmission())
	require.NoError(t, err)
	return bytes.NewReader(encoded)
}

func TestHandleStatus_UnknownRunWithinGrace(t *testing.T) {
	fx := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/status/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "running", body["status"])
	assert.Empty(t, body["steps"])
}

func TestHandleStatus_NotFoundAfterGrace(t *testing.T) {
	runner := newFakeRunner()
	cache := status.NewMemoryCache()
	resolver := status.NewResolver(status.NewTracker(), cache, nil, nil, 9).
		WithNotFoundAfter(0)
	fx := newTestServer(t, func(d *Deps) {
		d.Runner = runner
		d.Resolver = resolver
	})

	runID := uuid.New().String()

	// First observation starts the grace window.
	req := httptest.NewRequest(http.MethodGet, "/status/"+runID, nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// With a zero window the next poll reports not found.
	req = httptest.NewRequest(http.MethodGet, "/status/"+runID, nil)
	w = httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], runID)
}

func TestHandleStatus_SummarizesDetailByDefault(t *testing.T) {
	fx := newTestServer(t, nil)
	runID := uuid.New().String()

	fx.cache.Append(runID, types.StepRecord{
		StepID: "scrape",
		Label:  "Analyzing your website",
		Status: types.StepSuccess,
		Detail: map[string]any{"title": "Example", "industry": "technology"},
	})
	fx.cache.Append(runID, types.StepRecord{
		StepID: "search",
		Label:  "Researching your market",
		Status: types.StepRunning,
	})

	req := httptest.NewRequest(http.MethodGet, "/status/"+runID, nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "running", body["status"])

	steps := body["steps"].([]any)
	require.Len(t, steps, 2)
	scrape := steps[0].(map[string]any)
	detail := scrape["detail"].(map[string]any)
	assert.Contains(t, detail, "bytes")
	assert.NotContains(t, detail, "title")
	assert.Greater(t, detail["bytes"].(float64), float64(0))
}

func TestHandleStatus_DetailedView(t *testing.T) {
	fx := newTestServer(t, nil)
	runID := uuid.New().String()

	fx.cache.Append(runID, types.StepRecord{
		StepID: "scrape",
		Label:  "Analyzing your website",
		Status: types.StepSuccess,
		Detail: map[string]any{"title": "Example"},
	})

	req := httptest.NewRequest(http.MethodGet, "/status/"+runID+"?detailed=true", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	steps := decodeBody(t, w)["steps"].([]any)
	detail := steps[0].(map[string]any)["detail"].(map[string]any)
	assert.Equal(t, "Example", detail["title"])
}

func TestHandleStatus_FailedRunCarriesError(t *testing.T) {
	fx := newTestServer(t, nil)
	runID := uuid.New().String()

	fx.cache.Append(runID, types.StepRecord{StepID: "scrape", Status: types.StepSuccess})
	fx.cache.Append(runID, types.StepRecord{
		StepID: "spec",
		Status: types.StepError,
		Error:  "empty response from model",
	})

	req := httptest.NewRequest(http.MethodGet, "/status/"+runID, nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "empty response from model", body["error"])
}

func TestHandleStatus_CompletedRunIncludesResult(t *testing.T) {
	fx := newTestServer(t, nil)
	runID := uuid.New().String()

	fx.tracker.Start(runID)
	fx.tracker.Complete(runID, &types.LandingPage{
		RunID:   runID,
		URL:     "https://example.com",
		LiveURL: "https://landing-abc.vercel.app",
	})

	req := httptest.NewRequest(http.MethodGet, "/status/"+runID, nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "completed", body["status"])
	result := body["result"].(map[string]any)
	assert.Equal(t, "https://landing-abc.vercel.app", result["live_url"])
}

func TestHandleListPages(t *testing.T) {
	fx := newTestServer(t, nil)
	fx.pages.list = []types.PageSummary{
		{RunID: "run-1", URL: "https://a.example.com", LiveURL: "https://landing-a.vercel.app"},
		{RunID: "run-2", URL: "https://b.example.com"},
	}

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	pages := decodeBody(t, w)["pages"].([]any)
	assert.Len(t, pages, 2)
}

func TestHandleListPages_Limit(t *testing.T) {
	fx := newTestServer(t, nil)
	fx.pages.list = []types.PageSummary{
		{RunID: "run-1"}, {RunID: "run-2"}, {RunID: "run-3"},
	}

	req := httptest.NewRequest(http.MethodGet, "/pages?limit=2", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["pages"].([]any), 2)

	req = httptest.NewRequest(http.MethodGet, "/pages?limit=zero", nil)
	w = httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListPages_EmptyIsArray(t *testing.T) {
	fx := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pages":[]`)
}

func TestHandleGetPage(t *testing.T) {
	fx := newTestServer(t, nil)
	fx.pages.pages["run-1"] = &types.LandingPage{
		RunID: "run-1",
		URL:   "https://example.com",
		HTML:  "<!doctype html><html><body>hi</body></html>",
	}

	req := httptest.NewRequest(http.MethodGet, "/pages/run-1", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-1", decodeBody(t, w)["run_id"])

	req = httptest.NewRequest(http.MethodGet, "/pages/missing", nil)
	w = httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetPageHTML(t *testing.T) {
	fx := newTestServer(t, nil)
	fx.pages.pages["run-1"] = &types.LandingPage{
		RunID: "run-1",
		HTML:  "<!doctype html><html><body>hi</body></html>",
	}
	fx.pages.pages["run-2"] = &types.LandingPage{RunID: "run-2"}

	req := httptest.NewRequest(http.MethodGet, "/pages/run-1/html", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<!doctype html>")

	// A record without markup reads as missing.
	req = httptest.NewRequest(http.MethodGet, "/pages/run-2/html", nil)
	w = httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEndpoints_DisabledWithoutJWT(t *testing.T) {
	fx := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodDelete, "/pages/run-1", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/runs/run-1/audit", nil)
	w = httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminEndpoints_WithToken(t *testing.T) {
	jwtService := NewJWTService(&config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret!",
		ExpirationHours: 1,
	})
	fx := newTestServer(t, func(d *Deps) {
		d.JWT = jwtService
		d.Audit = &fakeAudit{entries: []db.AuditEntry{
			{ID: 1, RunID: "run-1", StepID: "scrape", PayloadBytes: 128},
		}}
	})
	fx.pages.pages["run-1"] = &types.LandingPage{RunID: "run-1"}

	token, err := jwtService.GenerateToken(uuid.New())
	require.NoError(t, err)

	// Missing token is rejected.
	req := httptest.NewRequest(http.MethodDelete, "/pages/run-1", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/runs/run-1/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decodeBody(t, w)["entries"].([]any)
	require.Len(t, entries, 1)

	req = httptest.NewRequest(http.MethodDelete, "/pages/run-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted", decodeBody(t, w)["status"])

	// Deleting again reports not found.
	req = httptest.NewRequest(http.MethodDelete, "/pages/run-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGenerateStream(t *testing.T) {
	// Publish a transition once the run starts, then let it finish.
	runner := &streamingRunner{}
	fx := newTestServer(t, func(d *Deps) { d.Runner = runner })
	runner.srv = fx.srv

	w := postJSON(t, fx.srv.Handler(), "/generate/stream", validSubmission())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := w.Body.String()
	assert.Contains(t, events, "event: started")
	assert.Contains(t, events, "event: step")
	assert.Contains(t, events, `"step_id":"scrape"`)
	assert.Contains(t, events, "event: complete")
	assert.Contains(t, events, `"status":"completed"`)
}

func TestHandleGenerateStream_RunFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.err = fmt.Errorf("scrape failed: connection refused")
	fx := newTestServer(t, func(d *Deps) { d.Runner = runner })

	w := postJSON(t, fx.srv.Handler(), "/generate/stream", validSubmission())

	require.Equal(t, http.StatusOK, w.Code)
	events := w.Body.String()
	assert.Contains(t, events, "event: error")
	assert.Contains(t, events, "scrape failed")
	assert.Contains(t, events, `"status":"failed"`)
}

// streamingRunner publishes a step transition through the server's hub the
// way the broadcaster push callback does in production.
type streamingRunner struct {
	srv *Server
}

func (r *streamingRunner) Run(_ context.Context, runID string, _ types.GenerateRequest) error {
	r.srv.PushStep(runID, types.StepRecord{
		StepID: "scrape",
		Label:  "Analyzing your website",
		Status: types.StepRunning,
	})
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	fx := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestCORSPreflight(t *testing.T) {
	fx := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/generate", nil)
	w := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-PAYMENT")
}
