// Package server provides the HTTP REST API for the landing page generator.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/landing-agent/internal/db"
	"github.com/jonathan/landing-agent/internal/payment"
	"github.com/jonathan/landing-agent/internal/server/middleware"
	"github.com/jonathan/landing-agent/internal/server/ratelimit"
	"github.com/jonathan/landing-agent/internal/status"
	"github.com/jonathan/landing-agent/internal/types"
)

// Runner starts a pipeline run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, runID string, req types.GenerateRequest) error
}

// PageStore reads and deletes persisted landing pages. *db.DB satisfies it.
type PageStore interface {
	GetLandingPage(ctx context.Context, runID string) (*types.LandingPage, error)
	ListLandingPages(ctx context.Context, limit int) ([]types.PageSummary, error)
	DeleteLandingPage(ctx context.Context, runID string) error
}

// AuditReader lists recorded step payloads. *db.DB satisfies it.
type AuditReader interface {
	ListStepAudit(ctx context.Context, runID string) ([]db.AuditEntry, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	runner      Runner
	resolver    *status.Resolver
	pages       PageStore
	audit       AuditReader
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	verifier    payment.Verifier
	payReqs     payment.Requirements
	hub         *streamHub
	runTimeout  time.Duration
	shutdown    []func()
}

// Config holds server configuration
type Config struct {
	Port int
	// RunTimeout bounds a single pipeline run end to end.
	RunTimeout time.Duration
}

// Deps holds the wired collaborators the server drives.
type Deps struct {
	Runner      Runner
	Resolver    *status.Resolver
	Pages       PageStore
	Audit       AuditReader
	RateLimiter *ratelimit.Limiter
	JWT         *JWTService
	Verifier    payment.Verifier
	PayReqs     payment.Requirements
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 15 * time.Minute
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}
	if deps.Verifier == nil {
		deps.Verifier = payment.NoopVerifier{}
	}

	s := &Server{
		runner:      deps.Runner,
		resolver:    deps.Resolver,
		pages:       deps.Pages,
		audit:       deps.Audit,
		rateLimiter: deps.RateLimiter,
		jwtService:  deps.JWT,
		verifier:    deps.Verifier,
		payReqs:     deps.PayReqs,
		hub:         newStreamHub(),
		runTimeout:  cfg.RunTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("POST /generate/stream", s.handleGenerateStream)
	mux.HandleFunc("GET /status/{run_id}", s.handleStatus)
	mux.HandleFunc("GET /pages", s.handleListPages)
	mux.HandleFunc("GET /pages/{run_id}", s.handleGetPage)
	mux.HandleFunc("GET /pages/{run_id}/html", s.handleGetPageHTML)
	mux.Handle("DELETE /pages/{run_id}", s.requireAdmin(http.HandlerFunc(s.handleDeletePage)))
	mux.Handle("GET /runs/{run_id}/audit", s.requireAdmin(http.HandlerFunc(s.handleRunAudit)))
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 20 * time.Minute, // streaming runs hold the connection open
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// OnShutdown registers a cleanup function invoked after the listener stops.
func (s *Server) OnShutdown(fn func()) {
	s.shutdown = append(s.shutdown, fn)
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	for _, fn := range s.shutdown {
		fn()
	}

	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-PAYMENT")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware. Submission endpoints are
// skipped here; their limits are identifier-aware and enforced in the
// handler once the payload has been parsed.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/generate" || r.URL.Path == "/generate/stream" {
			next.ServeHTTP(w, r)
			return
		}

		clientID := "ip:" + s.extractClientIP(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// requireAdmin wraps a handler with JWT bearer auth. With no JWT service
// configured the admin surface is disabled outright.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	if s.jwtService == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			s.errorResponse(w, http.StatusUnauthorized, "admin endpoints are disabled")
		})
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(next)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientIP extracts the caller's network address from the request.
// Uses RemoteAddr; X-Forwarded-For is deliberately not trusted here.
func (s *Server) extractClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// identifier builds the rate-limit identity for a submission: the user id
// when supplied, else the caller's address.
func (s *Server) identifier(r *http.Request, req *types.GenerateRequest) string {
	if req.UserID != "" {
		return "user:" + req.UserID
	}
	return "ip:" + s.extractClientIP(r)
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
