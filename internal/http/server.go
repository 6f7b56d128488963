package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"fairshare/internal/core"
	"fairshare/internal/log"
	"fairshare/internal/middleware/ratelimit"
	"fairshare/internal/middleware/security"
	"fairshare/internal/middleware/trace"
)

// LedgerAPI is what the handlers need from the ledger service.
type LedgerAPI interface {
	Create(ctx context.Context, in core.ExpenseInput) (core.Transaction, error)
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
	List(limit int) []core.Transaction
	Get(id string) (core.Transaction, bool)
	Net(id string, user core.UserID) (core.Money, bool)
	OwedToMe(user core.UserID) []core.CounterpartAmount
	IOwe(user core.UserID) []core.CounterpartAmount
	Totals(user core.UserID) core.Totals
	RecentCounterparts(user core.UserID, limit int) []core.UserID
	PreviewEqualSplit(in core.EqualSplitInput, me core.UserID) ([]core.LedgerEntry, error)
	Ready(ctx context.Context) error
}

// Config tunes the server.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	// ViewpointUser is substituted for the "me" path alias.
	ViewpointUser  string
	RequestTimeout time.Duration
}

// Server wraps http.Server with the ledger routes and owns the background
// goroutines of its middleware.
type Server struct {
	http.Server
	api       LedgerAPI
	logger    *log.Logger
	viewpoint string

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(cfg Config, api LedgerAPI, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		api:       api,
		logger:    logger,
		viewpoint: cfg.ViewpointUser,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector:  security.NewDetector(logger),
	}
	s.tracer = trace.NewMiddleware(s.detector.ClientIP, logger)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.RequestIDFrom))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	}))
	r.Use(chimiddleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", s.handleCreateTransaction)
		r.Get("/", s.handleListTransactions)
		r.Delete("/", s.handleClearTransactions)
		r.Get("/{id}", s.handleGetTransaction)
		r.Delete("/{id}", s.handleDeleteTransaction)
	})

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/owed-to-me", s.handleOwedToMe)
		r.Get("/owing", s.handleOwing)
		r.Get("/totals", s.handleTotals)
		r.Get("/recent-counterparts", s.handleRecentCounterparts)
		r.Get("/transactions/{id}/net", s.handleNet)
		r.Post("/equal-split/preview", s.handlePreviewEqualSplit)
	})

	return r
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics returns the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
