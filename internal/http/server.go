package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"expenseai/internal/core"
	"expenseai/internal/middleware/ratelimit"
	"expenseai/internal/middleware/security"
	"expenseai/internal/middleware/trace"
)

type (
	// ExpenseAPI is the expense service as seen by the handlers.
	ExpenseAPI interface {
		List(ctx context.Context) ([]core.Expense, error)
		Get(ctx context.Context, id int64) (core.Expense, error)
		ByDate(ctx context.Context, date core.Date) ([]core.Expense, error)
		ByMonth(ctx context.Context, month core.Month) ([]core.Expense, error)
		Create(ctx context.Context, e core.Expense) (core.Expense, error)
		Replace(ctx context.Context, id int64, e core.Expense) (core.Expense, error)
		Delete(ctx context.Context, id int64) error
	}

	Chatter interface {
		Chat(ctx context.Context, message string) (string, error)
	}

	InsightAnalyzer interface {
		Analyze(ctx context.Context, month core.Month, lang, currency string) (core.Insight, error)
	}

	// ReadinessCheck reports whether a dependency can serve traffic.
	ReadinessCheck func(ctx context.Context) error
)

// Config holds the listener and middleware settings.
type Config struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

type namedCheck struct {
	name  string
	check ReadinessCheck
}

type Server struct {
	http.Server
	expenses ExpenseAPI
	chat     Chatter
	insights InsightAnalyzer

	checks       []namedCheck
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

type Option func(*Server)

// WithReadinessCheck adds a dependency probed by /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) {
		s.checks = append(s.checks, namedCheck{name: name, check: check})
	}
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, expenses ExpenseAPI, chat Chatter, insights InsightAnalyzer, opts ...Option) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// chat turns may chain several model round trips
		cfg.WriteTimeout = 3 * time.Minute
	}

	detector := security.NewDetector()
	s := &Server{
		expenses: expenses,
		chat:     chat,
		insights: insights,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("GET /expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("GET /expenses/date/{date}", s.handleExpensesByDate)
	mux.HandleFunc("GET /expenses/month/{yearMonth}", s.handleExpensesByMonth)
	mux.Handle("POST /expenses", s.limited(s.handleCreateExpense))
	mux.Handle("PUT /expenses/{id}", s.limited(s.handleReplaceExpense))
	mux.Handle("DELETE /expenses/{id}", s.limited(s.handleDeleteExpense))

	mux.Handle("POST /chat", s.limited(s.handleChat))
	mux.Handle("GET /insight", s.limited(s.handleInsight))

	var handler http.Handler = mux
	handler = detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = newCORS(cfg.AllowedOrigins).Handler(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         600,
	})
}

// limited applies the per-client rate limit to writes and model-backed routes.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Rate limit exceeded",
			"client_ip", s.detector.ExtractClientIP(r),
			"method", r.Method,
			"path", r.URL.Path)
		writeErrorCode(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded. Please try again later.")
	})(h)
}

// Shutdown stops background goroutines and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		m := s.tracer.GetMetrics()
		slog.InfoContext(ctx, "HTTP server stopped",
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limit_hits", s.limiter.GetMetrics().TotalHits,
			"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.check(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", "check", c.name, "error", err)
			results[c.name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[c.name] = "ok"
	}

	body := map[string]any{"status": "ready", "checks": results}
	if status != http.StatusOK {
		body["status"] = "not_ready"
	}
	writeJSON(w, status, body)
}
