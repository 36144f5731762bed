// Package http exposes the coaching services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fincoach/internal/categorize"
	applog "fincoach/internal/log"
	"fincoach/internal/middleware/ratelimit"
	"fincoach/internal/middleware/security"
	"fincoach/internal/middleware/trace"
	"fincoach/internal/services"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups everything the handlers call into.
type Services struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Insights     *services.InsightService
	Analysis     *services.AnalysisService
	Tasks        *services.TaskService
	Imports      *services.ImportService
	Categorizer  *categorize.Categorizer
	Store        Pinger
}

type Config struct {
	Addr           string
	MaxUploadBytes int64
	RateLimit      ratelimit.Config
	TrustedProxies []string
}

type Server struct {
	http.Server
	svc       Services
	cfg       Config
	logger    *applog.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer wires the middleware chain and routes.
func NewServer(cfg Config, svc Services, logger *applog.Logger) (*Server, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 << 20
	}
	detector, err := security.NewDetector(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:       svc,
		cfg:       cfg,
		logger:    logger.WithComponent(applog.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(cfg.RateLimit),
		detector:  detector,
		startedAt: time.Now(),
	}
	s.tracer = trace.NewMiddleware(detector.ExtractClientIP, logger)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Get("/profile", s.handleGetProfile)
			r.Put("/profile", s.handlePutProfile)

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/categories", s.handleCategories)

			r.Get("/insights", s.handleListInsights)
			r.Post("/insights/generate", s.handleGenerateInsights)

			r.Get("/analysis/spending-patterns", s.handleSpendingPatterns)
			r.Get("/analysis/income-variability", s.handleIncomeVariability)
			r.Get("/analysis/comprehensive", s.handleComprehensive)
			r.Get("/analysis/goals", s.handleGoals)
			r.Get("/recommendations", s.handleRecommendations)
			r.Post("/coach/advice", s.handleCoach)

			r.Get("/agents", s.handleAgents)
			r.Get("/agents/performance", s.handleAgentPerformance)
			r.Post("/agents/collaborate", s.handleCollaborate)
			r.Post("/agents/{type}/specialize", s.handleSpecializeAgent)

			r.Get("/tasks", s.handleListTasks)
			r.Post("/tasks", s.handleCreateTask)
			r.Get("/tasks/{id}", s.handleGetTask)
			r.Delete("/tasks/{id}", s.handleDeleteTask)
			r.Post("/tasks/{id}/rerun", s.handleRerunTask)

			r.Get("/workflows", s.handleListWorkflows)
			r.Post("/workflows", s.handleCreateWorkflow)
			r.Post("/workflows/{id}/execute", s.handleExecuteWorkflow)

			r.Post("/import/preview", s.handleImportPreview)
			r.Post("/import/confirm", s.handleImportConfirm)
			r.Post("/import/sheets", s.handleImportSheets)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Store.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops the background limiter cleanup and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
