package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/middleware/ratelimit"
	"keuangan/internal/middleware/security"
	"keuangan/internal/middleware/trace"
	"keuangan/internal/services"
)

// Dashboard is the pipeline the API exposes.
type Dashboard interface {
	CurrentSession() services.Session
	SelectPeriod(ctx context.Context, p core.Period) (services.Session, error)
	Home(ctx context.Context, sess services.Session) (*services.Home, error)
	Categories(ctx context.Context, sess services.Session) ([]core.BudgetCategoryRow, error)
	Drilldown(ctx context.Context, sess services.Session, category string) (*services.Drilldown, error)
	Goals(ctx context.Context, sess services.Session) ([]services.Goal, error)
	BudgetItems(ctx context.Context, sess services.Session, category string) ([]string, error)
	RecordTransaction(ctx context.Context, sess services.Session, tx core.Transaction) error
}

var _ Dashboard = (*services.DashboardService)(nil)

type Server struct {
	http.Server
	dashboard Dashboard
	ready     func(ctx context.Context) error
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	trace    *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithReadyCheck sets the probe behind /readyz, typically the backend
// ping.
func WithReadyCheck(ready func(ctx context.Context) error) Option {
	return func(s *Server) { s.ready = ready }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRateLimit replaces the limiter guarding POST /api/transactions.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		s.limiter.Stop()
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// WithTrustedProxies adds proxy networks whose forwarding headers are
// honoured.
func WithTrustedProxies(cidrs ...string) Option {
	return func(s *Server) {
		for _, c := range cidrs {
			if err := s.detector.AddTrustedProxy(c); err != nil {
				s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
			}
		}
	}
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, dashboard Dashboard, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		dashboard: dashboard,
		ready:     func(context.Context) error { return nil },
		logger:    log.New(log.Config{Component: log.ComponentHTTP}),
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  security.NewDetector(),
		started:   time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	s.trace = trace.NewMiddleware(s.logger, s.detector.ClientIP)
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not_found", "no such route").Write(w)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed").Write(w)
	})

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/period", s.handleGetPeriod).Methods(http.MethodGet)
	api.HandleFunc("/period", s.handleSelectPeriod).Methods(http.MethodPut)
	api.HandleFunc("/home", s.handleHome).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/{category}", s.handleDrilldown).Methods(http.MethodGet)
	api.HandleFunc("/categories/{category}/items", s.handleBudgetItems).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.handleGoals).Methods(http.MethodGet)

	limited := s.limiter.Middleware(s.detector.ClientIP, s.onRateLimited)
	api.Handle("/transactions", limited(http.HandlerFunc(s.handleRecordTransaction))).Methods(http.MethodPost)

	var h http.Handler = router
	h = s.detector.Middleware(s.logger)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	return s.trace.Middleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request, retry time.Duration) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.NewFields().
			WithComponent(log.ComponentRateLimit).
			WithClientIP(s.detector.ClientIP(r)).
			WithRequestID(trace.GetRequestID(r.Context())).
			ToSlice()...)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry in "+retry.Round(time.Second).String()).Write(w)
}

// Shutdown stops the limiter, then the HTTP server. It runs once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
