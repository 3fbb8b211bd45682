package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/middleware/ratelimit"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
	"tracker/internal/report"
)

const handlerTimeout = 7 * time.Second

// Transactions is the write and lookup side used by the handlers.
// *services.TransactionService satisfies it.
type Transactions interface {
	GetTransaction(ctx context.Context, owner, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, owner, id int64) error
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, name string) (core.Category, error)
}

// Reports is the read side. *report.Service satisfies it.
type Reports interface {
	Summary(ctx context.Context, f core.Filter) (core.Summary, error)
	CategoryBreakdown(ctx context.Context, f core.Filter, t core.TransactionType) ([]core.CategoryAmount, error)
	Overview(ctx context.Context, f core.Filter) (core.Overview, error)
	IncomeExpenseChart(ctx context.Context, f core.Filter) (report.Series, error)
	CategoryChart(ctx context.Context, f core.Filter, t core.TransactionType) (report.Series, error)
	CacheEntries() int
}

// Options configures NewServer. Ready may be nil.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	// Ready reports storage health for /readyz.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	transactions Transactions
	reports      Reports
	ready        func(context.Context) error

	logger           *log.Logger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	transactionsCreated int64
	transactionsUpdated int64
	transactionsDeleted int64
	uptime              time.Time
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, tx Transactions, reports Reports, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	rlConfig := ratelimit.DefaultConfig()
	rlConfig.RequestsPerMinute = opts.RateLimitPerMinute

	detector := security.NewDetector()

	s := &Server{
		transactions:     tx,
		reports:          reports,
		ready:            opts.Ready,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(rlConfig),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSONError(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireOwner)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	api.HandleFunc("/reports/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/reports/categories", s.handleCategoryBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/reports/overview", s.handleOverview).Methods(http.MethodGet)

	api.HandleFunc("/charts/income-expenses", s.handleIncomeExpenseChart).Methods(http.MethodGet)
	api.HandleFunc("/charts/categories", s.handleCategoryChart).Methods(http.MethodGet)

	// Outermost first: trace, security headers, probe detection, rate
	// limiting, request logger.
	var handler http.Handler = r
	handler = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		JSONError(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}

type ownerKey struct{}

// requireOwner resolves the caller from X-User-ID and rejects the request
// with 401 when it is missing or malformed.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := ParseOwner(r)
		if err != nil {
			s.logger.WarnContext(r.Context(), "Rejected request without owner",
				log.FieldPath, r.URL.Path,
				log.FieldErrorType, log.ErrorTypeAuth,
				log.FieldError, err.Error())
			JSONError(http.StatusUnauthorized, err.Error()).Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFrom(ctx context.Context) int64 {
	owner, _ := ctx.Value(ownerKey{}).(int64)
	return owner
}

func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), handlerTimeout)
}
