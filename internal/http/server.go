package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"budget/internal/cache"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
	"budget/internal/state"
	"budget/internal/views"
	appweb "budget/web"
)

// Options tunes the server. Zero values pick defaults.
type Options struct {
	Logger             *log.Logger
	Ready              func(context.Context) error
	RateLimitPerMinute int
	ReportCacheTTL     time.Duration
	ReportCacheSize    int
}

// Server is the budget web application.
type Server struct {
	http.Server

	svc    *services.TransactionService
	pages  map[string]*template.Template
	logger *log.Logger
	ready  func(context.Context) error

	reports      *cache.LRUCache[views.Report]
	cacheManager *cache.Manager
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware

	metrics      appMetrics
	unsubscribe  func()
	shutdownOnce sync.Once
}

type appMetrics struct {
	started        time.Time
	saved          atomic.Int64
	deleted        atomic.Int64
	reportRequests atomic.Int64
	reportBuilds   atomic.Int64
	panics         atomic.Int64
}

// NewServer configures routes, middleware and templates. Template errors
// are logged and reported by /readyz.
func NewServer(addr string, svc *services.TransactionService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = 32
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = 5 * time.Minute
	}
	if opts.Ready == nil {
		opts.Ready = func(context.Context) error { return nil }
	}

	s := &Server{
		svc:          svc,
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		ready:        opts.Ready,
		reports:      cache.NewLRUCache[views.Report](opts.ReportCacheSize, opts.ReportCacheTTL),
		cacheManager: cache.NewManager(opts.Logger),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:     security.NewDetector(),
		tracer:       trace.NewMiddleware(),
	}
	s.metrics.started = time.Now()
	s.cacheManager.Register(s.reports)

	// Any state change may alter every report.
	s.unsubscribe = svc.State().Subscribe(func(state.State) { s.reports.Clear() })

	pages, err := parsePages(appweb.TemplatesFS)
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.pages = pages

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux, opts.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /budget", s.handleBudget)
	mux.HandleFunc("GET /reports", s.handleReports)
	mux.HandleFunc("GET /item/new", s.handleNewItem)
	mux.HandleFunc("POST /item/new", s.handleCreateItem)
	mux.HandleFunc("GET /item/{id}", s.handleItem)
	mux.HandleFunc("GET /item/{id}/edit", s.handleEditItem)
	mux.HandleFunc("POST /item/{id}/edit", s.handleUpdateItem)
	mux.HandleFunc("POST /item/{id}/delete", s.handleDeleteItem)
	mux.HandleFunc("GET /ui/categories", s.handleCategoryOptions)
}

// middleware wraps h, outermost first: request id, request log, error
// boundary, security headers, probe detection, POST rate limit.
func (s *Server) middleware(h http.Handler, logger *log.Logger) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited, http.MethodPost)(h)
	h = s.detector.Middleware(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.recoverer(h)
	h = log.Middleware(logger, trace.FromRequest, s.detector.ExtractClientIP)(h)
	return s.tracer.Middleware(h)
}

// recoverer is the error boundary: a panicking handler is logged and the
// user gets the error page instead of a dropped connection.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.metrics.panics.Add(1)
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panicked",
				log.FieldError, fmt.Sprint(rec),
				log.FieldPath, r.URL.Path,
				"stack", string(debug.Stack()))
			s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please reload the page.")
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	if isHTMX(r) {
		TooManyRequestsError().Write(w)
		return
	}
	s.renderError(w, r, http.StatusTooManyRequests, "Too many requests. Please try again in a minute.")
}

// Run drives the background janitors until ctx is done.
func (s *Server) Run(ctx context.Context) {
	go s.cacheManager.Run(ctx, time.Minute)
	go s.limiter.Run(ctx)
}

// Shutdown stops accepting requests and detaches from the state store.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		s.unsubscribe()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
