package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"dealtrack/internal/auth"
	"dealtrack/internal/cache"
	"dealtrack/internal/core"
	"dealtrack/internal/forms"
	"dealtrack/internal/middleware/ratelimit"
	"dealtrack/internal/middleware/security"
	"dealtrack/internal/middleware/trace"
	"dealtrack/internal/services"
	appweb "dealtrack/web"
)

// appMetrics tracks coarse application counters exposed on /metrics.
type appMetrics struct {
	totalTransactions int64
	cacheHits         int64
	cacheMisses       int64
	uptime            time.Time
}

// Options carries the server's collaborators and tunables.
type Options struct {
	Addr      string
	Service   *services.TransactionService
	Registry  *forms.Registry
	Sessions  *auth.SessionStore
	WizardTTL time.Duration
}

// Server wires the transaction service, the wizard machinery and the session
// stores behind an HTMX-driven UI.
type Server struct {
	http.Server
	templates *template.Template
	txns      *services.TransactionService
	registry  *forms.Registry
	renderer  *forms.Renderer
	sessions  *auth.SessionStore
	wizards   *wizardStore

	listCache *cache.LRUCache[[]core.Transaction]
	caches    *cache.Manager

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	wizardTTL := opts.WizardTTL
	if wizardTTL <= 0 {
		wizardTTL = 30 * time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		txns:        opts.Service,
		registry:    opts.Registry,
		renderer:    forms.NewRenderer(),
		sessions:    opts.Sessions,
		wizards:     newWizardStore(wizardTTL),
		listCache:   cache.NewLRUCache[[]core.Transaction](200, 2*time.Minute),
		caches:      cache.NewManager(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    security.NewDetector(),
		appMetrics:  appMetrics{uptime: time.Now()},
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.caches.Register(s.listCache)
	s.caches.Register(s.wizards)
	s.caches.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)

	protect := auth.Middleware(s.sessions, "/login")
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protect(h))
	}

	route("/", s.handleIndex)
	route("/ui/transactions", s.handleTransactionList)
	route("/transactions/delete", s.handleDeleteTransaction)

	route("/wizard/open", s.handleWizardOpen)
	route("/wizard/select-type", s.handleWizardSelectType)
	route("/wizard/next", s.handleWizardNext)
	route("/wizard/back", s.handleWizardBack)
	route("/wizard/submit", s.handleWizardSubmit)
	route("/wizard/cancel", s.handleWizardCancel)
	route("/wizard/fees/add", s.handleWizardFeeAdd)
	route("/wizard/fees/remove", s.handleWizardFeeRemove)
	route("/wizard/fees/unit", s.handleWizardFeeUnit)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, nil)

	s.Server.Handler = s.tracer.Middleware(headers.Middleware(limited(s.flagSuspicious(mux))))

	return s
}

// flagSuspicious records requests that look like scanner traffic. They are
// served normally; the counter surfaces on /metrics and the log line carries
// enough to investigate.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request",
				"method", r.Method, "path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the HTTP listener and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil || s.txns == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics exposes application counters in a Prometheus-like text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	totalTransactions := atomic.LoadInt64(&s.appMetrics.totalTransactions)
	cacheHits := atomic.LoadInt64(&s.appMetrics.cacheHits)
	cacheMisses := atomic.LoadInt64(&s.appMetrics.cacheMisses)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP transactions_written_total Transactions created or updated in this process\n")
	fmt.Fprintf(w, "# TYPE transactions_written_total counter\n")
	fmt.Fprintf(w, "transactions_written_total %d\n\n", totalTransactions)

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total %d\n\n", cacheHits)

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total %d\n\n", cacheMisses)

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{type=\"transaction_list\"} %d\n\n", s.listCache.Size())

	fmt.Fprintf(w, "# HELP open_wizards Currently open wizard sessions\n")
	fmt.Fprintf(w, "# TYPE open_wizards gauge\n")
	fmt.Fprintf(w, "open_wizards %d\n\n", s.wizards.Size())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.ActiveClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", uptime.Seconds())
}
