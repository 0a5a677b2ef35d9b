package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"housebudget/internal/budget"
	"housebudget/internal/core"
	"housebudget/internal/log"
	"housebudget/internal/metrics"
	"housebudget/internal/middleware/ratelimit"
	"housebudget/internal/middleware/security"
	"housebudget/internal/middleware/trace"
	"housebudget/internal/services"
	appweb "housebudget/web"
)

// Household is what the handlers need from the household service.
type Household interface {
	Household() core.Household
	Bands() budget.Bands
	Summary(ctx context.Context, spending core.Money) (services.Summary, error)
	OutgoingsFor(ctx context.Context, person string) ([]core.Outgoing, error)
	ReplaceOutgoings(ctx context.Context, person string, records []core.Outgoing) error
	Project(in budget.ProjectionInput) (budget.Projection, error)
	Ready(ctx context.Context) error
}

// Options configures optional server collaborators.
type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Metrics
	// SavesPerMinute limits POSTs per client; zero uses the limiter default.
	SavesPerMinute int
}

type Server struct {
	http.Server
	templates   *template.Template
	household   Household
	logger      *log.Logger
	metrics     *metrics.Metrics
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, household Household, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates:   t,
		household:   household,
		logger:      logger,
		metrics:     opts.Metrics,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.SavesPerMinute}),
		detector:    security.NewDetector(),
		started:     time.Now(),
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/projection", s.handleProjection)
	mux.HandleFunc("GET /outgoings", s.handleOutgoings)
	mux.HandleFunc("GET /outgoings/{person}", s.handleEditor)
	mux.HandleFunc("POST /outgoings/{person}", s.handleSaveOutgoings)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)
	mux.HandleFunc("GET /api/stamp-duty", s.handleAPIStampDuty)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// trace must see the same *Request the mux matches, so nothing between
	// them may clone it.
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, http.MethodPost)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP, s.metrics).Middleware(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.detector.Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s, nil
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a template into a buffer so a failure can still produce
// a clean 500 instead of a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, err := s.execute(name, data)
	if err != nil {
		s.renderFailed(w, r, name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *Server) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
		log.FieldError, err,
		"template", name,
		log.FieldOperation, log.OpRender)
	InternalServerError("Something went wrong rendering this page").Write(w)
}
