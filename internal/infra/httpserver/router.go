package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/seller-hub/internal/application/analysis"
	appauth "github.com/bryanwahyu/seller-hub/internal/application/auth"
	appcatalog "github.com/bryanwahyu/seller-hub/internal/application/catalog"
	"github.com/bryanwahyu/seller-hub/internal/errx"
	"github.com/bryanwahyu/seller-hub/internal/logx"
	"github.com/bryanwahyu/seller-hub/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Options wires the router. Checkers, APIKeys and Limiter are optional.
type Options struct {
	Auth     *appauth.Service
	Analysis *appanalysis.Service
	Catalog  *appcatalog.Service

	Checkers       map[string]middleware.HealthChecker
	APIKeys        map[string]string
	Limiter        *middleware.RateLimiter
	AllowedOrigins []string
	ExposeTokens   bool
	// TrustProxy takes the client IP from forwarding headers.
	TrustProxy bool
}

type Router struct {
	authSvc      *appauth.Service
	analysisSvc  *appanalysis.Service
	catalogSvc   *appcatalog.Service
	exposeTokens bool
}

func NewRouter(o Options) http.Handler {
	r := &Router{
		authSvc:      o.Auth,
		analysisSvc:  o.Analysis,
		catalogSvc:   o.Catalog,
		exposeTokens: o.ExposeTokens,
	}

	origins := o.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	if o.TrustProxy {
		mux.Use(chimw.RealIP)
	}
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
		MaxAge:         300,
	}))
	if len(o.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(o.APIKeys))
	}
	if o.Limiter != nil {
		mux.Use(o.Limiter.Middleware)
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(o.Checkers))
	mux.Get("/readyz", middleware.ReadinessHandler(o.Checkers))
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/ml-oauth", r.wrap(r.handleOAuth))
		rt.Post("/ml-oauth", r.wrap(r.handleOAuth))
		rt.Post("/ml-products", r.wrap(r.handleProducts))
		rt.Post("/analysis", r.wrap(r.handleAnalyze))
		rt.Get("/analysis", r.wrap(r.handleAnalysisList))
		rt.Get("/analysis/models", r.wrap(r.handleModels))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeError(w, err)
		}
	}
}

type errorBody struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Kind      errx.Kind `json:"kind,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// writeError renders the error envelope. Errors outside errx are not echoed.
func writeError(w http.ResponseWriter, err error) {
	status := errx.HTTPStatus(err)
	body := errorBody{Error: err.Error(), Timestamp: time.Now().UTC()}

	var e *errx.Error
	if errors.As(err, &e) {
		body.Kind = e.Kind
		body.Provider = e.Provider
	} else {
		body.Error = "internal server error"
	}
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// decodeBody decodes an optional JSON body; an empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, req *http.Request, dst any) error {
	if req.Body == nil {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errx.Validation("invalid JSON body: %v", err)
}
