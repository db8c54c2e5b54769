package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
	"github.com/kjstillabower/tourism-orchestrator/internal/traffic"
)

// RouterOptions configures the middleware stack around the handlers.
type RouterOptions struct {
	AllowedOrigins []string
	Limiter        *IPRateLimiter
	Tracker        *traffic.Tracker
	InFlight       *InFlightTracker
	Logger         *zap.Logger
}

// NewRouter wires /api/plan, /health and /metrics. The plan route is rate limited and
// counted for the shutdown drain. CORS wraps the whole router so preflight
// requests are answered before routing.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	inFlight := opts.InFlight
	if inFlight == nil {
		inFlight = &InFlightTracker{}
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(inFlight.Middleware)
	api.Use(RateLimitMiddleware(opts.Limiter, opts.Tracker))
	api.HandleFunc("/plan", h.PostPlan).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(router)
}
