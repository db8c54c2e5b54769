package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tourism-orchestrator/internal/intent"
	"github.com/kjstillabower/tourism-orchestrator/internal/models"
	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
	"github.com/kjstillabower/tourism-orchestrator/internal/traffic"
	"github.com/kjstillabower/tourism-orchestrator/internal/validation"
)

const (
	maxBodyBytes    = 64 << 10
	maxCandidateLen = 100
)

// Planner produces a composed plan for a place candidate.
type Planner interface {
	Orchestrate(ctx context.Context, candidate string, want models.Domains) models.OrchestrationResult
}

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	StartTime        time.Time
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	planner      Planner
	extractor    intent.Extractor
	tracker      *traffic.Tracker
	healthConfig *HealthConfig
	logger       *zap.Logger

	shuttingDown     atomic.Bool
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. A nil extractor uses intent.HeuristicExtractor.
func NewHandler(
	planner Planner,
	extractor intent.Extractor,
	tracker *traffic.Tracker,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	if extractor == nil {
		extractor = intent.HeuristicExtractor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		planner:      planner,
		extractor:    extractor,
		tracker:      tracker,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// SetShuttingDown flips the health endpoint to 503 shutting-down while true.
func (h *Handler) SetShuttingDown(v bool) {
	h.shuttingDown.Store(v)
}

type weatherPayload struct {
	Temperature              *float64          `json:"temperature"`
	PrecipitationProbability *int              `json:"precipitation_probability"`
	Summary                  *string           `json:"summary"`
	Forecast                 []forecastPayload `json:"forecast"`
	Error                    *string           `json:"error"`
}

type forecastPayload struct {
	Date                     string   `json:"date"`
	TempMax                  *float64 `json:"temp_max"`
	TempMin                  *float64 `json:"temp_min"`
	PrecipitationProbability *int     `json:"precipitation_probability"`
	Summary                  *string  `json:"summary"`
}

type placePayload struct {
	Name     string   `json:"name"`
	Category *string  `json:"category"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

type planResponse struct {
	Place         *string         `json:"place"`
	Lat           *float64        `json:"lat"`
	Lon           *float64        `json:"lon"`
	GeocodeSource *string         `json:"geocode_source"`
	Intents       []string        `json:"intents"`
	Weather       *weatherPayload `json:"weather"`
	Places        []string        `json:"places"`
	PlacesGeo     []placePayload  `json:"places_geo"`
	Text          *string         `json:"text"`
	Errors        []string        `json:"errors"`
}

// PostPlan handles POST /api/plan.
func (h *Handler) PostPlan(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	var req validation.PlanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body must be a JSON object")
		return
	}
	if err := validation.ValidatePlanRequest(&req); err != nil {
		switch {
		case errors.Is(err, validation.ErrEmptyMessage):
			writeError(w, r, http.StatusBadRequest, "EMPTY_MESSAGE", "Please enter a destination to plan your trip")
		default:
			writeError(w, r, http.StatusUnprocessableEntity, "INVALID_REQUEST", err.Error())
		}
		return
	}

	want := intent.Resolve(req.Message, req.Intents)
	candidate := validation.SanitizeLocation(intent.Candidate(h.extractor, req.Message), maxCandidateLen)
	logger.Info("received planning request",
		zap.String("candidate", candidate),
		zap.Strings("intents", want.Strings()))

	// Provider calls run to completion under their own timeouts even if the client goes away.
	result := h.planner.Orchestrate(context.WithoutCancel(r.Context()), candidate, want)

	resp := toPlanResponse(result, want)
	logger.Info("responding planning result",
		zap.String("place", result.Place),
		zap.Bool("have_weather", result.Weather != nil),
		zap.Int("places_count", len(result.Places)),
		zap.Strings("errors", result.Errors))
	writeJSON(w, http.StatusOK, resp)
}

func toPlanResponse(result models.OrchestrationResult, want models.Domains) planResponse {
	resp := planResponse{
		Place:         optString(result.Place),
		Lat:           result.Lat,
		Lon:           result.Lon,
		GeocodeSource: optString(string(result.GeocodeSource)),
		Intents:       want.Strings(),
		Places:        result.Places,
		Text:          optString(result.SummaryText),
		Errors:        result.Errors,
	}
	if ws := result.Weather; ws != nil {
		wp := &weatherPayload{
			Temperature:              ws.Temperature,
			PrecipitationProbability: ws.PrecipitationProbability,
			Summary:                  optString(ws.Summary),
			Error:                    optString(ws.Error),
		}
		for _, d := range ws.Forecast {
			wp.Forecast = append(wp.Forecast, forecastPayload{
				Date:                     d.Date,
				TempMax:                  d.TempMax,
				TempMin:                  d.TempMin,
				PrecipitationProbability: d.PrecipitationProbability,
				Summary:                  optString(d.Summary),
			})
		}
		resp.Weather = wp
	}
	if result.PlacesDetailed != nil {
		resp.PlacesGeo = make([]placePayload, len(result.PlacesDetailed))
		for i, p := range result.PlacesDetailed {
			resp.PlacesGeo[i] = placePayload{Name: p.Name, Category: optString(p.Category), Lat: p.Lat, Lon: p.Lon}
		}
	}
	return resp
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
	checks     map[string]string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "tourism-orchestrator",
		"version":   "dev",
		"checks":    result.checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptime_seconds"] = int64(time.Since(h.healthConfig.StartTime).Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order: shutting-down > degraded > healthy.
// A domain is unhealthy when its error rate over the window reaches DegradedErrorPct. The status
// code is 503 only when every domain is unhealthy.
func (h *Handler) computeHealthStatus() healthResult {
	checks := make(map[string]string, len(models.AllDomains))
	for _, d := range models.AllDomains {
		checks[string(d)] = "healthy"
	}
	if h.shuttingDown.Load() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal", checks}
	}
	if h.healthConfig == nil || h.tracker == nil || h.healthConfig.DegradedWindow <= 0 || h.healthConfig.DegradedErrorPct <= 0 {
		return healthResult{"healthy", http.StatusOK, "", checks}
	}

	unhealthy := 0
	for _, d := range models.AllDomains {
		errs, total := h.tracker.ErrorRate(string(d), h.healthConfig.DegradedWindow)
		if total == 0 {
			continue
		}
		if float64(errs)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			checks[string(d)] = "unhealthy"
			unhealthy++
		}
	}
	switch {
	case unhealthy == len(models.AllDomains):
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach", checks}
	case unhealthy > 0:
		return healthResult{"degraded", http.StatusOK, "partial_error_rate_breach", checks}
	}
	return healthResult{"healthy", http.StatusOK, "", checks}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationIDFromContext(r.Context()),
		},
	})
}
