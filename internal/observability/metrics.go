package observability

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream provider calls (nominatim, open_meteo, overpass) by status class.
	ProviderCallsTotal *prometheus.CounterVec

	// Upstream latency. Watch for: p95 > 2s (provider degradation).
	ProviderDuration *prometheus.HistogramVec

	// Provider errors by stable category (see client.CategorizeError).
	ProviderErrorsTotal *prometheus.CounterVec

	// Retry attempts beyond the first, per wrapped operation. High values = unstable upstream.
	RetriesTotal *prometheus.CounterVec

	// Cache lookups by result (hit, miss). Hit rate = hit/(hit+miss).
	CacheLookupsTotal *prometheus.CounterVec

	// Entries removed from the cache store by reason (expired, capacity).
	CacheEvictionsTotal *prometheus.CounterVec

	// Current number of cache entries.
	CacheEntries prometheus.Gauge

	// Concurrent misses for the same key (duplicate upstream work).
	CacheStampedeDetectedTotal prometheus.Counter

	// Coalesced lookups that waited on another caller's computation.
	CacheCoalescedTotal prometheus.Counter

	// Cache warming runs, failures and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Geocode resolutions by tier that produced the answer (primary, alias, static, none).
	GeocodeResolutionsTotal *prometheus.CounterVec

	// Places radius expansions performed.
	PlacesRadiusExpansionsTotal prometheus.Counter

	// Orchestrations by outcome (ok, partial, no_candidate, unresolved).
	OrchestrationsTotal *prometheus.CounterVec

	// Domain-level failures (weather, places) absorbed into results.
	DomainFailuresTotal *prometheus.CounterVec

	// Rate limit denials.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker transitions and current state per provider.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
	CircuitBreakerState            *prometheus.GaugeVec

	// Plans by resolved place (allow-list; others go to "other").
	PlansByLocationTotal *prometheus.CounterVec

	trackedLocationsMu sync.RWMutex
	trackedLocations   map[string]struct{}
)

func init() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerCallsTotal",
			Help: "Total number of upstream provider calls",
		},
		[]string{"provider", "status"},
	)
	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "providerDurationSeconds",
			Help:    "Upstream provider latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "status"},
	)
	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerErrorsTotal",
			Help: "Upstream provider errors by category",
		},
		[]string{"provider", "category"},
	)
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retriesTotal",
			Help: "Total number of retry attempts (excluding the first attempt)",
		},
		[]string{"operation"},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheLookupsTotal",
			Help: "Cache lookups by result",
		},
		[]string{"result"},
	)
	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheEvictionsTotal",
			Help: "Cache entries removed by reason",
		},
		[]string{"reason"},
	)
	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cacheEntries",
			Help: "Number of entries currently held in the cache store",
		},
	)
	CacheStampedeDetectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheStampedeDetectedTotal",
			Help: "Cache misses that overlapped another in-progress miss for the same key",
		},
	)
	CacheCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheCoalescedTotal",
			Help: "Cache misses served by waiting on an in-flight computation",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs with at least one failed location",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming run duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	GeocodeResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocodeResolutionsTotal",
			Help: "Geocode resolutions by the tier that produced the result",
		},
		[]string{"tier"},
	)
	PlacesRadiusExpansionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "placesRadiusExpansionsTotal",
			Help: "Number of times the places search radius was widened",
		},
	)
	OrchestrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrationsTotal",
			Help: "Plan orchestrations by outcome",
		},
		[]string{"outcome"},
	)
	DomainFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domainFailuresTotal",
			Help: "Domain-level failures absorbed into plan results",
		},
		[]string{"domain"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
		},
		[]string{"component"},
	)
	PlansByLocationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansByLocationTotal",
			Help: "Plan requests by location (allow-list; others use location=other)",
		},
		[]string{"location"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		ProviderCallsTotal, ProviderDuration, ProviderErrorsTotal, RetriesTotal,
		CacheLookupsTotal, CacheEvictionsTotal, CacheEntries, CacheStampedeDetectedTotal, CacheCoalescedTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		GeocodeResolutionsTotal, PlacesRadiusExpansionsTotal,
		OrchestrationsTotal, DomainFailuresTotal,
		RateLimitDeniedTotal,
		CircuitBreakerTransitionsTotal, CircuitBreakerState,
		PlansByLocationTotal,
	)
}

// RecordCircuitBreakerTransition counts a transition and updates the state gauge.
func RecordCircuitBreakerTransition(component, from, to string, toValue int) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(float64(toValue))
}

// SetTrackedLocations sets the allow-list for location metrics. Non-tracked locations increment "other".
func SetTrackedLocations(locations []string) {
	trackedLocationsMu.Lock()
	defer trackedLocationsMu.Unlock()
	trackedLocations = make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		trackedLocations[normalizeLocationForMetrics(loc)] = struct{}{}
	}
}

// MetricLocationLabel returns the label for location: itself when tracked, otherwise "other".
func MetricLocationLabel(location string) string {
	loc := normalizeLocationForMetrics(location)
	trackedLocationsMu.RLock()
	_, ok := trackedLocations[loc]
	trackedLocationsMu.RUnlock()
	if ok {
		return loc
	}
	return "other"
}

// RecordPlan records a plan request for the given place candidate.
func RecordPlan(location string) {
	PlansByLocationTotal.WithLabelValues(MetricLocationLabel(location)).Inc()
}

func normalizeLocationForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
