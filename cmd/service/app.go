package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/tourism-orchestrator/internal/cache"
	"github.com/kjstillabower/tourism-orchestrator/internal/circuitbreaker"
	"github.com/kjstillabower/tourism-orchestrator/internal/client"
	"github.com/kjstillabower/tourism-orchestrator/internal/config"
	"github.com/kjstillabower/tourism-orchestrator/internal/geocode"
	httphandler "github.com/kjstillabower/tourism-orchestrator/internal/http"
	"github.com/kjstillabower/tourism-orchestrator/internal/intent"
	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
	"github.com/kjstillabower/tourism-orchestrator/internal/orchestrator"
	"github.com/kjstillabower/tourism-orchestrator/internal/places"
	"github.com/kjstillabower/tourism-orchestrator/internal/retry"
	"github.com/kjstillabower/tourism-orchestrator/internal/traffic"
	"github.com/kjstillabower/tourism-orchestrator/internal/weather"
)

// app is the fully wired service.
type app struct {
	store        *cache.Store
	orchestrator *orchestrator.Orchestrator
	handler      *httphandler.Handler
	inFlight     *httphandler.InFlightTracker
	maintenance  *cache.Maintenance
	router       http.Handler
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	store := cache.NewStore(cache.Options{
		MaxEntries:      cfg.CacheMaxEntries,
		Coalesce:        cfg.CoalesceEnabled,
		CoalesceTimeout: cfg.CoalesceTimeout,
	})

	geocoder := client.NewNominatimClient(clientOptions(cfg, cfg.Geocoder, "nominatim", logger))
	forecaster := client.NewOpenMeteoClient(clientOptions(cfg, cfg.Weather, "open_meteo", logger))
	overpass := client.NewOverpassClient(clientOptions(cfg, cfg.Places, "overpass", logger))

	resolver := geocode.NewDefaultResolver(geocode.Config{
		Searcher: geocoder,
		Store:    store,
		TTL:      cfg.Geocoder.TTL,
		Retry:    retryPolicy("geocode.search", cfg.Geocoder, logger),
	}, logger)
	weatherFetcher := weather.NewFetcher(weather.Config{
		Provider: forecaster,
		Store:    store,
		TTL:      cfg.Weather.TTL,
		Retry:    retryPolicy("weather.fetch", cfg.Weather, logger),
		Timezone: cfg.WeatherTimezone,
	}, logger)
	placesFetcher := places.NewFetcher(places.Config{
		Provider:        overpass,
		Store:           store,
		TTL:             cfg.Places.TTL,
		Retry:           retryPolicy("places.fetch", cfg.Places, logger),
		Radius:          cfg.PlacesRadius,
		Limit:           cfg.PlacesLimit,
		ExpansionFactor: cfg.PlacesExpansionFactor,
	}, logger)

	tracker := traffic.NewTracker(nil, 0)
	orch := orchestrator.New(resolver, weatherFetcher, placesFetcher, tracker, logger)

	handler := httphandler.NewHandler(orch, intent.HeuristicExtractor{}, tracker, &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
		StartTime:        time.Now(),
	}, logger)
	inFlight := &httphandler.InFlightTracker{}
	router := httphandler.NewRouter(handler, httphandler.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        httphandler.NewIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, nil),
		Tracker:        tracker,
		InFlight:       inFlight,
		Logger:         logger,
	})

	if len(cfg.TrackedLocations) > 0 {
		observability.SetTrackedLocations(cfg.TrackedLocations)
	}

	maintenance := cache.NewMaintenance(logger)
	if err := maintenance.ScheduleSweep(store, cfg.CacheSweepInterval); err != nil {
		return nil, err
	}
	warmer := cache.NewCacheWarmer(orch, logger)
	if err := maintenance.ScheduleWarm(warmer, cfg.WarmLocations, cfg.WarmInterval, cfg.WarmTimeout); err != nil {
		return nil, err
	}

	return &app{
		store:        store,
		orchestrator: orch,
		handler:      handler,
		inFlight:     inFlight,
		maintenance:  maintenance,
		router:       router,
	}, nil
}

// clientOptions builds transport options for one provider, with its own throttle and breaker.
func clientOptions(cfg *config.Config, pc config.ProviderConfig, component string, logger *zap.Logger) client.Options {
	opts := client.Options{
		BaseURL:   pc.URL,
		UserAgent: cfg.UserAgent,
		Timeout:   pc.Timeout,
	}
	if pc.RateLimitRPS > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(pc.RateLimitRPS), pc.RateLimitBurst)
	}
	if cfg.CircuitBreakerEnabled {
		opts.Breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			Component:        component,
			Ignore: func(err error) bool {
				return errors.Is(err, context.Canceled)
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(component, from.String(), to.String(), int(to))
				logger.Warn("circuit breaker state change",
					zap.String("component", component),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		observability.CircuitBreakerState.WithLabelValues(component).Set(0)
	}
	return opts
}

func retryPolicy(name string, pc config.ProviderConfig, logger *zap.Logger) retry.Policy {
	return retry.Policy{
		Name:        name,
		MaxAttempts: pc.RetryAttempts,
		BackoffBase: pc.RetryBaseDelay,
		Retryable:   client.IsRetryable,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Debug("retrying",
				zap.String("operation", name),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.String("category", string(client.CategorizeError(err))),
				zap.Error(err))
		},
	}
}
