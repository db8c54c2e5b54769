// Package weather fetches current conditions and a multi-day forecast for a coordinate.
package weather

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tourism-orchestrator/internal/cache"
	"github.com/kjstillabower/tourism-orchestrator/internal/client"
	"github.com/kjstillabower/tourism-orchestrator/internal/models"
	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
	"github.com/kjstillabower/tourism-orchestrator/internal/retry"
)

// Provider is the raw forecast source.
type Provider interface {
	Forecast(ctx context.Context, lat, lon float64, timezone string) (client.ForecastResponse, error)
}

// Fetcher composes the provider with retry and memoization.
type Fetcher struct {
	provider Provider
	store    *cache.Store
	ttl      time.Duration
	policy   retry.Policy
	timezone string
	logger   *zap.Logger
}

type Config struct {
	Provider Provider
	Store    *cache.Store
	TTL      time.Duration
	Retry    retry.Policy
	Timezone string
}

func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Kolkata"
	}
	if cfg.Retry.Name == "" {
		cfg.Retry.Name = "weather.fetch"
	}
	return &Fetcher{
		provider: cfg.Provider,
		store:    cfg.Store,
		ttl:      cfg.TTL,
		policy:   cfg.Retry,
		timezone: cfg.Timezone,
		logger:   logger,
	}
}

// FetchWeather returns the snapshot for lat/lon. Only transport failures surface as errors,
// after retries are exhausted; malformed fields are left absent.
func (f *Fetcher) FetchWeather(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	key := cache.Key("weather.fetch", []any{lat, lon}, map[string]any{"timezone": f.timezone})
	snap, err := cache.Memoize(ctx, f.store, f.ttl, key, func(ctx context.Context) (models.WeatherSnapshot, error) {
		return retry.Do(ctx, f.policy, func(ctx context.Context) (models.WeatherSnapshot, error) {
			resp, err := f.provider.Forecast(ctx, lat, lon, f.timezone)
			if err != nil {
				return models.WeatherSnapshot{}, err
			}
			return BuildSnapshot(resp), nil
		})
	})
	if err != nil {
		observability.LoggerFromContext(ctx, f.logger).Warn("weather fetch failed",
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return models.WeatherSnapshot{}, err
	}
	return snap, nil
}
