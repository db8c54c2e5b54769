// Package places finds named points of interest around a coordinate, widening the search
// radius once when an area is sparse.
package places

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

const (
	DefaultRadius    = 5000
	DefaultLimit     = 5
	DefaultExpansion = 2

	// maxExpansions bounds a fetch to two raw searches.
	maxExpansions = 1
)

// Provider is the raw points-of-interest source.
type Provider interface {
	Query(ctx context.Context, lat, lon float64, radius int) ([]client.OverpassElement, error)
}

type Config struct {
	Provider Provider
	Store    *cache.Store
	TTL      time.Duration
	Retry    retry.Policy
	// Radius is the initial search radius in meters.
	Radius int
	Limit  int
	// ExpansionFactor multiplies the radius for the single widened search.
	ExpansionFactor int
}

// Fetcher composes the provider with retry, memoization and radius expansion.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger
}

func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultRadius
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.ExpansionFactor < 2 {
		cfg.ExpansionFactor = DefaultExpansion
	}
	if cfg.Retry.Name == "" {
		cfg.Retry.Name = "places.fetch"
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// FetchPlaces returns up to Limit points of interest in accumulation order. It never
// fails: a page that cannot be fetched counts as empty. The error is always nil.
func (f *Fetcher) FetchPlaces(ctx context.Context, lat, lon float64) ([]models.PointOfInterest, error) {
	limit := f.cfg.Limit
	radius := f.cfg.Radius
	accumulated := make([]models.PointOfInterest, 0, limit)
	seen := make(map[string]struct{}, limit)

	for expansions := 0; expansions <= maxExpansions; expansions++ {
		if expansions > 0 {
			radius *= f.cfg.ExpansionFactor
			observability.PlacesRadiusExpansionsTotal.Inc()
		}
		for _, poi := range f.fetchPage(ctx, lat, lon, radius) {
			if _, dup := seen[poi.Name]; dup {
				continue
			}
			seen[poi.Name] = struct{}{}
			accumulated = append(accumulated, poi)
		}
		if len(accumulated) >= limit {
			break
		}
	}

	if len(accumulated) > limit {
		accumulated = accumulated[:limit]
	}
	return accumulated, nil
}

// fetchPage is one memoized, retried raw search.
func (f *Fetcher) fetchPage(ctx context.Context, lat, lon float64, radius int) []models.PointOfInterest {
	key := cache.Key("places.fetch", []any{lat, lon, radius}, map[string]any{"limit": f.cfg.Limit})
	page, err := cache.Memoize(ctx, f.cfg.Store, f.cfg.TTL, key, func(ctx context.Context) ([]models.PointOfInterest, error) {
		return retry.Do(ctx, f.cfg.Retry, func(ctx context.Context) ([]models.PointOfInterest, error) {
			elements, err := f.cfg.Provider.Query(ctx, lat, lon, radius)
			if err != nil {
				return nil, err
			}
			return ParseElements(elements, f.cfg.Limit), nil
		})
	})
	if err != nil {
		observability.LoggerFromContext(ctx, f.logger).Warn("places fetch failed",
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Int("radius", radius), zap.Error(err))
		return nil
	}
	return page
}
