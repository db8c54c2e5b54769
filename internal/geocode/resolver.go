// Package geocode resolves free-text place references to ranked coordinates through an
// ordered chain of tiers: the online provider, alias variants, then an offline table.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tourism-orchestrator/internal/cache"
	"github.com/kjstillabower/tourism-orchestrator/internal/client"
	"github.com/kjstillabower/tourism-orchestrator/internal/models"
	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
	"github.com/kjstillabower/tourism-orchestrator/internal/retry"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmptyQuery = errors.New("empty query")
)

const (
	// MaxCandidates caps a resolution.
	MaxCandidates = 3
	// SearchLimit is how many raw matches are requested from the provider.
	SearchLimit = 5
)

// errNoMatches marks an empty primary lookup. It is neither cached nor retried.
var errNoMatches = errors.New("no matches")

// Searcher is the raw geocoding provider.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]client.GeocodeHit, error)
}

// Tier is one fallback strategy. A tier returns no candidates (and no error) when it has
// nothing for the query; the resolver then moves on to the next tier.
type Tier interface {
	Name() string
	Lookup(ctx context.Context, canonical string) ([]models.GeocodeCandidate, error)
}

// Resolver walks its tiers in order and returns the first non-empty result.
type Resolver struct {
	tiers  []Tier
	logger *zap.Logger
}

// NewResolver builds a resolver over an explicit tier chain.
func NewResolver(logger *zap.Logger, tiers ...Tier) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{tiers: tiers, logger: logger}
}

// Config wires the default three-tier chain.
type Config struct {
	Searcher     Searcher
	Store        *cache.Store
	TTL          time.Duration
	Retry        retry.Policy
	Aliases      map[string][]string
	StaticPlaces map[string]StaticPlace
}

// NewDefaultResolver builds the primary → alias → static chain.
func NewDefaultResolver(cfg Config, logger *zap.Logger) *Resolver {
	if cfg.Aliases == nil {
		cfg.Aliases = DefaultAliases
	}
	if cfg.StaticPlaces == nil {
		cfg.StaticPlaces = DefaultStaticPlaces
	}
	primary := NewPrimaryTier(cfg.Searcher, cfg.Store, cfg.TTL, cfg.Retry, logger)
	return NewResolver(logger,
		primary,
		NewAliasTier(primary, cfg.Aliases),
		NewStaticTier(cfg.StaticPlaces),
	)
}

// Resolve returns up to MaxCandidates matches for text, best first.
// Blank text yields ErrEmptyQuery; exhausting every tier yields ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, text string) ([]models.GeocodeCandidate, error) {
	canonical := Canonicalize(text)
	if canonical == "" {
		return nil, ErrEmptyQuery
	}
	logger := observability.LoggerFromContext(ctx, r.logger)
	for _, tier := range r.tiers {
		candidates, err := tier.Lookup(ctx, canonical)
		if err != nil {
			logger.Warn("geocode tier failed",
				zap.String("tier", tier.Name()),
				zap.String("query", canonical),
				zap.Error(err))
			continue
		}
		if len(candidates) > 0 {
			observability.GeocodeResolutionsTotal.WithLabelValues(tier.Name()).Inc()
			return candidates, nil
		}
	}
	observability.GeocodeResolutionsTotal.WithLabelValues("none").Inc()
	return nil, fmt.Errorf("resolve %q: %w", text, ErrNotFound)
}

// Canonicalize trims, collapses internal whitespace and lowercases text for use as a lookup key.
func Canonicalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// ParseHits dedupes raw hits by display name and keeps the first MaxCandidates whose
// coordinates parse, preserving provider order. Hits without a name are skipped.
func ParseHits(hits []client.GeocodeHit, source models.GeocodeSource) []models.GeocodeCandidate {
	seen := make(map[string]struct{}, len(hits))
	out := make([]models.GeocodeCandidate, 0, MaxCandidates)
	for _, hit := range hits {
		if hit.DisplayName == "" {
			continue
		}
		if _, dup := seen[hit.DisplayName]; dup {
			continue
		}
		seen[hit.DisplayName] = struct{}{}
		lat, okLat := client.ParseCoordinate(hit.Lat)
		lon, okLon := client.ParseCoordinate(hit.Lon)
		if !okLat || !okLon {
			continue
		}
		out = append(out, models.GeocodeCandidate{DisplayName: hit.DisplayName, Lat: lat, Lon: lon, Source: source})
		if len(out) == MaxCandidates {
			break
		}
	}
	return out
}
