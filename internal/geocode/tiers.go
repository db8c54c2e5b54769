package geocode

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tourism-orchestrator/internal/cache"
	"github.com/kjstillabower/tourism-orchestrator/internal/client"
	"github.com/kjstillabower/tourism-orchestrator/internal/models"
	"github.com/kjstillabower/tourism-orchestrator/internal/retry"
)

// PrimaryTier queries the geocoding provider. Each query is memoized and each provider
// call retried; empty results are not cached.
type PrimaryTier struct {
	searcher Searcher
	store    *cache.Store
	ttl      time.Duration
	policy   retry.Policy
	logger   *zap.Logger
}

func NewPrimaryTier(searcher Searcher, store *cache.Store, ttl time.Duration, policy retry.Policy, logger *zap.Logger) *PrimaryTier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Name == "" {
		policy.Name = "geocode.search"
	}
	return &PrimaryTier{searcher: searcher, store: store, ttl: ttl, policy: policy, logger: logger}
}

func (t *PrimaryTier) Name() string { return string(models.SourcePrimary) }

func (t *PrimaryTier) Lookup(ctx context.Context, canonical string) ([]models.GeocodeCandidate, error) {
	return t.lookup(ctx, canonical, models.SourcePrimary)
}

func (t *PrimaryTier) lookup(ctx context.Context, query string, source models.GeocodeSource) ([]models.GeocodeCandidate, error) {
	key := cache.Key("geocode.search", []any{query}, nil)
	candidates, err := cache.Memoize(ctx, t.store, t.ttl, key, func(ctx context.Context) ([]models.GeocodeCandidate, error) {
		hits, err := retry.Do(ctx, t.policy, func(ctx context.Context) ([]client.GeocodeHit, error) {
			return t.searcher.Search(ctx, query, SearchLimit)
		})
		if err != nil {
			return nil, err
		}
		parsed := ParseHits(hits, models.SourcePrimary)
		if len(parsed) == 0 {
			return nil, errNoMatches
		}
		return parsed, nil
	})
	if errors.Is(err, errNoMatches) || errors.Is(err, client.ErrUnexpectedShape) {
		t.logger.Debug("geocode lookup empty", zap.String("query", query), zap.String("source", string(source)))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return withSource(candidates, source), nil
}

// withSource copies candidates so cached slices are never mutated.
func withSource(in []models.GeocodeCandidate, source models.GeocodeSource) []models.GeocodeCandidate {
	out := make([]models.GeocodeCandidate, len(in))
	for i, c := range in {
		c.Source = source
		out[i] = c
	}
	return out
}

// AliasTier retries the primary lookup with canonical variants of a known alternate name.
type AliasTier struct {
	primary *PrimaryTier
	aliases map[string][]string
}

func NewAliasTier(primary *PrimaryTier, aliases map[string][]string) *AliasTier {
	return &AliasTier{primary: primary, aliases: aliases}
}

func (t *AliasTier) Name() string { return string(models.SourceAlias) }

// Lookup returns the first variant's non-empty result. A failing variant does not stop
// later variants; the last failure is returned only when no variant produced candidates.
func (t *AliasTier) Lookup(ctx context.Context, canonical string) ([]models.GeocodeCandidate, error) {
	var lastErr error
	for _, variant := range t.aliases[canonical] {
		candidates, err := t.primary.lookup(ctx, variant, models.SourceAlias)
		if err != nil {
			lastErr = err
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return nil, lastErr
}

// StaticTier answers from an offline table with a single synthetic candidate.
type StaticTier struct {
	places map[string]StaticPlace
}

func NewStaticTier(places map[string]StaticPlace) *StaticTier {
	return &StaticTier{places: places}
}

func (t *StaticTier) Name() string { return string(models.SourceStatic) }

func (t *StaticTier) Lookup(_ context.Context, canonical string) ([]models.GeocodeCandidate, error) {
	p, ok := t.places[canonical]
	if !ok {
		return nil, nil
	}
	return []models.GeocodeCandidate{{DisplayName: p.DisplayName, Lat: p.Lat, Lon: p.Lon, Source: models.SourceStatic}}, nil
}
