// Package orchestrator resolves a place and gathers the requested domains for it
// concurrently, composing one result even when some domains fail.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tourism-orchestrator/internal/models"
	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
)

// Resolver turns free text into ranked geocode candidates.
type Resolver interface {
	Resolve(ctx context.Context, text string) ([]models.GeocodeCandidate, error)
}

// WeatherFetcher returns conditions and forecast for a coordinate.
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error)
}

// PlacesFetcher returns nearby points of interest for a coordinate.
type PlacesFetcher interface {
	FetchPlaces(ctx context.Context, lat, lon float64) ([]models.PointOfInterest, error)
}

// OutcomeRecorder receives one outcome per dispatched domain (health reporting).
type OutcomeRecorder interface {
	RecordOutcome(domain string, ok bool)
}

// Orchestrator fans out to the domain fetchers. Safe for concurrent use.
type Orchestrator struct {
	resolver Resolver
	weather  WeatherFetcher
	places   PlacesFetcher
	recorder OutcomeRecorder
	logger   *zap.Logger
}

// New creates an Orchestrator. recorder may be nil.
func New(resolver Resolver, weather WeatherFetcher, places PlacesFetcher, recorder OutcomeRecorder, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		resolver: resolver,
		weather:  weather,
		places:   places,
		recorder: recorder,
		logger:   logger,
	}
}

// domainOutcome is the result-or-error pair collected for every dispatched domain.
type domainOutcome struct {
	weather models.WeatherSnapshot
	places  []models.PointOfInterest
	err     error
}

// Orchestrate resolves candidate and gathers every domain in want. It never fails: input
// and resolution problems are reported through the result's Errors and SummaryText.
func (o *Orchestrator) Orchestrate(ctx context.Context, candidate string, want models.Domains) models.OrchestrationResult {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx, o.logger)

	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		logger.Warn("no place candidate provided")
		observability.OrchestrationsTotal.WithLabelValues("no_candidate").Inc()
		return models.OrchestrationResult{
			SummaryText: NoDestinationText,
			Errors:      []string{ErrNoDestination},
		}
	}
	observability.RecordPlan(candidate)

	matches, err := o.resolver.Resolve(ctx, candidate)
	if err != nil || len(matches) == 0 {
		logger.Info("place unresolved", zap.String("candidate", candidate), zap.Error(err))
		observability.OrchestrationsTotal.WithLabelValues("unresolved").Inc()
		return models.OrchestrationResult{
			Place:       candidate,
			SummaryText: fmt.Sprintf(UnresolvedTextFormat, candidate),
			Errors:      []string{fmt.Sprintf(ErrLocationNotFoundFormat, candidate)},
		}
	}

	best := matches[0]
	logger.Info("resolved place",
		zap.String("place", best.DisplayName),
		zap.Float64("lat", best.Lat),
		zap.Float64("lon", best.Lon),
		zap.String("source", string(best.Source)))

	outcomes := o.dispatch(ctx, best.Lat, best.Lon, want)

	result := models.OrchestrationResult{
		Place:         best.DisplayName,
		Lat:           models.Float64(best.Lat),
		Lon:           models.Float64(best.Lon),
		GeocodeSource: best.Source,
	}
	if out, ok := outcomes[models.DomainWeather]; ok {
		snap := out.weather
		if out.err != nil {
			snap = models.WeatherSnapshot{Error: ErrWeatherTemporarilyUnavailable}
		}
		result.Weather = &snap
	}
	if out, ok := outcomes[models.DomainPlaces]; ok {
		pois := out.places
		if out.err != nil || pois == nil {
			pois = []models.PointOfInterest{}
		}
		result.PlacesDetailed = pois
		result.Places = make([]string, len(pois))
		for i, p := range pois {
			result.Places[i] = p.Name
		}
	}

	result.SummaryText, result.Errors = Compose(result, want)
	outcome := "ok"
	if len(result.Errors) > 0 {
		outcome = "partial"
	}
	observability.OrchestrationsTotal.WithLabelValues(outcome).Inc()
	logger.Debug("orchestration complete",
		zap.String("place", result.Place),
		zap.Strings("domains", want.Strings()),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", time.Since(start)))
	return result
}

// dispatch runs one goroutine per requested domain and waits for every one of them.
// A failure or panic in one domain never affects another.
func (o *Orchestrator) dispatch(ctx context.Context, lat, lon float64, want models.Domains) map[models.Domain]domainOutcome {
	logger := observability.LoggerFromContext(ctx, o.logger)
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes = make(map[models.Domain]domainOutcome, len(want))
	)
	run := func(domain models.Domain, task func() domainOutcome) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out domainOutcome
			func() {
				defer func() {
					if r := recover(); r != nil {
						out = domainOutcome{err: fmt.Errorf("%s task panicked: %v", domain, r)}
					}
				}()
				out = task()
			}()
			if out.err != nil {
				logger.Warn("domain task failed", zap.String("domain", string(domain)), zap.Error(out.err))
				observability.DomainFailuresTotal.WithLabelValues(string(domain)).Inc()
			}
			if o.recorder != nil {
				o.recorder.RecordOutcome(string(domain), out.err == nil)
			}
			mu.Lock()
			outcomes[domain] = out
			mu.Unlock()
		}()
	}

	if want.Has(models.DomainWeather) {
		run(models.DomainWeather, func() domainOutcome {
			snap, err := o.weather.FetchWeather(ctx, lat, lon)
			return domainOutcome{weather: snap, err: err}
		})
	}
	if want.Has(models.DomainPlaces) {
		run(models.DomainPlaces, func() domainOutcome {
			pois, err := o.places.FetchPlaces(ctx, lat, lon)
			return domainOutcome{places: pois, err: err}
		})
	}
	wg.Wait()
	return outcomes
}
