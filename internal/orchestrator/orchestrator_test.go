package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/tourism-orchestrator/internal/models"
	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
)

type mockResolver struct {
	candidates []models.GeocodeCandidate
	err        error
	calls      atomic.Int32
}

func (m *mockResolver) Resolve(ctx context.Context, text string) ([]models.GeocodeCandidate, error) {
	m.calls.Add(1)
	return m.candidates, m.err
}

type mockWeather struct {
	snap  models.WeatherSnapshot
	err   error
	panic bool
	delay time.Duration
	calls atomic.Int32
}

func (m *mockWeather) FetchWeather(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.panic {
		panic("weather exploded")
	}
	return m.snap, m.err
}

type mockPlaces struct {
	pois  []models.PointOfInterest
	err   error
	calls atomic.Int32
}

func (m *mockPlaces) FetchPlaces(ctx context.Context, lat, lon float64) ([]models.PointOfInterest, error) {
	m.calls.Add(1)
	return m.pois, m.err
}

type recordedOutcome struct {
	domain string
	ok     bool
}

type mockRecorder struct {
	mu       sync.Mutex
	outcomes []recordedOutcome
}

func (m *mockRecorder) RecordOutcome(domain string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, recordedOutcome{domain, ok})
}

var bengaluru = []models.GeocodeCandidate{
	{DisplayName: "Bengaluru, Karnataka, India", Lat: 12.97, Lon: 77.59, Source: models.SourcePrimary},
	{DisplayName: "Bengaluru Rural, Karnataka, India", Lat: 13.2, Lon: 77.5, Source: models.SourcePrimary},
}

func sunny() models.WeatherSnapshot {
	return models.WeatherSnapshot{Temperature: models.Float64(27.6), PrecipitationProbability: models.Int(35), Summary: "Partly Cloudy"}
}

func TestOrchestrate_NoCandidate(t *testing.T) {
	r := &mockResolver{}
	w := &mockWeather{}
	p := &mockPlaces{}
	o := New(r, w, p, nil, nil)

	res := o.Orchestrate(context.Background(), "   ", models.AllDomains)
	assert.Equal(t, NoDestinationText, res.SummaryText)
	assert.Equal(t, []string{ErrNoDestination}, res.Errors)
	assert.Empty(t, res.Place)
	assert.Nil(t, res.Lat)
	assert.Nil(t, res.Weather)
	assert.Nil(t, res.Places)
	assert.Zero(t, r.calls.Load(), "no remote calls without a candidate")
	assert.Zero(t, w.calls.Load())
	assert.Zero(t, p.calls.Load())
}

func TestOrchestrate_Unresolved(t *testing.T) {
	o := New(&mockResolver{err: errors.New("not found")}, &mockWeather{}, &mockPlaces{}, nil, nil)

	res := o.Orchestrate(context.Background(), "Atlantis", models.AllDomains)
	assert.Equal(t, "Atlantis", res.Place)
	assert.Nil(t, res.Lat)
	assert.Nil(t, res.Lon)
	assert.Equal(t, []string{"Location 'Atlantis' not found"}, res.Errors)
	assert.Equal(t, "I couldn't find 'Atlantis' on the map. Please check the spelling or try a different location.", res.SummaryText)
}

func TestOrchestrate_AllDomainsSucceed(t *testing.T) {
	rec := &mockRecorder{}
	o := New(&mockResolver{candidates: bengaluru}, &mockWeather{snap: sunny()},
		&mockPlaces{pois: []models.PointOfInterest{{Name: "Lalbagh"}, {Name: "Cubbon Park"}}}, rec, nil)

	res := o.Orchestrate(context.Background(), "Bengaluru", models.AllDomains)
	assert.Equal(t, "Bengaluru, Karnataka, India", res.Place, "index 0 is taken")
	require.NotNil(t, res.Lat)
	assert.InDelta(t, 12.97, *res.Lat, 1e-9)
	assert.Equal(t, models.SourcePrimary, res.GeocodeSource)
	require.NotNil(t, res.Weather)
	assert.Equal(t, "Partly Cloudy", res.Weather.Summary)
	assert.Equal(t, []string{"Lalbagh", "Cubbon Park"}, res.Places)
	assert.Len(t, res.PlacesDetailed, 2)
	assert.Equal(t, "It’s currently 28°C with a 35% chance of precipitation. Places you can visit: Lalbagh, Cubbon Park.", res.SummaryText)
	assert.Nil(t, res.Errors)
	assert.ElementsMatch(t, []recordedOutcome{{"weather", true}, {"places", true}}, rec.outcomes)
}

// TestOrchestrate_WeatherFailureIsolated covers a weather fetch that always fails next to a
// places fetch with one entry.
func TestOrchestrate_WeatherFailureIsolated(t *testing.T) {
	rec := &mockRecorder{}
	o := New(&mockResolver{candidates: bengaluru}, &mockWeather{err: errors.New("exhausted retries: boom")},
		&mockPlaces{pois: []models.PointOfInterest{{Name: "Lalbagh"}}}, rec, nil)

	res := o.Orchestrate(context.Background(), "Bengaluru", models.AllDomains)
	assert.Equal(t, []string{"Lalbagh"}, res.Places)
	require.NotNil(t, res.Weather)
	assert.Equal(t, ErrWeatherTemporarilyUnavailable, res.Weather.Error)
	assert.Equal(t, []string{ErrWeatherUnavailable}, res.Errors)
	assert.Equal(t, "Places you can visit: Lalbagh.", res.SummaryText)
	assert.ElementsMatch(t, []recordedOutcome{{"weather", false}, {"places", true}}, rec.outcomes)
}

func TestOrchestrate_WeatherPanicIsolated(t *testing.T) {
	o := New(&mockResolver{candidates: bengaluru}, &mockWeather{panic: true},
		&mockPlaces{pois: []models.PointOfInterest{{Name: "Lalbagh"}}}, nil, nil)

	res := o.Orchestrate(context.Background(), "Bengaluru", models.AllDomains)
	assert.Equal(t, []string{"Lalbagh"}, res.Places)
	assert.Equal(t, ErrWeatherTemporarilyUnavailable, res.Weather.Error)
	assert.Contains(t, res.Errors, ErrWeatherUnavailable)
}

// TestOrchestrate_JoinWaitsForAll verifies a fast places failure does not cut short a slow
// weather fetch.
func TestOrchestrate_JoinWaitsForAll(t *testing.T) {
	w := &mockWeather{snap: sunny(), delay: 50 * time.Millisecond}
	o := New(&mockResolver{candidates: bengaluru}, w, &mockPlaces{err: errors.New("boom")}, nil, nil)

	res := o.Orchestrate(context.Background(), "Bengaluru", models.AllDomains)
	require.NotNil(t, res.Weather)
	assert.Empty(t, res.Weather.Error)
	assert.NotNil(t, res.Places)
	assert.Empty(t, res.Places)
	assert.Equal(t, []string{ErrPlacesUnavailable}, res.Errors)
	assert.Equal(t, "It’s currently 28°C with a 35% chance of precipitation.", res.SummaryText)
}

func TestOrchestrate_OnlyRequestedDomainsRun(t *testing.T) {
	w := &mockWeather{snap: sunny()}
	p := &mockPlaces{}
	o := New(&mockResolver{candidates: bengaluru}, w, p, nil, nil)

	res := o.Orchestrate(context.Background(), "Bengaluru", models.Domains{models.DomainWeather})
	assert.Equal(t, int32(1), w.calls.Load())
	assert.Zero(t, p.calls.Load())
	assert.Nil(t, res.Places, "unrequested domains are omitted")
	assert.Nil(t, res.Errors)
}

func TestOrchestrate_NoData(t *testing.T) {
	o := New(&mockResolver{candidates: bengaluru}, &mockWeather{}, &mockPlaces{}, nil, nil)

	res := o.Orchestrate(context.Background(), "Bengaluru", models.AllDomains)
	assert.Equal(t, NoDataText, res.SummaryText)
	assert.Equal(t, []string{ErrPlacesUnavailable}, res.Errors, "weather without fields is not an error")
}

func TestOrchestrate_LogsThroughContextLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))
	o := New(&mockResolver{candidates: bengaluru}, &mockWeather{err: errors.New("boom")}, &mockPlaces{}, nil, nil)

	o.Orchestrate(ctx, "Bengaluru", models.Domains{models.DomainWeather})
	assert.Equal(t, 1, logs.FilterMessage("resolved place").Len())
	assert.Equal(t, 1, logs.FilterMessage("domain task failed").Len())
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name     string
		result   models.OrchestrationResult
		want     models.Domains
		wantText string
		wantErrs []string
	}{
		{
			name:     "temperature only",
			result:   models.OrchestrationResult{Weather: &models.WeatherSnapshot{Temperature: models.Float64(-3.4)}},
			want:     models.Domains{models.DomainWeather},
			wantText: "Current temperature is -3°C.",
		},
		{
			name:     "weather requested but absent",
			result:   models.OrchestrationResult{},
			want:     models.Domains{models.DomainWeather},
			wantText: NoDataText,
			wantErrs: []string{ErrWeatherUnavailable},
		},
		{
			name:     "places listed",
			result:   models.OrchestrationResult{Places: []string{"A", "B"}},
			want:     models.Domains{models.DomainPlaces},
			wantText: "Places you can visit: A, B.",
		},
		{
			name:     "nothing requested",
			result:   models.OrchestrationResult{},
			want:     nil,
			wantText: NoDataText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, errs := Compose(tt.result, tt.want)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantErrs, errs)
		})
	}
}
