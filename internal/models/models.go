package models

import (
	"sort"
	"strings"
)

// GeocodeSource records which resolution tier produced a candidate.
type GeocodeSource string

const (
	SourcePrimary GeocodeSource = "primary"
	SourceAlias   GeocodeSource = "alias"
	SourceStatic  GeocodeSource = "static"
)

// GeocodeCandidate is one ranked match for a free-text place reference.
type GeocodeCandidate struct {
	DisplayName string        `json:"displayName"`
	Lat         float64       `json:"lat"`
	Lon         float64       `json:"lon"`
	Source      GeocodeSource `json:"source"`
}

// PointOfInterest is a named attraction, park or historic site near a coordinate.
type PointOfInterest struct {
	Name     string   `json:"name"`
	Category string   `json:"category,omitempty"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

// DailyForecast is one day of the multi-day forecast. Missing provider values stay nil.
type DailyForecast struct {
	Date                     string   `json:"date"`
	TempMax                  *float64 `json:"tempMax"`
	TempMin                  *float64 `json:"tempMin"`
	PrecipitationProbability *int     `json:"precipitationProbability"`
	Summary                  string   `json:"summary,omitempty"`
}

// WeatherSnapshot holds current conditions plus forecast. Error is set instead of data
// when the weather domain could not be fetched.
type WeatherSnapshot struct {
	Temperature              *float64        `json:"temperature"`
	PrecipitationProbability *int            `json:"precipitationProbability"`
	Summary                  string          `json:"summary,omitempty"`
	Forecast                 []DailyForecast `json:"forecast,omitempty"`
	Error                    string          `json:"error,omitempty"`
}

// OrchestrationResult is the composed, per-request answer. Errors is nil when nothing failed.
type OrchestrationResult struct {
	Place          string            `json:"place,omitempty"`
	Lat            *float64          `json:"lat"`
	Lon            *float64          `json:"lon"`
	GeocodeSource  GeocodeSource     `json:"geocodeSource,omitempty"`
	Weather        *WeatherSnapshot  `json:"weather"`
	Places         []string          `json:"places"`
	PlacesDetailed []PointOfInterest `json:"placesDetailed"`
	SummaryText    string            `json:"text"`
	Errors         []string          `json:"errors"`
}

// Domain is a kind of auxiliary data the orchestrator can gather for a place.
type Domain string

const (
	DomainWeather Domain = "weather"
	DomainPlaces  Domain = "places"
)

// AllDomains lists every supported domain in canonical order.
var AllDomains = Domains{DomainPlaces, DomainWeather}

// Domains is a sorted, duplicate-free set of domains.
type Domains []Domain

// Has reports whether d is in the set.
func (ds Domains) Has(d Domain) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}

// Strings returns the domains as plain strings.
func (ds Domains) Strings() []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d)
	}
	return out
}

// ParseDomains keeps the recognised names (case-insensitive), dropping unknown entries and duplicates.
func ParseDomains(names []string) Domains {
	seen := make(map[Domain]struct{}, len(names))
	var out Domains
	for _, n := range names {
		d := Domain(strings.ToLower(strings.TrimSpace(n)))
		if d != DomainWeather && d != DomainPlaces {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
