package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kjstillabower/tourism-orchestrator/internal/models"
)

func TestHeuristicExtractor_ExtractPlace(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
		wantOK  bool
	}{
		{"preposition", "Weather and places in Paris", "Paris", true},
		{"stops at comma", "I'm going to Bangalore, what's the weather?", "Bangalore", true},
		{"multi word", "Tell me about New   York", "New York", true},
		{"case insensitive", "weather in goa", "goa", true},
		{"capitalized fallback", "Tokyo weather please", "Tokyo", true},
		{"capitalized words joined", "Weather Rio Janeiro", "Weather Rio Janeiro", true},
		{"short capitals ignored", "is it OK", "", false},
		{"nothing", "hello there", "", false},
	}
	var e HeuristicExtractor
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.ExtractPlace(tt.message)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidate_FallsBackToMessage(t *testing.T) {
	assert.Equal(t, "hello there", Candidate(HeuristicExtractor{}, "  hello there "))
	assert.Equal(t, "Paris", Candidate(HeuristicExtractor{}, "trip to Paris"))
}

func TestDetectDomains(t *testing.T) {
	tests := []struct {
		message string
		want    models.Domains
	}{
		{"What's the weather in Paris?", models.Domains{models.DomainWeather}},
		{"Places to visit in Goa", models.Domains{models.DomainPlaces}},
		{"Is it hot, and what can I visit?", models.AllDomains},
		{"Paris", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectDomains(tt.message), tt.message)
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, models.Domains{models.DomainPlaces}, Resolve("weather", []string{"places"}), "explicit wins")
	assert.Equal(t, models.AllDomains, Resolve("weather", []string{"traffic"}), "no valid explicit domain falls back to all")
	assert.Equal(t, models.Domains{models.DomainWeather}, Resolve("forecast for Paris", nil))
	assert.Equal(t, models.AllDomains, Resolve("Paris", nil))
}
