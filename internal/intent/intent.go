// Package intent extracts a place candidate and the requested domains from a free-text
// planning message.
package intent

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kjstillabower/tourism-orchestrator/internal/models"
)

// Extractor turns a message into a place candidate. ok is false when nothing place-like
// was found.
type Extractor interface {
	ExtractPlace(message string) (candidate string, ok bool)
}

var (
	placeRegex = regexp.MustCompile(`(?i)\b(?:in|at|for|to|about)\s+([A-Z][A-Za-z0-9'\- ]{2,})`)
	spaceRun   = regexp.MustCompile(`\s+`)
)

var (
	weatherKeywords = []string{"weather", "temperature", "rain", "sunny", "forecast", "climate", "hot", "cold"}
	placesKeywords  = []string{"place", "places", "attraction", "attractions", "visit", "tour", "tourist", "poi", "park", "about", "tell", "show"}
)

// HeuristicExtractor looks for a preposition followed by a place-like segment, then falls
// back to the message's capitalized words.
type HeuristicExtractor struct{}

func (HeuristicExtractor) ExtractPlace(message string) (string, bool) {
	if m := placeRegex.FindStringSubmatch(message); m != nil {
		candidate := spaceRun.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		if candidate != "" {
			return candidate, true
		}
	}

	var capitalized []string
	for _, w := range strings.Fields(message) {
		first, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(first) && utf8.RuneCountInString(w) > 2 {
			capitalized = append(capitalized, w)
		}
	}
	if len(capitalized) > 0 {
		return strings.Join(capitalized, " "), true
	}
	return "", false
}

// Candidate returns the extracted place, or the whole trimmed message when the extractor
// finds nothing.
func Candidate(e Extractor, message string) string {
	if c, ok := e.ExtractPlace(message); ok {
		return c
	}
	return strings.TrimSpace(message)
}

// DetectDomains returns the domains whose keywords appear in message (substring match,
// case-insensitive). The result may be empty.
func DetectDomains(message string) models.Domains {
	lowered := strings.ToLower(message)
	var found []string
	if containsAny(lowered, weatherKeywords) {
		found = append(found, string(models.DomainWeather))
	}
	if containsAny(lowered, placesKeywords) {
		found = append(found, string(models.DomainPlaces))
	}
	return models.ParseDomains(found)
}

// Resolve picks the domains for a request: explicit ones when any are valid, otherwise
// keyword detection, otherwise every domain.
func Resolve(message string, explicit []string) models.Domains {
	var want models.Domains
	if len(explicit) > 0 {
		want = models.ParseDomains(explicit)
	} else {
		want = DetectDomains(message)
	}
	if len(want) == 0 {
		return models.AllDomains
	}
	return want
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
