package orchestrator

import (
	"fmt"
	"strings"

	"github.com/kjstillabower/tourism-orchestrator/internal/models"
)

// User-facing texts.
const (
	NoDestinationText    = "I couldn't identify a destination in your message. Please specify a city or place."
	UnresolvedTextFormat = "I couldn't find '%s' on the map. Please check the spelling or try a different location."
	NoDataText           = "No data available."

	ErrNoDestination                 = "No destination specified"
	ErrLocationNotFoundFormat        = "Location '%s' not found"
	ErrWeatherTemporarilyUnavailable = "Weather service temporarily unavailable"
	ErrWeatherUnavailable            = "Weather service unavailable"
	ErrPlacesUnavailable             = "Places service unavailable"
)

// Compose renders the summary sentence(s) and the domain-level error list for a resolved
// result. errs is nil when nothing failed.
func Compose(result models.OrchestrationResult, want models.Domains) (text string, errs []string) {
	var parts []string

	if w := result.Weather; w != nil && w.Error == "" {
		switch {
		case w.Temperature != nil && w.PrecipitationProbability != nil:
			parts = append(parts, fmt.Sprintf("It’s currently %.0f°C with a %d%% chance of precipitation.",
				*w.Temperature, *w.PrecipitationProbability))
		case w.Temperature != nil:
			parts = append(parts, fmt.Sprintf("Current temperature is %.0f°C.", *w.Temperature))
		}
	} else if want.Has(models.DomainWeather) {
		errs = append(errs, ErrWeatherUnavailable)
	}

	if len(result.Places) > 0 {
		parts = append(parts, fmt.Sprintf("Places you can visit: %s.", strings.Join(result.Places, ", ")))
	} else if want.Has(models.DomainPlaces) {
		errs = append(errs, ErrPlacesUnavailable)
	}

	if len(parts) == 0 {
		return NoDataText, errs
	}
	return strings.Join(parts, " "), errs
}
