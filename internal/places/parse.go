package places

import (
	"github.com/kjstillabower/tourism-orchestrator/internal/client"
	"github.com/kjstillabower/tourism-orchestrator/internal/models"
)

// categoryKeys are checked in order; the first present becomes the category.
var categoryKeys = []string{"tourism", "leisure", "historic"}

// ParseElements converts raw elements to points of interest: named elements only, unique
// by exact name (first occurrence wins), at most limit entries.
func ParseElements(elements []client.OverpassElement, limit int) []models.PointOfInterest {
	seen := make(map[string]struct{}, len(elements))
	out := make([]models.PointOfInterest, 0, limit)
	for _, el := range elements {
		if len(out) >= limit {
			break
		}
		name := el.Tags["name"]
		if name == "" {
			name = el.Tags["name:en"]
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		poi := models.PointOfInterest{Name: name, Lat: el.Lat, Lon: el.Lon}
		if (poi.Lat == nil || poi.Lon == nil) && el.Center != nil {
			poi.Lat, poi.Lon = el.Center.Lat, el.Center.Lon
		}
		for _, key := range categoryKeys {
			if v, ok := el.Tags[key]; ok {
				poi.Category = key + ":" + v
				break
			}
		}
		out = append(out, poi)
	}
	return out
}
