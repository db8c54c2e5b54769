package geocode

// StaticPlace is an offline coordinate used when every online lookup fails.
type StaticPlace struct {
	DisplayName string
	Lat         float64
	Lon         float64
}

// DefaultAliases maps alternate and historical names to canonical query variants,
// tried in order.
var DefaultAliases = map[string][]string{
	"bangalore": {"bengaluru", "bengaluru, india"},
	"bengaluru": {"bengaluru, india", "bengaluru, karnataka"},
	"bombay":    {"mumbai", "mumbai, india"},
	"calcutta":  {"kolkata", "kolkata, india"},
	"madras":    {"chennai", "chennai, india"},
	"peking":    {"beijing", "beijing, china"},
	"saigon":    {"ho chi minh city", "ho chi minh city, vietnam"},
	"paris":     {"paris, france"},
	"london":    {"london, uk", "london, united kingdom"},
	"tokyo":     {"tokyo, japan"},
	"new york":  {"new york, usa", "new york city"},
	"goa":       {"goa, india"},
}

// DefaultStaticPlaces is the offline coordinate table keyed by canonical name.
var DefaultStaticPlaces = map[string]StaticPlace{
	"bengaluru": {"Bengaluru, India", 12.9716, 77.5946},
	"bangalore": {"Bengaluru, India", 12.9716, 77.5946},
	"goa":       {"Goa, India", 15.2993, 74.1240},
	"mumbai":    {"Mumbai, India", 19.0760, 72.8777},
	"delhi":     {"Delhi, India", 28.6139, 77.2090},
	"paris":     {"Paris, France", 48.8566, 2.3522},
	"london":    {"London, United Kingdom", 51.5072, -0.1276},
	"tokyo":     {"Tokyo, Japan", 35.6762, 139.6503},
	"new york":  {"New York City, USA", 40.7128, -74.0060},
}
