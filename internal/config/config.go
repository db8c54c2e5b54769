package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/tourism-orchestrator/internal/validation"
)

// ProviderConfig holds the endpoint, caching and retry settings for one upstream.
type ProviderConfig struct {
	URL            string
	Timeout        time.Duration
	TTL            time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	// RateLimitRPS throttles outbound calls; 0 disables the throttle.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Config holds service configuration loaded from YAML and env.
type Config struct {
	Env string

	ServerPort string
	// RequestTimeout bounds writing a plan response. It is raised to at least PlanBudget.
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	UserAgent       string

	Geocoder ProviderConfig
	Weather  ProviderConfig
	Places   ProviderConfig

	WeatherTimezone       string
	PlacesRadius          int
	PlacesLimit           int
	PlacesExpansionFactor int

	CacheMaxEntries    int
	CacheSweepInterval time.Duration
	CoalesceEnabled    bool
	CoalesceTimeout    time.Duration

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	// Inbound limit per client IP: RateLimitRequests per RateLimitWindow.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int

	WarmLocations []string
	WarmInterval  time.Duration
	WarmTimeout   time.Duration

	TrackedLocations []string
}

type providerFile struct {
	URL            string  `yaml:"url"`
	Timeout        string  `yaml:"timeout"`
	TTL            string  `yaml:"ttl"`
	RetryAttempts  int     `yaml:"retry_max_attempts"`
	RetryBaseDelay string  `yaml:"retry_base_delay"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

type fileConfig struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		UserAgent      string   `yaml:"user_agent"`
	} `yaml:"server"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Geocoder providerFile `yaml:"geocoder"`

	Weather struct {
		providerFile `yaml:",inline"`
		Timezone     string `yaml:"timezone"`
	} `yaml:"weather"`

	Places struct {
		providerFile    `yaml:",inline"`
		Radius          int `yaml:"radius"`
		Limit           int `yaml:"limit"`
		ExpansionFactor int `yaml:"expansion_factor"`
	} `yaml:"places"`

	Cache struct {
		MaxEntries      int    `yaml:"max_entries"`
		SweepInterval   string `yaml:"sweep_interval"`
		Coalesce        *bool  `yaml:"coalesce"`
		CoalesceTimeout string `yaml:"coalesce_timeout"`
	} `yaml:"cache"`

	CircuitBreaker struct {
		Enabled          *bool  `yaml:"enabled"`
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	RateLimit struct {
		Requests int    `yaml:"requests"`
		Window   string `yaml:"window"`
	} `yaml:"rate_limit"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	Warm struct {
		Locations []string `yaml:"locations"`
		Interval  string   `yaml:"interval"`
		Timeout   string   `yaml:"timeout"`
	} `yaml:"warm"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Metrics struct {
		TrackedLocations []string `yaml:"tracked_locations"`
	} `yaml:"metrics"`
}

const (
	defaultUserAgent      = "tourism-orchestrator/1.0 (contact: ops@example.com)"
	defaultAllowedOrigins = "http://localhost:5173,http://localhost:5174"
)

// Load reads an optional .env file, then config/{ENV_NAME}.yaml (default dev) relative to the
// working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom is Load rooted at dir.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{Env: env}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8000")
	cfg.UserAgent = firstNonEmpty(os.Getenv("USER_AGENT"), fc.Server.UserAgent, defaultUserAgent)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	} else if len(fc.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.Server.AllowedOrigins
	} else {
		cfg.AllowedOrigins = splitList(defaultAllowedOrigins)
	}
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 30*time.Second)

	cfg.Geocoder = providerFromFile(fc.Geocoder, providerDefaults{
		url: "https://nominatim.openstreetmap.org/search", timeout: 10 * time.Second,
		ttl: 300 * time.Second, attempts: 3, base: 500 * time.Millisecond, rps: 1, burst: 1,
	})
	cfg.Weather = providerFromFile(fc.Weather.providerFile, providerDefaults{
		url: "https://api.open-meteo.com/v1/forecast", timeout: 10 * time.Second,
		ttl: 600 * time.Second, attempts: 3, base: 500 * time.Millisecond,
	})
	cfg.Places = providerFromFile(fc.Places.providerFile, providerDefaults{
		url: "https://overpass-api.de/api/interpreter", timeout: 25 * time.Second,
		ttl: 600 * time.Second, attempts: 3, base: 400 * time.Millisecond,
	})

	cfg.WeatherTimezone = firstNonEmpty(os.Getenv("WEATHER_TIMEZONE"), fc.Weather.Timezone, "Asia/Kolkata")
	cfg.PlacesRadius = intOrDefault(fc.Places.Radius, 5000)
	cfg.PlacesLimit = intOrDefault(fc.Places.Limit, 5)
	cfg.PlacesExpansionFactor = intOrDefault(fc.Places.ExpansionFactor, 2)

	cfg.CacheMaxEntries = intOrDefault(fc.Cache.MaxEntries, 10000)
	cfg.CacheSweepInterval = parseDuration(fc.Cache.SweepInterval, time.Minute)
	cfg.CoalesceEnabled = boolOrDefault(fc.Cache.Coalesce, true)
	cfg.CoalesceTimeout = parseDuration(fc.Cache.CoalesceTimeout, 30*time.Second)

	cfg.CircuitBreakerEnabled = boolOrDefault(fc.CircuitBreaker.Enabled, true)
	cfg.CircuitBreakerFailureThreshold = intOrDefault(fc.CircuitBreaker.FailureThreshold, 5)
	cfg.CircuitBreakerSuccessThreshold = intOrDefault(fc.CircuitBreaker.SuccessThreshold, 2)
	cfg.CircuitBreakerTimeout = parseDuration(fc.CircuitBreaker.Timeout, 30*time.Second)

	cfg.RateLimitRequests = intOrDefault(fc.RateLimit.Requests, 30)
	cfg.RateLimitWindow = parseDuration(fc.RateLimit.Window, 60*time.Second)

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = intOrDefault(fc.Health.DegradedErrorPct, 50)

	cfg.WarmLocations = fc.Warm.Locations
	cfg.WarmInterval = parseDuration(fc.Warm.Interval, 10*time.Minute)
	cfg.WarmTimeout = parseDuration(fc.Warm.Timeout, 60*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.TrackedLocations = fc.Metrics.TrackedLocations

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type providerDefaults struct {
	url      string
	timeout  time.Duration
	ttl      time.Duration
	attempts int
	base     time.Duration
	rps      float64
	burst    int
}

func providerFromFile(pf providerFile, d providerDefaults) ProviderConfig {
	pc := ProviderConfig{
		URL:            firstNonEmpty(strings.TrimSpace(pf.URL), d.url),
		Timeout:        parseDuration(pf.Timeout, d.timeout),
		TTL:            parseDuration(pf.TTL, d.ttl),
		RetryAttempts:  intOrDefault(pf.RetryAttempts, d.attempts),
		RetryBaseDelay: parseDuration(pf.RetryBaseDelay, d.base),
		RateLimitRPS:   pf.RateLimitRPS,
		RateLimitBurst: pf.RateLimitBurst,
	}
	if pc.RateLimitRPS <= 0 {
		pc.RateLimitRPS = d.rps
	}
	if pc.RateLimitBurst <= 0 {
		pc.RateLimitBurst = d.burst
	}
	if pc.RateLimitRPS > 0 && pc.RateLimitBurst <= 0 {
		pc.RateLimitBurst = 1
	}
	return pc
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func intOrDefault(v, defaultVal int) int {
	if v <= 0 {
		return defaultVal
	}
	return v
}

func boolOrDefault(v *bool, defaultVal bool) bool {
	if v == nil {
		return defaultVal
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FetchBudget is the longest calls sequential retried calls can take when every attempt
// times out and every backoff runs in full.
func (pc ProviderConfig) FetchBudget(calls int) time.Duration {
	var one time.Duration
	for n := 1; n <= pc.RetryAttempts; n++ {
		one += pc.Timeout
		if n < pc.RetryAttempts {
			one += pc.RetryBaseDelay << (n - 1)
		}
	}
	return time.Duration(calls) * one
}

// PlanBudget is the worst-case duration of one plan: geocoding (primary plus one alias
// lookup), then weather and places (two radius searches) side by side.
func (c *Config) PlanBudget() time.Duration {
	return c.Geocoder.FetchBudget(2) + max(c.Weather.FetchBudget(1), c.Places.FetchBudget(2))
}

// validate performs post-load validation of configuration values.
// Ensures RequestTimeout covers the plan budget and warm locations are well formed.
func validate(cfg *Config) error {
	for _, p := range []struct {
		name string
		pc   ProviderConfig
	}{{"geocoder", cfg.Geocoder}, {"weather", cfg.Weather}, {"places", cfg.Places}} {
		if p.pc.RetryAttempts < 1 {
			return fmt.Errorf("%s.retry_max_attempts must be at least 1", p.name)
		}
		if !strings.HasPrefix(p.pc.URL, "http://") && !strings.HasPrefix(p.pc.URL, "https://") {
			return fmt.Errorf("%s.url must be an http(s) URL, got %q", p.name, p.pc.URL)
		}
	}
	if budget := cfg.PlanBudget(); cfg.RequestTimeout < budget {
		cfg.RequestTimeout = budget
	}
	if cfg.PlacesExpansionFactor < 2 {
		return fmt.Errorf("places.expansion_factor must be at least 2")
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("health.degraded_error_pct must be at most 100, got %d", cfg.DegradedErrorPct)
	}
	if cfg.CircuitBreakerSuccessThreshold > cfg.CircuitBreakerFailureThreshold {
		return fmt.Errorf("circuit_breaker.success_threshold must not exceed failure_threshold")
	}
	for i, loc := range cfg.WarmLocations {
		clean, err := validation.ValidateLocation(loc, 2, 100)
		if err != nil {
			return fmt.Errorf("warm.locations[%d] %q: %w", i, loc, err)
		}
		cfg.WarmLocations[i] = clean
	}
	return nil
}
