package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Geocoding providers selectable through GEOCODER_PROVIDER.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Sources and polling.
	IncidentsURL      string
	IncidentsInterval time.Duration
	WarningsURL       string
	WarningsInterval  time.Duration
	PollTimeout       time.Duration
	FetchTimeout      time.Duration
	RenderTimeout     time.Duration

	// Geocoding.
	GeocoderProvider    string
	NominatimURL        string
	GeocoderUserAgent   string
	GeocoderMinInterval time.Duration
	GeocoderTimeout     time.Duration
	GeocoderConcurrency int
	MapboxToken         string

	// Notification dispatch.
	NotifyMinInterval time.Duration
	NotifyQueueSize   int
	SessionBuffer     int

	// Optional event bus. Empty KafkaBrokers disables publishing.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:          EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         EnvOrDefault("LOG_FORMAT", "json"),
		IncidentsURL:      EnvOrDefault("INCIDENTS_URL", "https://www.fireservice.gr/el/synola-gegonoton"),
		WarningsURL:       EnvOrDefault("WARNINGS_URL", "https://x.com/112Greece"),
		GeocoderProvider:  strings.ToLower(EnvOrDefault("GEOCODER_PROVIDER", ProviderNominatim)),
		NominatimURL:      EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: EnvOrDefault("GEOCODER_USER_AGENT", "fire-watch-service/1.0"),
		MapboxToken:       os.Getenv("MAPBOX_TOKEN"),
		KafkaBrokers:      ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        EnvOrDefault("KAFKA_TOPIC", "fire-watch-events"),
	}

	durations := []struct {
		env string
		def string
		dst *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
		{"INCIDENTS_INTERVAL", "2m", &cfg.IncidentsInterval},
		{"WARNINGS_INTERVAL", "5m", &cfg.WarningsInterval},
		{"POLL_TIMEOUT", "3m", &cfg.PollTimeout},
		{"FETCH_TIMEOUT", "20s", &cfg.FetchTimeout},
		{"RENDER_TIMEOUT", "45s", &cfg.RenderTimeout},
		{"GEOCODER_MIN_INTERVAL", "1s", &cfg.GeocoderMinInterval},
		{"GEOCODER_TIMEOUT", "10s", &cfg.GeocoderTimeout},
		{"NOTIFY_MIN_INTERVAL", "2s", &cfg.NotifyMinInterval},
	}
	for _, d := range durations {
		v, err := ParseDuration(d.env, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	ints := []struct {
		env string
		def int
		dst *int
	}{
		{"GEOCODER_CONCURRENCY", 4, &cfg.GeocoderConcurrency},
		{"NOTIFY_QUEUE_SIZE", 256, &cfg.NotifyQueueSize},
		{"SESSION_BUFFER", 32, &cfg.SessionBuffer},
	}
	for _, n := range ints {
		v, err := ParsePositiveInt(n.env, n.def)
		if err != nil {
			return nil, err
		}
		*n.dst = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for env, raw := range map[string]string{
		"INCIDENTS_URL": c.IncidentsURL,
		"WARNINGS_URL":  c.WarningsURL,
		"NOMINATIM_URL": c.NominatimURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", env, raw)
		}
	}

	switch c.GeocoderProvider {
	case ProviderNominatim:
		if c.GeocoderUserAgent == "" {
			return errors.New("GEOCODER_USER_AGENT is required for nominatim")
		}
	case ProviderMapbox:
		if c.MapboxToken == "" {
			return errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return fmt.Errorf("invalid GEOCODER_PROVIDER: %q", c.GeocoderProvider)
	}

	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// KafkaEnabled reports whether change events should be published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// EnvOrDefault returns the environment variable value or fallback when unset.
func EnvOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// ParseBrokers splits a comma-separated broker list, dropping blanks.
func ParseBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ParseDuration reads a positive duration from env, falling back to def.
func ParseDuration(env, def string) (time.Duration, error) {
	d, err := time.ParseDuration(EnvOrDefault(env, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", env)
	}
	return d, nil
}

// ParsePositiveInt reads a positive integer from env, falling back to def.
func ParsePositiveInt(env string, def int) (int, error) {
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", env)
	}
	return n, nil
}
