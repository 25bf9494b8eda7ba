package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Geocoding providers accepted by GEOCODER_PROVIDER.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
	ProviderGoogle    = "google"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	// Artifact locations.
	RawTeamPath    string `env:"RAW_TEAM_PATH" envDefault:"data/team_raw.json"`
	CheckpointPath string `env:"GEOCODE_RESULTS_PATH" envDefault:"data/geocode_results.json"`
	DatasetPath    string `env:"TEAM_DATA_PATH" envDefault:"data/team.json"`
	ApplicantPath  string `env:"APPLICANT_PATH" envDefault:"data/applicant.json"`

	// Geocoding configuration.
	GeocoderProvider  string        `env:"GEOCODER_PROVIDER" envDefault:"nominatim"`
	GeocoderDelay     time.Duration `env:"GEOCODER_DELAY" envDefault:"1s"`
	GeocoderTimeout   time.Duration `env:"GEOCODER_TIMEOUT" envDefault:"10s"`
	GeocoderUserAgent string        `env:"GEOCODER_USER_AGENT" envDefault:"team-map-service/1.0"`
	NominatimURL      string        `env:"NOMINATIM_URL" envDefault:"https://nominatim.openstreetmap.org"`
	MapboxToken       string        `env:"MAPBOX_TOKEN"`
	GoogleMapsAPIKey  string        `env:"GOOGLE_MAPS_API_KEY"`
	VerifySample      int           `env:"VERIFY_SAMPLE" envDefault:"10"`
	ForceGeocode      bool          `env:"GEOCODE_FORCE" envDefault:"false"`

	// Dataset shaping.
	H3Resolution  int    `env:"H3_RESOLUTION" envDefault:"4"`
	DatasetSource string `env:"DATASET_SOURCE" envDefault:"team-directory-scrape"`
	DataVersion   string `env:"DATA_VERSION" envDefault:"1.0"`

	// Serving.
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Observability.
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"json"`
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`

	// Publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"team-members"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.GeocoderProvider {
	case ProviderNominatim:
		if c.NominatimURL == "" {
			return errors.New("NOMINATIM_URL is required for the nominatim provider")
		}
	case ProviderMapbox:
		if c.MapboxToken == "" {
			return errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	case ProviderGoogle:
		if c.GoogleMapsAPIKey == "" {
			return errors.New("GEOCODER_PROVIDER is google but GOOGLE_MAPS_API_KEY is not set")
		}
	default:
		return fmt.Errorf("invalid GEOCODER_PROVIDER %q: must be nominatim, mapbox or google", c.GeocoderProvider)
	}

	if c.GeocoderDelay < 0 {
		return errors.New("invalid GEOCODER_DELAY: must not be negative")
	}
	if c.GeocoderTimeout <= 0 {
		return errors.New("invalid GEOCODER_TIMEOUT: must be positive")
	}
	if c.VerifySample < 0 {
		return errors.New("invalid VERIFY_SAMPLE: must not be negative")
	}
	if c.H3Resolution < -1 || c.H3Resolution > 15 {
		return errors.New("invalid H3_RESOLUTION: must be between 0 and 15, or -1 to disable")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT: must be positive")
	}
	if c.RawTeamPath == "" || c.CheckpointPath == "" || c.DatasetPath == "" {
		return errors.New("RAW_TEAM_PATH, GEOCODE_RESULTS_PATH and TEAM_DATA_PATH are required")
	}
	return nil
}

// KafkaEnabled reports whether publishing is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
