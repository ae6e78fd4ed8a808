package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port         string
	GinMode      string
	LogLevel     string
	FrontendURLs []string

	Amadeus Amadeus
	Sherpa  Sherpa

	UpstreamTimeout time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration

	DatabaseURL      string
	RedisURL         string
	LocationCacheTTL time.Duration

	TracingEnabled bool
}

type Amadeus struct {
	ClientID     string
	ClientSecret string
	Env          string
	BaseURL      string
}

// Configured reports whether both credentials are present.
func (a Amadeus) Configured() bool {
	return a.ClientID != "" && a.ClientSecret != ""
}

type Sherpa struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

const (
	amadeusTestURL       = "https://test.api.amadeus.com"
	amadeusProductionURL = "https://api.amadeus.com"
	sherpaDefaultURL     = "https://api.joinsherpa.com/v2"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("FRONTEND_URL", "")
	v.SetDefault("AMADEUS_CLIENT_ID", "")
	v.SetDefault("AMADEUS_CLIENT_SECRET", "")
	v.SetDefault("AMADEUS_ENV", "test")
	v.SetDefault("AMADEUS_BASE_URL", "")
	v.SetDefault("SHERPA_API_KEY", "")
	v.SetDefault("SHERPA_API_URL", sherpaDefaultURL)
	v.SetDefault("SHERPA_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("BREAKER_FAILURES", 5)
	v.SetDefault("BREAKER_TIMEOUT", "30s")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LOCATION_CACHE_TTL", "24h")
	v.SetDefault("TRACING_ENABLED", false)
}

// Load reads the process environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
// Defaults are applied for every key that is not set.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{
		Port:     strings.TrimSpace(v.GetString("PORT")),
		GinMode:  v.GetString("GIN_MODE"),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
		Amadeus: Amadeus{
			ClientID:     v.GetString("AMADEUS_CLIENT_ID"),
			ClientSecret: v.GetString("AMADEUS_CLIENT_SECRET"),
			Env:          strings.ToLower(v.GetString("AMADEUS_ENV")),
			BaseURL:      strings.TrimRight(v.GetString("AMADEUS_BASE_URL"), "/"),
		},
		Sherpa: Sherpa{
			APIKey:  v.GetString("SHERPA_API_KEY"),
			BaseURL: strings.TrimRight(v.GetString("SHERPA_API_URL"), "/"),
		},
		BreakerFailures: v.GetInt("BREAKER_FAILURES"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisURL:        v.GetString("REDIS_URL"),
		TracingEnabled:  v.GetBool("TRACING_ENABLED"),
	}

	for _, u := range strings.Split(v.GetString("FRONTEND_URL"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			cfg.FrontendURLs = append(cfg.FrontendURLs, u)
		}
	}

	if cfg.Amadeus.BaseURL == "" {
		switch cfg.Amadeus.Env {
		case "", "test":
			cfg.Amadeus.BaseURL = amadeusTestURL
		case "production", "prod":
			cfg.Amadeus.BaseURL = amadeusProductionURL
		default:
			return nil, fmt.Errorf("AMADEUS_ENV must be test or production, got %q", cfg.Amadeus.Env)
		}
	}

	var err error
	if cfg.Sherpa.Timeout, err = duration(v, "SHERPA_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = duration(v, "UPSTREAM_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.BreakerTimeout, err = duration(v, "BREAKER_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.LocationCacheTTL, err = duration(v, "LOCATION_CACHE_TTL"); err != nil {
		return nil, err
	}

	if cfg.Port == "" {
		return nil, fmt.Errorf("PORT must not be empty")
	}
	if cfg.BreakerFailures < 1 {
		return nil, fmt.Errorf("BREAKER_FAILURES must be at least 1, got %d", cfg.BreakerFailures)
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}
