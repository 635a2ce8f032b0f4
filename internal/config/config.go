package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
)

type AppConfig struct {
	OpenAQAPIKey  string
	OpenAQBaseURL string

	// HTTPTimeout bounds every outbound request on top of the per-endpoint
	// timeouts.
	HTTPTimeout time.Duration

	// ProbeInterval controls how often the upstream is probed.
	ProbeInterval time.Duration

	// Probe history retention.
	ProbeMaxHistory int           // max number of probes kept (0 = unlimited)
	ProbeMaxAge     time.Duration // max age of probes (0 = unlimited)

	// Circuit breaker around the upstream.
	BreakerMaxRequests uint32
	BreakerTimeout     time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenAQAPIKey = os.Getenv("OPENAQ_API_KEY")
	if cfg.OpenAQAPIKey == "" {
		log.Println("INFO: OPENAQ_API_KEY is not set; upstream requests are unauthenticated")
	}
	cfg.OpenAQBaseURL = getenvDefault("OPENAQ_BASE_URL", openaq.DefaultBaseURL)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.ProbeInterval, err = getenvDuration("PROBE_INTERVAL", "5m"); err != nil {
		return nil, err
	}

	cfg.ProbeMaxHistory = getenvInt("PROBE_MAX_HISTORY", 288) // 24h at 5-minute intervals
	if cfg.ProbeMaxAge, err = getenvDuration("PROBE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.BreakerMaxRequests = uint32(getenvInt("BREAKER_MAX_REQUESTS", 5))
	if cfg.BreakerTimeout, err = getenvDuration("BREAKER_TIMEOUT", "2m"); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
