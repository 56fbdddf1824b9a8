package ajarin

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces every configuration variable read from the
// environment (e.g. AJARIN_BASE_URL).
const envPrefix = "AJARIN_"

// Config holds the environment-sourced settings for the request core. It is
// read once at startup; the client never re-reads the environment.
type Config struct {
	// BaseURL is the primary (proxied) backend base URL.
	BaseURL string
	// DirectBaseURL is the optional secondary address used for the
	// development-mode fallback. Derived from BackendPort when empty.
	DirectBaseURL string
	// BackendPort is used for diagnostics and to derive DirectBaseURL when
	// none is explicit.
	BackendPort int
	// DevMode gates the direct-address fallback; it must never fire in
	// production configuration.
	DevMode bool
	// Timeout bounds a single physical attempt against either address.
	Timeout time.Duration
	// SlowTimeout bounds attempts against routes in the slow set.
	SlowTimeout time.Duration
}

// DefaultConfig returns the configuration used when the environment
// provides nothing.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "/api/v1",
		BackendPort: 5000,
		Timeout:     10 * time.Second,
		SlowTimeout: 45 * time.Second,
	}
}

// LoadConfigFromEnv reads configuration from AJARIN_* environment variables,
// falling back to defaults for anything unset. Recognized variables:
// AJARIN_BASE_URL, AJARIN_DIRECT_BASE_URL, AJARIN_BACKEND_PORT,
// AJARIN_DEV_MODE, AJARIN_TIMEOUT, AJARIN_SLOW_TIMEOUT.
func LoadConfigFromEnv() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment config: %w", err)
	}

	cfg := DefaultConfig()
	if v := k.String("base_url"); v != "" {
		cfg.BaseURL = v
	}
	if v := k.String("direct_base_url"); v != "" {
		cfg.DirectBaseURL = v
	}
	if k.Exists("backend_port") {
		cfg.BackendPort = k.Int("backend_port")
	}
	if k.Exists("dev_mode") {
		cfg.DevMode = k.Bool("dev_mode")
	}
	if v := k.String("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AJARIN_TIMEOUT %q: %w", v, err)
		}
		cfg.Timeout = d
	}
	if v := k.String("slow_timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AJARIN_SLOW_TIMEOUT %q: %w", v, err)
		}
		cfg.SlowTimeout = d
	}

	return cfg, nil
}

// directURL returns the address for the fallback attempt: the explicit
// DirectBaseURL if configured, otherwise one derived from the backend port.
func (c Config) directURL() string {
	if c.DirectBaseURL != "" {
		return c.DirectBaseURL
	}
	if c.BackendPort > 0 {
		return fmt.Sprintf("http://localhost:%d/api/v1", c.BackendPort)
	}
	return ""
}

// fallbackConfigured reports whether the development-mode fallback has a
// usable target.
func (c Config) fallbackConfigured() bool {
	return c.DevMode && c.directURL() != ""
}
