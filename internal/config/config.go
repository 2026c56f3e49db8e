package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names before they are
// mapped onto configuration keys.
const EnvPrefix = "COUNTERD_"

// Config holds all runtime configuration.
type Config struct {
	// HTTP
	ListenAddr         string        `koanf:"listen_addr"`
	ReadTimeout        time.Duration `koanf:"read_timeout"`
	WriteTimeout       time.Duration `koanf:"write_timeout"`
	IdleTimeout        time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins"`
	MetricsEnabled     bool          `koanf:"metrics_enabled"`

	// Storage
	StoreBackend  string   `koanf:"store_backend"`
	DataDir       string   `koanf:"data_dir"`
	RedisAddrs    []string `koanf:"redis_addr"`
	RedisUsername string   `koanf:"redis_username"`
	RedisPassword string   `koanf:"redis_password"`
	RedisDB       int      `koanf:"redis_db"`

	// Operational
	LogLevel        string        `koanf:"log_level"`
	LogFormat       string        `koanf:"log_format"`
	JanitorInterval time.Duration `koanf:"janitor_interval"`

	// BuildVersion is set by main, never loaded.
	BuildVersion string `koanf:"-"`
}

// defaults is the lowest-priority layer.
var defaults = map[string]any{
	"listen_addr":          ":8080",
	"read_timeout":         5 * time.Second,
	"write_timeout":        10 * time.Second,
	"idle_timeout":         60 * time.Second,
	"shutdown_timeout":     10 * time.Second,
	"cors_allowed_origins": []string{},
	"metrics_enabled":      true,
	"store_backend":        "memory",
	"data_dir":             "/data",
	"redis_addr":           []string{},
	"redis_username":       "",
	"redis_password":       "",
	"redis_db":             0,
	"log_level":            "info",
	"log_format":           "json",
	"janitor_interval":     30 * time.Second,
}

// Load reads configuration from (lowest → highest priority):
//  1. Built-in defaults
//  2. YAML file at COUNTERD_CONFIG_FILE env var path (if set)
//  3. COUNTERD_* environment variables (always highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults.
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	// Layer 2: optional YAML file.
	if cfgFile := os.Getenv(EnvPrefix + "CONFIG_FILE"); cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", cfgFile, err)
		}
	}

	// Layer 3: environment variables.
	// Transform: "COUNTERD_LISTEN_ADDR" → "listen_addr".
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if key == "config_file" {
			return "" // skip; consumed above
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// Normalise string fields.
	cfg.LogLevel = strings.TrimSpace(strings.ToLower(cfg.LogLevel))
	cfg.LogFormat = strings.TrimSpace(strings.ToLower(cfg.LogFormat))
	cfg.StoreBackend = strings.TrimSpace(strings.ToLower(cfg.StoreBackend))
	cfg.CORSAllowedOrigins = compact(cfg.CORSAllowedOrigins)
	cfg.RedisAddrs = compact(cfg.RedisAddrs)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []string

	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, "COUNTERD_LISTEN_ADDR is required (e.g., :8080)")
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, "COUNTERD_LOG_FORMAT must be json or text")
	}

	switch c.StoreBackend {
	case "memory":
	case "bolt":
		// DataDir path sanitisation: reject traversal sequences and null bytes.
		if strings.TrimSpace(c.DataDir) == "" {
			errs = append(errs, "COUNTERD_DATA_DIR is required for the bolt backend")
		}
		if strings.Contains(c.DataDir, "..") {
			errs = append(errs, `COUNTERD_DATA_DIR must not contain ".." (directory traversal)`)
		}
		if strings.ContainsRune(c.DataDir, 0) {
			errs = append(errs, "COUNTERD_DATA_DIR must not contain null bytes")
		}
	case "redis":
		if len(c.RedisAddrs) == 0 {
			errs = append(errs, "COUNTERD_REDIS_ADDR is required for the redis backend (e.g., redis:6379)")
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			errs = append(errs, "COUNTERD_REDIS_DB must be between 0 and 15")
		}
	default:
		errs = append(errs, "COUNTERD_STORE_BACKEND must be one of memory, bolt, redis")
	}

	if c.ShutdownTimeout < time.Second {
		errs = append(errs, "COUNTERD_SHUTDOWN_TIMEOUT must be at least 1s")
	}
	if c.JanitorInterval < time.Second {
		errs = append(errs, "COUNTERD_JANITOR_INTERVAL must be at least 1s")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		errs = append(errs, "COUNTERD_READ_TIMEOUT, COUNTERD_WRITE_TIMEOUT and COUNTERD_IDLE_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d configuration error(s):\n  - %s", len(errs), strings.Join(errs, "\n  - "))
	}
	return nil
}

// compact splits comma-separated elements (env values arrive as one string),
// trims them and drops empty ones.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
