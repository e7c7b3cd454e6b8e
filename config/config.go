// Package config loads service settings from an optional TOML file, a
// dotenv file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"productmatcher/catalog"
	"productmatcher/signalhandler"
	"productmatcher/types"
	"productmatcher/utils"
)

// DefaultFile is read when no --config path is given and it exists
const DefaultFile = "productmatcher.toml"

// Catalog backends
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Duration is a time.Duration written as "30s" in TOML and the environment
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Catalog CatalogConfig `toml:"catalog"`
	Model   ModelConfig   `toml:"model"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	RequestTimeout Duration `toml:"request_timeout"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
	AllowedOrigin  string   `toml:"allowed_origin"`
}

type CatalogConfig struct {
	Backend       string `toml:"backend"`
	SupabaseURL   string `toml:"supabase_url"`
	SupabaseKey   string `toml:"supabase_anon_key"`
	MatchFunction string `toml:"match_function"`
	DatabasePath  string `toml:"database"`
}

type ModelConfig struct {
	Path          string   `toml:"path"`
	StartupDelay  Duration `toml:"startup_delay"`
	MaxConcurrent int      `toml:"max_concurrent"`
	Dim           int      `toml:"dim"`
}

type LoggingConfig struct {
	File  string `toml:"file"`
	Debug bool   `toml:"debug"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: Duration{60 * time.Second},
			MaxBodyBytes:   50 << 20,
			AllowedOrigin:  "*",
		},
		Catalog: CatalogConfig{
			MatchFunction: catalog.DefaultMatchFunction,
			DatabasePath:  utils.GetDefaultDatabasePath(),
		},
		Model: ModelConfig{
			Path:          utils.GetDefaultModelPath(),
			MaxConcurrent: signalhandler.GetOptimalProcs(),
			Dim:           types.EmbeddingDim,
		},
	}
}

// Lookup resolves a configuration key from the environment
type Lookup func(key string) (string, bool)

// Load reads path (or DefaultFile when path is empty), then applies .env and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	dotenv, err := LoadDotEnv(".env")
	if err != nil {
		return nil, err
	}
	return LoadWith(path, func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	})
}

// LoadWith is Load with an explicit environment
func LoadWith(path string, lookup Lookup) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = BackendSQLite
		if cfg.Catalog.SupabaseURL != "" {
			cfg.Catalog.Backend = BackendSupabase
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup Lookup) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	parse := func(key string, set func(string) error) {
		if v, ok := lookup(key); ok {
			if err := set(strings.TrimSpace(v)); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
			}
		}
	}

	if v, ok := lookup("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(strings.TrimSpace(v), ":")
	}
	parse("REQUEST_TIMEOUT", func(s string) error { return c.Server.RequestTimeout.UnmarshalText([]byte(s)) })
	parse("MAX_BODY_BYTES", func(s string) (err error) {
		c.Server.MaxBodyBytes, err = strconv.ParseInt(s, 10, 64)
		return err
	})

	str("SUPABASE_URL", &c.Catalog.SupabaseURL)
	str("SUPABASE_ANON_KEY", &c.Catalog.SupabaseKey)
	str("MATCH_RPC", &c.Catalog.MatchFunction)
	str("CATALOG_BACKEND", &c.Catalog.Backend)
	str("CATALOG_DB", &c.Catalog.DatabasePath)

	str("MODEL_PATH", &c.Model.Path)
	parse("MODEL_STARTUP_DELAY", func(s string) error { return c.Model.StartupDelay.UnmarshalText([]byte(s)) })
	parse("MODEL_MAX_CONCURRENT", func(s string) (err error) {
		c.Model.MaxConcurrent, err = strconv.Atoi(s)
		return err
	})

	str("LOG_FILE", &c.Logging.File)
	parse("DEBUG", func(s string) (err error) {
		c.Logging.Debug, err = strconv.ParseBool(s)
		return err
	})

	return errors.Join(errs...)
}

// Validate checks that the settings are usable
func (c *Config) Validate() error {
	var errs []error

	switch c.Catalog.Backend {
	case BackendSupabase:
		if c.Catalog.SupabaseURL == "" || c.Catalog.SupabaseKey == "" {
			errs = append(errs, errors.New("supabase backend requires SUPABASE_URL and SUPABASE_ANON_KEY"))
		}
	case BackendSQLite:
		if c.Catalog.DatabasePath == "" {
			errs = append(errs, errors.New("sqlite backend requires a database path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog backend %q", c.Catalog.Backend))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is empty"))
	}
	if c.Server.RequestTimeout.Duration <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max body bytes must be positive"))
	}
	if c.Model.StartupDelay.Duration < 0 {
		errs = append(errs, errors.New("model startup delay cannot be negative"))
	}
	if c.Model.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("model max concurrent must be positive"))
	}
	if c.Model.Dim != types.EmbeddingDim {
		errs = append(errs, fmt.Errorf("model dim must be %d to agree with the catalog", types.EmbeddingDim))
	}

	return errors.Join(errs...)
}
