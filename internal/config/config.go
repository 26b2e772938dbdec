// Package config loads the settings of a sync run from a TOML or YAML file, lets environment
// variables prefixed with DBMIRROR_ override them and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"dbmirror/internal/core"
	"dbmirror/internal/database"
	"dbmirror/internal/normalize"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DBMIRROR_"

// Config is the complete configuration of a sync run.
type Config struct {
	Origin      database.Endpoint `toml:"origin" yaml:"origin" envPrefix:"ORIGIN_"`
	Destination database.Endpoint `toml:"destination" yaml:"destination" envPrefix:"DESTINATION_"`
	Sync        Sync              `toml:"sync" yaml:"sync" envPrefix:"SYNC_"`
	Log         Log               `toml:"log" yaml:"log" envPrefix:"LOG_"`
}

// Sync holds the behaviour toggles of a run. Timeout bounds the whole run, data copy included;
// zero means no deadline.
type Sync struct {
	InstallOriginTriggers  bool          `toml:"install_origin_triggers" yaml:"install_origin_triggers" env:"INSTALL_ORIGIN_TRIGGERS"`
	ReplaceTriggers        bool          `toml:"replace_triggers" yaml:"replace_triggers" env:"REPLACE_TRIGGERS"`
	FallbackDate           string        `toml:"fallback_date" yaml:"fallback_date" env:"FALLBACK_DATE"`
	AllowUnsafeIdentifiers bool          `toml:"allow_unsafe_identifiers" yaml:"allow_unsafe_identifiers" env:"ALLOW_UNSAFE_IDENTIFIERS"`
	Timeout                time.Duration `toml:"timeout" yaml:"timeout" env:"TIMEOUT"`
}

// Log configures the logger.
type Log struct {
	Level  string `toml:"level" yaml:"level" env:"LEVEL"`
	Format string `toml:"format" yaml:"format" env:"FORMAT"`
}

// Default returns a configuration with every optional field set.
func Default() *Config {
	return &Config{
		Origin:      database.Endpoint{Port: 3306},
		Destination: database.Endpoint{Port: 3306},
		Sync:        Sync{FallbackDate: normalize.DefaultFallbackDate},
		Log:         Log{Level: "info", Format: "console"},
	}
}

// LoadEnvFile loads variables from a dotenv file without overriding variables that are
// already set in the environment.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return core.NewError(core.KindConfig, "", "load env file "+path, err)
	}
	return nil
}

// Load reads the configuration file at path, if any, then applies environment overrides and
// validates the result. The file format is chosen by extension: .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, core.NewError(core.KindConfig, "", "read config file", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, core.NewError(core.KindConfig, "", "parse config file "+path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, core.NewError(core.KindConfig, "", "parse environment", err)
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
		return nil
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q (use .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// fillDefaults restores defaults a file or the environment set to an empty value.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Origin.Port == 0 {
		c.Origin.Port = def.Origin.Port
	}
	if c.Destination.Port == 0 {
		c.Destination.Port = def.Destination.Port
	}
	if c.Sync.FallbackDate == "" {
		c.Sync.FallbackDate = def.Sync.FallbackDate
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var errs error
	errs = multierr.Append(errs, validateEndpoint("origin", c.Origin))
	errs = multierr.Append(errs, validateEndpoint("destination", c.Destination))

	if c.Origin.Host == c.Destination.Host && c.Origin.Port == c.Destination.Port &&
		c.Origin.Database != "" && c.Origin.Database == c.Destination.Database {
		errs = multierr.Append(errs, errors.New("origin and destination must be different databases"))
	}
	if err := normalize.ValidateFallbackDate(c.Sync.FallbackDate); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sync.fallback_date: %w", err))
	}
	if c.Sync.InstallOriginTriggers && (c.Origin.Host != c.Destination.Host || c.Origin.Port != c.Destination.Port) {
		errs = multierr.Append(errs, errors.New("sync.install_origin_triggers requires origin and destination on the same server"))
	}
	if c.Sync.Timeout < 0 {
		errs = multierr.Append(errs, errors.New("sync.timeout must not be negative"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = multierr.Append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = multierr.Append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}

	if errs != nil {
		return core.NewError(core.KindConfig, "", "validate config", errs)
	}
	return nil
}

func validateEndpoint(side string, ep database.Endpoint) error {
	var errs error
	if ep.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s.host is required", side))
	}
	if ep.User == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s.user is required", side))
	}
	if ep.Database == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s.database is required", side))
	}
	if ep.Port < 0 || ep.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("%s.port %d is out of range", side, ep.Port))
	}
	return errs
}
