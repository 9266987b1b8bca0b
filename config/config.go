// Package config loads randvec settings.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. RANDVEC_VECTOR_LENGTH.
const EnvPrefix = "RANDVEC"

// Config holds every configurable value.
type Config struct {
	// Persistence
	DBDriver string `mapstructure:"db_driver"` // sqlite|mysql
	DBDSN    string `mapstructure:"db_dsn"`    // sqlite path or mysql DSN

	// Generation
	VectorLength int  `mapstructure:"vector_length"`
	UpperBound   int  `mapstructure:"upper_bound"`
	Reproducible bool `mapstructure:"reproducible"`
	Runs         int  `mapstructure:"runs"`

	// Retrieval
	SortMode string `mapstructure:"sort_mode"` // query|partition

	// Observability
	LogLevel    string `mapstructure:"log_level"` // debug|info|warn|error
	LogFile     string `mapstructure:"log_file"`
	MetricsFile string `mapstructure:"metrics_file"`
}

var defaults = map[string]any{
	"db_driver":     "sqlite",
	"db_dsn":        "./data/randvec.db",
	"vector_length": 50000,
	"upper_bound":   50000,
	"reproducible":  false,
	"runs":          3,
	"sort_mode":     "query",
	"log_level":     "info",
	"log_file":      "",
	"metrics_file":  "",
}

// Load reads configuration from (in decreasing priority):
//  1. flags in flags whose name matches a key with "-" for "_" (e.g. --vector-length)
//  2. environment variables (e.g. RANDVEC_VECTOR_LENGTH)
//  3. the yaml file at file, or ./configs/randvec.yaml if file is empty and it exists
//  4. defaults
//
// It returns a validated *Config or an error.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("randvec")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := defaults[key]; !ok || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("db_driver must be sqlite or mysql, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("db_dsn must not be empty")
	}
	if c.VectorLength <= 0 {
		return fmt.Errorf("vector_length must be positive, got %d", c.VectorLength)
	}
	if c.UpperBound < c.VectorLength {
		return fmt.Errorf("upper_bound (%d) must be at least vector_length (%d)", c.UpperBound, c.VectorLength)
	}
	if c.Runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", c.Runs)
	}
	switch c.SortMode {
	case "query", "partition":
	default:
		return fmt.Errorf("sort_mode must be query or partition, got %q", c.SortMode)
	}
	return nil
}
