// Package config defines the configuration structures of the flexophore
// service.  No I/O lives in this file, only data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisConfig holds the descriptor cache connection.  An empty Addr disables
// the cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// Enabled reports whether a cache address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// MetricsConfig controls the Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// FlexophoreConfig carries the descriptor generation and matching parameters.
type FlexophoreConfig struct {
	Conformers       int     `mapstructure:"conformers"`
	MaxTries         int     `mapstructure:"max_tries"`
	MaxTriesOneConf  int     `mapstructure:"max_tries_one_conf"`
	Seed             int64   `mapstructure:"seed"`
	MinHeavyAtoms    int     `mapstructure:"min_heavy_atoms"`
	MaxHeavyAtoms    int     `mapstructure:"max_heavy_atoms"`
	MaxNodes         int     `mapstructure:"max_nodes"`
	MaxSolutions     int     `mapstructure:"max_solutions"`
	CorrectionFactor float64 `mapstructure:"correction_factor"`

	// InteractionTable is a path to a YAML distance table.  Empty selects
	// the embedded table.
	InteractionTable string `mapstructure:"interaction_table"`

	// Workers bounds CreateBatch and Rank parallelism.
	Workers int `mapstructure:"workers"`

	// DecodeCacheSize is the number of decoded descriptors kept in the LRU.
	DecodeCacheSize int `mapstructure:"decode_cache_size"`
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Log        logging.LogConfig `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Flexophore FlexophoreConfig  `mapstructure:"flexophore"`
}

// Validate performs semantic validation of a defaulted Config and returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	f := c.Flexophore
	if f.Conformers < 1 {
		return fmt.Errorf("config: flexophore.conformers must be >= 1, got %d", f.Conformers)
	}
	if f.MaxTries < 1 {
		return fmt.Errorf("config: flexophore.max_tries must be >= 1, got %d", f.MaxTries)
	}
	if f.MaxTriesOneConf < 1 || f.MaxTriesOneConf > f.MaxTries {
		return fmt.Errorf("config: flexophore.max_tries_one_conf must be in [1, %d], got %d", f.MaxTries, f.MaxTriesOneConf)
	}
	if f.MinHeavyAtoms < 1 || f.MaxHeavyAtoms < f.MinHeavyAtoms {
		return fmt.Errorf("config: flexophore heavy atom bounds [%d, %d] are invalid", f.MinHeavyAtoms, f.MaxHeavyAtoms)
	}
	if f.MaxNodes < 1 {
		return fmt.Errorf("config: flexophore.max_nodes must be >= 1, got %d", f.MaxNodes)
	}
	if f.MaxSolutions < 1 {
		return fmt.Errorf("config: flexophore.max_solutions must be >= 1, got %d", f.MaxSolutions)
	}
	if f.CorrectionFactor <= 0 || f.CorrectionFactor > 1 {
		return fmt.Errorf("config: flexophore.correction_factor must be in (0, 1], got %g", f.CorrectionFactor)
	}
	if f.Workers < 1 {
		return fmt.Errorf("config: flexophore.workers must be >= 1, got %d", f.Workers)
	}
	return nil
}
