package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the prefix of every environment override.
const envPrefix = "FLEXO"

// envKeys lists every leaf key so AutomaticEnv can see variables for keys that
// are absent from the file.  viper only consults the environment for keys it
// already knows about when unmarshalling.
var envKeys = []string{
	"server.host", "server.port", "server.read_timeout", "server.write_timeout",
	"server.max_body_size", "server.shutdown_timeout",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size", "redis.dial_timeout",
	"redis.read_timeout", "redis.write_timeout", "redis.default_ttl", "redis.key_prefix",
	"log.level", "log.format",
	"metrics.enabled", "metrics.namespace", "metrics.path",
	"flexophore.conformers", "flexophore.max_tries", "flexophore.max_tries_one_conf",
	"flexophore.seed", "flexophore.min_heavy_atoms", "flexophore.max_heavy_atoms",
	"flexophore.max_nodes", "flexophore.max_solutions", "flexophore.correction_factor",
	"flexophore.interaction_table", "flexophore.workers", "flexophore.decode_cache_size",
}

// newViper returns a viper instance reading YAML with FLEXO_ environment
// overrides; "flexophore.max_tries" maps to FLEXO_FLEXOPHORE_MAX_TRIES.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges FLEXO_* overrides, applies
// defaults and validates.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from FLEXO_* environment variables and defaults
// only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrDefault loads configPath when it is non-empty and falls back to
// LoadFromEnv otherwise.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch re-reads configPath whenever it changes on disk and passes the new
// Config to onChange.  Invalid revisions are reported to onError (when
// non-nil) and never reach onChange.  Only the log level is safe to apply at
// runtime; generation parameters are fixed for the process lifetime.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on error.  For main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
