package config

import (
	"runtime"
	"time"
)

const (
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultMaxBodySize     = 8 << 20
	DefaultShutdownTimeout = 15 * time.Second

	DefaultRedisPoolSize = 10
	DefaultRedisTTL      = 24 * time.Hour
	DefaultRedisPrefix   = "flexo:"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "flexophore"
	DefaultMetricsPath      = "/metrics"

	DefaultConformers       = 250
	DefaultMaxTries         = 25
	DefaultMaxTriesOneConf  = 11
	DefaultSeed             = 12345
	DefaultMinHeavyAtoms    = 6
	DefaultMaxHeavyAtoms    = 70
	DefaultMaxNodes         = 64
	DefaultMaxSolutions     = 1000
	DefaultCorrectionFactor = 0.40
	DefaultDecodeCacheSize  = 4096
)

// ApplyDefaults fills zero-value fields in cfg.  Explicitly set values are
// left alone.  Call it after unmarshalling and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Redis stays disabled unless an address is given.
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisPrefix
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	f := &cfg.Flexophore
	if f.Conformers == 0 {
		f.Conformers = DefaultConformers
	}
	if f.MaxTries == 0 {
		f.MaxTries = DefaultMaxTries
	}
	if f.MaxTriesOneConf == 0 {
		f.MaxTriesOneConf = DefaultMaxTriesOneConf
	}
	if f.Seed == 0 {
		f.Seed = DefaultSeed
	}
	if f.MinHeavyAtoms == 0 {
		f.MinHeavyAtoms = DefaultMinHeavyAtoms
	}
	if f.MaxHeavyAtoms == 0 {
		f.MaxHeavyAtoms = DefaultMaxHeavyAtoms
	}
	if f.MaxNodes == 0 {
		f.MaxNodes = DefaultMaxNodes
	}
	if f.MaxSolutions == 0 {
		f.MaxSolutions = DefaultMaxSolutions
	}
	if f.CorrectionFactor == 0 {
		f.CorrectionFactor = DefaultCorrectionFactor
	}
	if f.Workers == 0 {
		f.Workers = runtime.NumCPU()
	}
	if f.DecodeCacheSize == 0 {
		f.DecodeCacheSize = DefaultDecodeCacheSize
	}
}

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
