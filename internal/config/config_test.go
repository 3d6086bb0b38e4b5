package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexophore/internal/config"
)

func TestConfig_Validate_Defaults(t *testing.T) {
	t.Parallel()
	assert.NoError(t, config.Defaults().Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	t.Parallel()
	for _, p := range []int{-1, 65536, 100000} {
		cfg := config.Defaults()
		cfg.Server.Port = p
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.port")
	}
}

func TestConfig_Validate_Log(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Log.Level = "trace"
	assert.ErrorContains(t, cfg.Validate(), "log.level")

	cfg = config.Defaults()
	cfg.Log.Format = "text"
	assert.ErrorContains(t, cfg.Validate(), "log.format")
}

func TestConfig_Validate_Flexophore(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*config.FlexophoreConfig)
		want   string
	}{
		{"conformers", func(f *config.FlexophoreConfig) { f.Conformers = -1 }, "flexophore.conformers"},
		{"one conf above max", func(f *config.FlexophoreConfig) { f.MaxTriesOneConf = f.MaxTries + 1 }, "max_tries_one_conf"},
		{"heavy atom bounds", func(f *config.FlexophoreConfig) { f.MaxHeavyAtoms = f.MinHeavyAtoms - 1 }, "heavy atom bounds"},
		{"correction factor", func(f *config.FlexophoreConfig) { f.CorrectionFactor = 1.5 }, "correction_factor"},
		{"workers", func(f *config.FlexophoreConfig) { f.Workers = -2 }, "workers"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Defaults()
			tc.mutate(&cfg.Flexophore)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	assert.Equal(t, "127.0.0.1:9000", config.ServerConfig{Host: "127.0.0.1", Port: 9000}.Address())
}

func TestRedisConfig_Enabled(t *testing.T) {
	assert.False(t, config.RedisConfig{}.Enabled())
	assert.True(t, config.RedisConfig{Addr: "localhost:6379"}.Enabled())
}
