package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcbuilder/configurator/pkg/config"
)

type cachedConfig struct {
	Name string `env:"CONFIG_TEST_CACHED_NAME" envDefault:"pcbuilder"`
}

type requiredConfig struct {
	Secret string `env:"CONFIG_TEST_REQUIRED_SECRET,required"`
}

type ttlConfig struct {
	TTL     time.Duration `env:"TTL" envDefault:"24h"`
	Enabled bool          `env:"ENABLED" envDefault:"true"`
}

func TestLoad(t *testing.T) {
	t.Run("caches first result per type", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_CACHED_NAME", "first")

		var first cachedConfig
		require.NoError(t, config.Load(&first))
		assert.Equal(t, "first", first.Name)

		t.Setenv("CONFIG_TEST_CACHED_NAME", "second")

		var second cachedConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Name)
	})

	t.Run("missing required value", func(t *testing.T) {
		os.Unsetenv("CONFIG_TEST_REQUIRED_SECRET")

		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *cachedConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		var cfg ttlConfig
		require.NoError(t, config.Parse(&cfg, config.WithEnvironment(map[string]string{})))
		assert.Equal(t, 24*time.Hour, cfg.TTL)
		assert.True(t, cfg.Enabled)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()

		vars := map[string]string{
			"VERIFY_TTL":     "2h",
			"VERIFY_ENABLED": "false",
			"TTL":            "5m",
		}

		var cfg ttlConfig
		require.NoError(t, config.Parse(&cfg, config.WithEnvironment(vars), config.WithPrefix("VERIFY_")))
		assert.Equal(t, 2*time.Hour, cfg.TTL)
		assert.False(t, cfg.Enabled)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Parallel()

		var cfg ttlConfig
		err := config.Parse(&cfg, config.WithEnvironment(map[string]string{"TTL": "soon"}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})
}
