package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"WS_PROVIDER_URL", "HISTORY_SIZE", "ERAS_PER_DAY", "START_DELAY_MS", "POLLING_TIME_MS",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_MissingWSProviderURLIsFatal(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("WS_PROVIDER_URL", "wss://example.invalid")
	defer os.Unsetenv("WS_PROVIDER_URL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint32(84), cfg.HistorySize)
	assert.Equal(t, uint32(4), cfg.ErasPerDay)
	assert.Equal(t, uint32(12), cfg.TokenDecimals)
}
