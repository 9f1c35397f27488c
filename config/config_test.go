package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("AUCTIONHOUSE_TEST_STRING", "custom")
	assert.Equal(t, "custom", getEnvWithDefault("AUCTIONHOUSE_TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", getEnvWithDefault("AUCTIONHOUSE_TEST_STRING_UNSET", "fallback"))
}

func TestGetEnvIntWithDefault(t *testing.T) {
	t.Setenv("AUCTIONHOUSE_TEST_INT", "42")
	assert.Equal(t, 42, getEnvIntWithDefault("AUCTIONHOUSE_TEST_INT", 7))
	assert.Equal(t, 7, getEnvIntWithDefault("AUCTIONHOUSE_TEST_INT_UNSET", 7))

	t.Setenv("AUCTIONHOUSE_TEST_INT_BAD", "not-a-number")
	assert.Equal(t, 7, getEnvIntWithDefault("AUCTIONHOUSE_TEST_INT_BAD", 7), "an unparsable value falls back to the default")
}

func TestGetEnvBoolWithDefault(t *testing.T) {
	t.Setenv("AUCTIONHOUSE_TEST_BOOL", "true")
	assert.True(t, getEnvBoolWithDefault("AUCTIONHOUSE_TEST_BOOL", false))
	assert.False(t, getEnvBoolWithDefault("AUCTIONHOUSE_TEST_BOOL_UNSET", false))
}

func TestGetEnvDurationWithDefault(t *testing.T) {
	t.Setenv("AUCTIONHOUSE_TEST_DURATION", "15s")
	assert.Equal(t, 15*time.Second, getEnvDurationWithDefault("AUCTIONHOUSE_TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, getEnvDurationWithDefault("AUCTIONHOUSE_TEST_DURATION_UNSET", time.Minute))
}

func TestNewTestConfig_IsUsableWithoutExternalDependencies(t *testing.T) {
	cfg := NewTestConfig()

	require.Equal(t, "test", cfg.Environment)
	assert.Equal(t, int64(1000), cfg.StartingBalance)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, 5, cfg.AntiSnipeMaxExtensions)
}

func TestSetTestConfig_OverridesGlobalInstance(t *testing.T) {
	defer ResetConfig()

	custom := NewTestConfig()
	custom.HTTPAddr = ":9999"
	SetTestConfig(custom)

	got := Get()
	assert.Equal(t, ":9999", got.HTTPAddr)
}
