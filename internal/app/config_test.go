package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, 30*time.Minute, cfg.InactivityTimeout)
	require.Equal(t, 10, cfg.BcryptCost)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("ENTITLEMENT_APP_ENV", "production")
	t.Setenv("ENTITLEMENT_INACTIVITY_TIMEOUT", "90s")
	t.Setenv("ENTITLEMENT_BCRYPT_COST", "12")
	t.Setenv("ENTITLEMENT_SCRIPT_PATH", "commands.script")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 90*time.Second, cfg.InactivityTimeout)
	require.Equal(t, 12, cfg.BcryptCost)
	require.Equal(t, "commands.script", cfg.ScriptPath)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("ENTITLEMENT_INACTIVITY_TIMEOUT", "-1m")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsBcryptCostOutOfRange(t *testing.T) {
	t.Setenv("ENTITLEMENT_BCRYPT_COST", "99")
	_, err := LoadConfig()
	require.Error(t, err)
}
