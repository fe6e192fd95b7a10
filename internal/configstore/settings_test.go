package configstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRouterConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultRouterConfig()
	assert.Equal(t, 5, cfg.UnhealthyErrorThreshold)
	assert.InDelta(t, 5e-5, cfg.CostCeilingPerChar, 1e-12)
	assert.InDelta(t, 1.0, cfg.BalancedWeights.Quality+cfg.BalancedWeights.Speed+cfg.BalancedWeights.Cost, 1e-9)
}

func TestLoadRouterConfigRejectsUnbalancedWeights(t *testing.T) {
	os.Setenv("BALANCED_WEIGHT_QUALITY", "0.9")
	os.Setenv("BALANCED_WEIGHT_SPEED", "0.3")
	os.Setenv("BALANCED_WEIGHT_COST", "0.3")
	defer func() {
		os.Unsetenv("BALANCED_WEIGHT_QUALITY")
		os.Unsetenv("BALANCED_WEIGHT_SPEED")
		os.Unsetenv("BALANCED_WEIGHT_COST")
	}()

	_, err := LoadRouterConfig()
	require.Error(t, err)
}

func TestLoadRouterConfigAcceptsOverrides(t *testing.T) {
	os.Setenv("UNHEALTHY_ERROR_THRESHOLD", "3")
	defer os.Unsetenv("UNHEALTHY_ERROR_THRESHOLD")

	cfg, err := LoadRouterConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.UnhealthyErrorThreshold)
}
