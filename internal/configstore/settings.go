package configstore

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tesseract-hub/translation-router/internal/types"
)

// RouterConfig is the six recognized options of spec.md §6, loaded
// from the environment with the teacher's getEnv/getEnvAsInt helper
// shape (internal/config/config.go).
type RouterConfig struct {
	HealthCheckInterval   time.Duration
	AdapterCallTimeout    time.Duration
	CacheTTL              time.Duration
	UnhealthyErrorThreshold int
	CostCeilingPerChar    float64
	BalancedWeights       types.BalancedWeights
}

// DefaultRouterConfig mirrors spec.md §6's defaults exactly.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		HealthCheckInterval:     60 * time.Second,
		AdapterCallTimeout:      30 * time.Second,
		CacheTTL:                3600 * time.Second,
		UnhealthyErrorThreshold: 5,
		CostCeilingPerChar:      5e-5,
		BalancedWeights:         types.BalancedWeights{Quality: 0.4, Speed: 0.3, Cost: 0.3},
	}
}

// LoadRouterConfig reads overrides from the environment, falling back
// to spec defaults. It validates that BalancedWeights sum to 1
// (spec.md §6).
func LoadRouterConfig() (RouterConfig, error) {
	cfg := DefaultRouterConfig()

	cfg.HealthCheckInterval = getEnvAsDuration("HEALTH_CHECK_INTERVAL_SECONDS", cfg.HealthCheckInterval)
	cfg.AdapterCallTimeout = getEnvAsDuration("ADAPTER_CALL_TIMEOUT_SECONDS", cfg.AdapterCallTimeout)
	cfg.CacheTTL = getEnvAsDuration("CACHE_TTL_SECONDS", cfg.CacheTTL)
	cfg.UnhealthyErrorThreshold = getEnvAsInt("UNHEALTHY_ERROR_THRESHOLD", cfg.UnhealthyErrorThreshold)
	cfg.CostCeilingPerChar = getEnvAsFloat("COST_CEILING_PER_CHAR", cfg.CostCeilingPerChar)

	quality := getEnvAsFloat("BALANCED_WEIGHT_QUALITY", cfg.BalancedWeights.Quality)
	speed := getEnvAsFloat("BALANCED_WEIGHT_SPEED", cfg.BalancedWeights.Speed)
	cost := getEnvAsFloat("BALANCED_WEIGHT_COST", cfg.BalancedWeights.Cost)
	sum := quality + speed + cost
	if sum < 0.999 || sum > 1.001 {
		return RouterConfig{}, fmt.Errorf("configstore: balanced_weights must sum to 1, got %f", sum)
	}
	cfg.BalancedWeights = types.BalancedWeights{Quality: quality, Speed: speed, Cost: cost}

	return cfg, nil
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
