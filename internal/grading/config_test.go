package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) Getenv {
	return func(key string) string { return vars[key] }
}

func TestResolveConfigEnvOverrideWins(t *testing.T) {
	getenv := envOf(map[string]string{
		"GRADING_MODELS":    "model-a, model-b",
		"GRADING_RUN_COUNT": "4",
		"GRADING_TEST_MODE": "true",
	})
	prod := ProductionConfig()

	cfg := ResolveConfig(getenv, &prod)

	require.Len(t, cfg.Runs, 4)
	assert.Equal(t, "model-a", cfg.Runs[0].Model)
	assert.Equal(t, "model-b", cfg.Runs[1].Model)
	// Short model lists pad by repeating the first model.
	assert.Equal(t, "model-a", cfg.Runs[2].Model)
	assert.Equal(t, "model-a", cfg.Runs[3].Model)
}

func TestResolveConfigClampsRunCount(t *testing.T) {
	cfg := ResolveConfig(envOf(map[string]string{
		"GRADING_MODELS":    "m",
		"GRADING_RUN_COUNT": "9",
	}), nil)
	assert.Len(t, cfg.Runs, MaxRuns)

	cfg = ResolveConfig(envOf(map[string]string{
		"GRADING_MODELS":    "m",
		"GRADING_RUN_COUNT": "1",
	}), nil)
	assert.Len(t, cfg.Runs, MinRuns)
}

func TestResolveConfigTestMode(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE"} {
		cfg := ResolveConfig(envOf(map[string]string{"GRADING_TEST_MODE": v}), nil)
		assert.Equal(t, TestingConfig().Runs, cfg.Runs, "GRADING_TEST_MODE=%s", v)
	}
}

func TestResolveConfigProductionThenFallback(t *testing.T) {
	prod := ProductionConfig()
	cfg := ResolveConfig(envOf(nil), &prod)
	assert.Equal(t, prod.Runs, cfg.Runs)
	assert.True(t, cfg.SynthesizeFeedback)

	cfg = ResolveConfig(envOf(nil), nil)
	assert.Equal(t, FallbackConfig().Runs, cfg.Runs)
}

func TestResolveConfigRunCountBoundsEverySource(t *testing.T) {
	prod := ProductionConfig()
	prod.Runs = append(prod.Runs, prod.Runs...) // 6 runs

	cfg := ResolveConfig(envOf(nil), &prod)

	assert.Len(t, cfg.Runs, MaxRuns)
}
