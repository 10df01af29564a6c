package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "gpt-4o-mini", cfg.GenerationModel)
	assert.Equal(t, 2*time.Minute, cfg.GenerationTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.EvaluationDelay)
	assert.Equal(t, time.Duration(0), cfg.BackupInterval)
	assert.False(t, cfg.R2Configured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GENERATION_TIMEOUT", "30s")
	t.Setenv("EVALUATION_MODEL", "gpt-4o")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, "gpt-4o", cfg.EvaluationModel)
	assert.Equal(t, "gpt-4o-mini", cfg.GenerationModel)
}

func TestR2Configured(t *testing.T) {
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_ACCESS_KEY_SECRET", "secret")
	t.Setenv("R2_BUCKET_NAME", "bucket")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.R2Configured())
}
