package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/touchstone3d/semseg/pkg/metrics"
	"github.com/touchstone3d/semseg/pkg/pointcloud"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"NUM_POINTS", "PC_ATTRIBS", "LISTING", "NUM_CLASSES", "CLIENT_TIMEOUT"} {
		t.Setenv(key, "")
	}
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2048, cfg.NumPoints)
	assert.Equal(t, "xyz", cfg.Attributes)
	assert.Equal(t, "sorted", cfg.Listing)
	assert.Equal(t, 13, cfg.NumClasses)
	assert.Equal(t, 30*time.Second, cfg.ClientTimeout)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("NUM_POINTS", "4096")
	t.Setenv("MODE", "test")
	t.Setenv("PC_AUGM", "true")
	t.Setenv("SEED", "77")
	t.Setenv("NUM_CLASSES", "20")
	t.Setenv("ENVIRONMENT", "prod")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.NumPoints)
	assert.Equal(t, "test", cfg.Mode)
	assert.True(t, cfg.Augment)
	assert.Equal(t, uint64(77), cfg.Seed)
	assert.Equal(t, 20, cfg.NumClasses)
	assert.Equal(t, ProdCacheConfig, NewCacheConfig(cfg.Environment))
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	t.Setenv("NUM_POINTS", "many")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAugmentationConfig(t *testing.T) {
	cfg, err := LoadAugmentationConfig("")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled())

	cfg, err = LoadAugmentationConfig(writeFile(t, "augm.json", `{"scale": [0.8, 1.2], "jitter": 0.01}`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Scale)
	assert.Equal(t, [2]float64{0.8, 1.2}, *cfg.Scale)
	assert.Nil(t, cfg.Rot)
	require.NotNil(t, cfg.Jitter)
	assert.Equal(t, 0.01, *cfg.Jitter)

	_, err = LoadAugmentationConfig(writeFile(t, "bad.json", `{"scale": [2, 1]}`))
	assert.ErrorIs(t, err, pointcloud.ErrInvalidAugmentation)

	_, err = LoadAugmentationConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadSimilarityMatrix(t *testing.T) {
	sim, err := LoadSimilarityMatrix("", 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sim.Similarity().At(2, 2))

	sim, err = LoadSimilarityMatrix(writeFile(t, "sim.json", `[[1, 0.3], [0.3, 1]]`), 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, sim.Dissimilarity().At(0, 1), 1e-12)

	_, err = LoadSimilarityMatrix(writeFile(t, "sim.json", `[[1, 0.3], [0.3, 1]]`), 3)
	assert.ErrorIs(t, err, metrics.ErrInvalidSimilarity)

	_, err = LoadSimilarityMatrix(writeFile(t, "sim.json", `[[1, -0.3], [0.3, 1]]`), 2)
	assert.ErrorIs(t, err, metrics.ErrInvalidSimilarity)
}
