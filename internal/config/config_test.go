package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTempEywaHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("EYWA_HOME", dir)
	return dir
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 384, cfg.EmbeddingModel.Dimensions())
}

func TestLoad_NoFileReturnsDefault(t *testing.T) {
	withTempEywaHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	withTempEywaHome(t)

	cfg := Default()
	cfg.EmbeddingModel = EmbeddingBGEBaseEN
	cfg.Search.FusionMode = FusionRRF
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EmbeddingBGEBaseEN, loaded.EmbeddingModel)
	assert.Equal(t, FusionRRF, loaded.Search.FusionMode)
	assert.Equal(t, 768, loaded.EmbeddingModel.Dimensions())
}

func TestLoad_RejectsUnrecognizedModel(t *testing.T) {
	dir := withTempEywaHome(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`embedding_model = "made-up-model"`), 0o644))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate_RejectsBadChunking(t *testing.T) {
	cfg := Default()
	cfg.Chunking.TargetSize = 50
	cfg.Chunking.MinChunk = 100
	assert.Error(t, cfg.Validate())
}
