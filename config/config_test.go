package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "nats://localhost:4222", cfg.Store.NATSURL)
	assert.Equal(t, "doc-repo", cfg.Store.Bucket)
	assert.Equal(t, 10, cfg.Selection.MaxChunks)
	assert.Equal(t, 2023, cfg.Selection.ReportingYear)
	assert.Equal(t, 8, cfg.Vision.MaxImages)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.NATSURL = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Pipeline.ConfidenceThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Selection.MaxChunks = -1
	assert.Error(t, cfg.Validate())
}

func TestConfig_Merge(t *testing.T) {
	base := DefaultConfig()
	other := &Config{}
	other.Search.URL = "https://index.example.com/query"
	other.Store.GatewayURL = "https://gw.example.com"
	other.Selection.MaxChunks = 20
	other.Vision.JobTimeout = 90 * time.Second
	other.Server.Addr = ":9090"

	base.Merge(other)

	assert.Equal(t, "https://index.example.com/query", base.Search.URL)
	assert.Equal(t, "https://gw.example.com", base.Store.GatewayURL)
	assert.Equal(t, 20, base.Selection.MaxChunks)
	assert.Equal(t, 90*time.Second, base.Vision.JobTimeout)
	assert.Equal(t, ":9090", base.Server.Addr)

	// Zero fields in other must not clobber base values.
	assert.Equal(t, "doc-repo", base.Store.Bucket)
	assert.Equal(t, 2023, base.Selection.ReportingYear)
}

func TestConfig_MergeNil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(nil)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pagelens.yaml")
	content := `
search:
  url: https://index.example.com/query
store:
  nats_url: nats://prod:4222
  gateway_url: https://gw.example.com
selection:
  max_chunks: 15
vision:
  max_images: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://index.example.com/query", cfg.Search.URL)
	assert.Equal(t, "nats://prod:4222", cfg.Store.NATSURL)
	assert.Equal(t, 15, cfg.Selection.MaxChunks)
	assert.Equal(t, 4, cfg.Vision.MaxImages)
	// Defaults survive for unset fields.
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoader_ApplyEnv(t *testing.T) {
	t.Setenv("PAGELENS_SEARCH_URL", "https://env-index.example.com")
	t.Setenv("PAGELENS_SIGNING_SECRET", "env-secret")

	l := NewLoader(nil)
	cfg := DefaultConfig()
	l.applyEnv(cfg)

	assert.Equal(t, "https://env-index.example.com", cfg.Search.URL)
	assert.Equal(t, "env-secret", cfg.Store.SigningSecret)
}

func TestSaveAndReloadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Search.URL = "https://index.example.com"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Search.URL, loaded.Search.URL)
	assert.Equal(t, cfg.Store.Bucket, loaded.Store.Bucket)
}
