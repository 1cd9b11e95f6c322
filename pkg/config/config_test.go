package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvRemoteURL, EnvAccessKey, EnvDebug, EnvGlobalIgnore} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "codejoiner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: warn
join:
  ignore: ["dist/", "*.min.js"]
  workers: 2
remote:
  url: http://localhost:9000
  timeout: 5s
serve:
  max_upload_mb: 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, []string{"dist/", "*.min.js"}, cfg.Join.Ignore)
	assert.Equal(t, 2, cfg.Join.Workers)
	assert.Zero(t, cfg.Join.MaxFileSizeKB, "unset keys keep defaults")
	assert.Equal(t, "http://localhost:9000", cfg.Remote.URL)
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, 2, cfg.Serve.MaxUploadMB)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvRemoteURL, "http://remote.test")
	t.Setenv(EnvAccessKey, "k")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvGlobalIgnore, "/etc/joinignore")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://remote.test", cfg.Remote.URL)
	assert.Equal(t, "k", cfg.Remote.AccessKey)
	assert.Equal(t, "k", cfg.Serve.AccessKey)
	assert.True(t, cfg.Logging.Debug)
	assert.Equal(t, "/etc/joinignore", cfg.Join.GlobalIgnoreFile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "join: [",
		"bad level":    "logging:\n  level: loud\n",
		"bad timeout":  "remote:\n  timeout: soon\n",
		"zero uploads": "serve:\n  max_upload_mb: 0\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "codejoiner.yaml")
	cfg := DefaultConfig()
	cfg.Serve.Addr = ":9999"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", loaded.Serve.Addr)
}
