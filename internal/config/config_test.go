package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points ENV_FILE at an empty directory and clears the keys Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, ".env"))
	for _, key := range []string{
		"UPLOAD_SERVER_URL", "UPLOAD_ENDPOINT", "UPLOAD_TIMEOUT", "UPLOAD_INSECURE_TLS",
		"UPLOAD_CA_FILE", "PORT", "GATEWAY_TLS", "DISCOVERY_ENABLED", "DISCOVERY_ADDR",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/upload", cfg.UploadURL())
	assert.False(t, cfg.ServerURLConfigured)
	assert.Equal(t, "8080", cfg.Port)
	assert.Zero(t, cfg.Timeout)
	assert.False(t, cfg.Discovery.Enabled)
	assert.Equal(t, ":9999", cfg.Discovery.Addr)
	assert.Equal(t, 5*time.Second, cfg.Discovery.Timeout)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "uploader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_url: https://media.example.com/
endpoint: upload/
timeout: 30s
insecure_tls: true
discovery:
  enabled: true
  timeout: 2s
`), 0o644))
	t.Setenv("PORT", "9090")
	t.Setenv("UPLOAD_ENDPOINT", "api/files")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://media.example.com/api/files", cfg.UploadURL())
	assert.True(t, cfg.ServerURLConfigured)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.InsecureTLS)
	assert.True(t, cfg.Discovery.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Discovery.Timeout)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "uploader.env")
	require.NoError(t, os.WriteFile(envFile, []byte("UPLOAD_SERVER_URL=http://10.0.0.5:8000\n"), 0o644))
	t.Setenv("ENV_FILE", envFile)
	// godotenv does not override variables that are already set, even to "".
	require.NoError(t, os.Unsetenv("UPLOAD_SERVER_URL"))
	t.Cleanup(func() { os.Unsetenv("UPLOAD_SERVER_URL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000/api/upload", cfg.UploadURL())
	assert.True(t, cfg.ServerURLConfigured)
}

func TestLoadServerURLFromEnvIsConfigured(t *testing.T) {
	isolate(t)
	t.Setenv("UPLOAD_SERVER_URL", DefaultServerURL)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.ServerURLConfigured, "an explicit value counts even when it equals the default")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "bad timeout", env: map[string]string{"UPLOAD_TIMEOUT": "soon"}},
		{name: "negative timeout", env: map[string]string{"UPLOAD_TIMEOUT": "-1s"}},
		{name: "bad bool", env: map[string]string{"UPLOAD_INSECURE_TLS": "maybe"}},
		{name: "bad discovery flag", env: map[string]string{"DISCOVERY_ENABLED": "sometimes"}},
		{name: "bad yaml", yaml: "server_url: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = filepath.Join(dir, "bad.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			}

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
