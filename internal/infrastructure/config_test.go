package infrastructure_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"rbac-console/internal/infrastructure"
)

func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

func fixturePath(t *testing.T, relPath string) string {
	t.Helper()
	root, err := projectRoot()
	if err != nil {
		t.Fatalf("locate project root failed: %v", err)
	}
	return filepath.Join(root, relPath)
}

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONSOLE_CONFIG_FILE", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("AUTH_MODE", "")

	cfg, err := infrastructure.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5002", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, infrastructure.StorageFile, cfg.Storage)
	assert.Equal(t, infrastructure.AuthModeNone, cfg.AuthMode)
	assert.True(t, cfg.AppUpdateFallback)
}

func TestLoadConfig_YAMLThenEnvOverride(t *testing.T) {
	path := writeYAML(t, "api_base_url: http://iam.internal\napi_timeout: 3s\nstorage_backend: memory\nsession_redirect_delay: 250ms\n")
	t.Setenv("CONSOLE_CONFIG_FILE", path)
	t.Setenv("API_BASE_URL", "http://override.local")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("AUTH_MODE", "")
	t.Setenv("API_TIMEOUT", "")

	cfg, err := infrastructure.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://override.local", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, infrastructure.StorageMemory, cfg.Storage)
	assert.Equal(t, 250*time.Millisecond, cfg.SessionRedirectDelay)
}

func TestLoadConfig_DurationsAcceptMilliseconds(t *testing.T) {
	t.Setenv("CONSOLE_CONFIG_FILE", "")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("AUTH_MODE", "")
	t.Setenv("API_TIMEOUT", "10000")

	cfg, err := infrastructure.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad storage":        {"STORAGE_BACKEND": "etcd"},
		"dynamodb no table":  {"STORAGE_BACKEND": "dynamodb", "SESSION_TABLE": "", "AWS_REGION": ""},
		"redis no addr":      {"STORAGE_BACKEND": "redis", "REDIS_ADDR": ""},
		"api key missing":    {"STORAGE_BACKEND": "memory", "AUTH_MODE": "api_key", "CONSOLE_API_KEY": ""},
		"bad auth mode":      {"STORAGE_BACKEND": "memory", "AUTH_MODE": "cognito"},
		"bad fallback":       {"STORAGE_BACKEND": "memory", "AUTH_MODE": "", "APP_UPDATE_FALLBACK": "maybe"},
		"bad redirect delay": {"STORAGE_BACKEND": "memory", "AUTH_MODE": "", "SESSION_REDIRECT_DELAY": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("CONSOLE_CONFIG_FILE", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := infrastructure.LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestExampleConfigParsesAndValidates(t *testing.T) {
	path := fixturePath(t, "configs/console.example.yaml")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	require.NotEmpty(t, doc.Content)

	t.Setenv("CONSOLE_CONFIG_FILE", path)
	for _, k := range []string{"API_BASE_URL", "STORAGE_BACKEND", "AUTH_MODE", "API_TIMEOUT", "SESSION_FILE"} {
		t.Setenv(k, "")
	}
	cfg, err := infrastructure.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "security-service-frontend", cfg.DefaultAppName)
	assert.Equal(t, 2*time.Minute, cfg.RefreshWindow)
}
