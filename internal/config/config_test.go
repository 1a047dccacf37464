package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"GITLAB_TOKEN", "GITLAB_CA_FILE", "KUBEFETCH_KUBECONFIG", "KUBEFETCH_ARTIFACT_DIR",
		"KUBEFETCH_REQUEST_TIMEOUT", "KUBEFETCH_DOWNLOAD_TIMEOUT", "KUBEFETCH_LOCK_TIMEOUT", "KUBEFETCH_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{
			name:   "token is empty",
			check:  func(c *Config) bool { return c.Token == "" },
			expect: "",
		},
		{
			name:   "kubeconfig defaults to home file",
			check:  func(c *Config) bool { return c.Kubeconfig == clientcmd.RecommendedHomeFile },
			expect: clientcmd.RecommendedHomeFile,
		},
		{
			name:   "default artifact dir",
			check:  func(c *Config) bool { return c.ArtifactDir == "kubeconfig" },
			expect: "kubeconfig",
		},
		{
			name:   "default request timeout",
			check:  func(c *Config) bool { return c.RequestTimeout == 30*time.Second },
			expect: "30s",
		},
		{
			name:   "default download timeout",
			check:  func(c *Config) bool { return c.DownloadTimeout == 5*time.Minute },
			expect: "5m",
		},
		{
			name:   "default log level is info",
			check:  func(c *Config) bool { return c.LogLevel == "info" },
			expect: "info",
		},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GITLAB_TOKEN", "glpat-abc")
	t.Setenv("KUBEFETCH_KUBECONFIG", "/tmp/shared")
	t.Setenv("KUBEFETCH_DOWNLOAD_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "glpat-abc", cfg.Token)
	assert.Equal(t, "/tmp/shared", cfg.Kubeconfig)
	assert.Equal(t, 90*time.Second, cfg.DownloadTimeout)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("KUBEFETCH_LOCK_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestCACert(t *testing.T) {
	cfg := &Config{}
	data, err := cfg.CACert()
	require.NoError(t, err)
	assert.Nil(t, data)

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("pem"), 0o600))
	cfg.CAFile = path
	data, err = cfg.CACert()
	require.NoError(t, err)
	assert.Equal(t, "pem", string(data))

	cfg.CAFile = filepath.Join(t.TempDir(), "missing.pem")
	_, err = cfg.CACert()
	assert.Error(t, err)
}
