// Package config loads kubefetch settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"k8s.io/client-go/tools/clientcmd"
)

// Config holds all kubefetch configuration. Command line flags override these values.
type Config struct {
	// GitLab
	Token  string `env:"GITLAB_TOKEN"`
	CAFile string `env:"GITLAB_CA_FILE"`

	// Shared kubeconfig the environments are merged into
	Kubeconfig string `env:"KUBEFETCH_KUBECONFIG"`

	// Artifact subdirectory searched first for <env>-oidc-kubeconfig
	ArtifactDir string `env:"KUBEFETCH_ARTIFACT_DIR" envDefault:"kubeconfig"`

	// Timeouts
	RequestTimeout  time.Duration `env:"KUBEFETCH_REQUEST_TIMEOUT" envDefault:"30s"`
	DownloadTimeout time.Duration `env:"KUBEFETCH_DOWNLOAD_TIMEOUT" envDefault:"5m"`
	LockTimeout     time.Duration `env:"KUBEFETCH_LOCK_TIMEOUT" envDefault:"30s"`

	// Logging
	LogLevel string `env:"KUBEFETCH_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := new(Config)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	if cfg.Kubeconfig == "" {
		cfg.Kubeconfig = clientcmd.RecommendedHomeFile
	}
	return cfg, nil
}

// CACert reads the configured CA bundle, if any
func (c *Config) CACert() ([]byte, error) {
	if c.CAFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read GITLAB_CA_FILE: %w", err)
	}
	return data, nil
}
