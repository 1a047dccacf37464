package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sourceplane/kubefetch/internal/model"
	"gopkg.in/yaml.v3"
)

// LoadKubeConfig loads and parses a kubeconfig YAML file. The raw bytes are
// returned alongside so callers can run schema validation on the same input.
func LoadKubeConfig(path string) (*model.KubeConfig, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read kubeconfig file: %w", err)
	}

	cfg, err := ParseKubeConfig(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// ParseKubeConfig parses kubeconfig YAML (JSON is accepted as a YAML subset)
func ParseKubeConfig(data []byte) (*model.KubeConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("kubeconfig is empty")
	}

	var cfg model.KubeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse kubeconfig YAML: %w", err)
	}

	return &cfg, nil
}

// RenderKubeConfig encodes a kubeconfig as YAML with two-space indentation
func RenderKubeConfig(cfg *model.KubeConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to render kubeconfig: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render kubeconfig: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteKubeConfig writes a kubeconfig to path readable by the owner only
func WriteKubeConfig(cfg *model.KubeConfig, path string) error {
	data, err := RenderKubeConfig(cfg)
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write kubeconfig to %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict permissions on %s: %w", path, err)
	}

	return nil
}
