package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sourceplane/kubefetch/internal/model"
	"github.com/sourceplane/kubefetch/internal/runner"
	"gopkg.in/yaml.v3"
)

// Report summarizes a fetch without any credential material
type Report struct {
	JobURL      string `json:"jobURL" yaml:"jobURL"`
	Host        string `json:"host" yaml:"host"`
	Project     string `json:"project" yaml:"project"`
	ProjectID   int    `json:"projectID" yaml:"projectID"`
	JobID       int    `json:"jobID" yaml:"jobID"`
	Environment string `json:"environment" yaml:"environment"`
	Kubeconfig  string `json:"kubeconfig" yaml:"kubeconfig"`
	Context     string `json:"sourceContext,omitempty" yaml:"sourceContext,omitempty"`
	Cluster     string `json:"sourceCluster,omitempty" yaml:"sourceCluster,omitempty"`
	User        string `json:"sourceUser,omitempty" yaml:"sourceUser,omitempty"`
	OIDC        bool   `json:"oidc" yaml:"oidc"`
	SharedPath  string `json:"sharedKubeconfig,omitempty" yaml:"sharedKubeconfig,omitempty"`
	Merged      bool   `json:"merged" yaml:"merged"`
}

// NewReport builds a report from a completed run
func NewReport(result *runner.Result, sharedPath string) *Report {
	report := &Report{
		JobURL:      result.Ref.URL(),
		Host:        result.Ref.Host,
		Project:     result.Ref.ProjectPath,
		ProjectID:   result.ProjectID,
		JobID:       result.Ref.JobID,
		Environment: result.Ref.EnvironmentName,
		Kubeconfig:  result.Kubeconfig,
		Merged:      result.Merged,
	}
	if result.Selection != nil {
		report.Context = result.Selection.Context
		report.Cluster = result.Selection.Cluster
		report.User = result.Selection.User
		report.OIDC = result.Selection.OIDC
	}
	if result.Merged {
		report.SharedPath = sharedPath
	}
	return report
}

// RenderJSON renders the report as JSON
func (r *Report) RenderJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// RenderYAML renders the report as YAML
func (r *Report) RenderYAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// Write writes the report to path, as YAML for .yaml/.yml and JSON otherwise
func (r *Report) Write(path string) error {
	var data []byte
	var err error

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = r.RenderYAML()
	default:
		data, err = r.RenderJSON()
	}
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// DebugDump describes a parsed job reference
func DebugDump(ref model.JobReference) string {
	output := fmt.Sprintf("Job URL: %s\n", ref.URL())
	output += fmt.Sprintf("  Scheme:      %s\n", ref.Scheme)
	output += fmt.Sprintf("  Host:        %s\n", ref.Host)
	output += fmt.Sprintf("  API:         %s/api/v4\n", ref.BaseURL())
	output += fmt.Sprintf("  Project:     %s\n", ref.ProjectPath)
	output += fmt.Sprintf("  Environment: %s\n", ref.EnvironmentName)
	output += fmt.Sprintf("  Job ID:      %d\n", ref.JobID)
	return output
}
