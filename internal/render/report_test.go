package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sourceplane/kubefetch/internal/model"
	"github.com/sourceplane/kubefetch/internal/normalize"
	"github.com/sourceplane/kubefetch/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult(merged bool) *runner.Result {
	return &runner.Result{
		Ref: model.JobReference{
			Scheme:          "https",
			Host:            "gitlab.example.com",
			ProjectPath:     "platform/prod",
			EnvironmentName: "prod",
			JobID:           12,
		},
		ProjectID:  99,
		Kubeconfig: "kubeconfig/prod-oidc-kubeconfig",
		Selection:  &normalize.Selection{Context: "eks", Cluster: "eks", User: "sso", OIDC: true},
		Merged:     merged,
	}
}

func TestNewReport(t *testing.T) {
	report := NewReport(sampleResult(true), "/home/dev/.kube/config")

	assert.Equal(t, "https://gitlab.example.com/platform/prod/-/jobs/12", report.JobURL)
	assert.Equal(t, 99, report.ProjectID)
	assert.Equal(t, "prod", report.Environment)
	assert.Equal(t, "sso", report.User)
	assert.True(t, report.OIDC)
	assert.Equal(t, "/home/dev/.kube/config", report.SharedPath)

	dry := NewReport(sampleResult(false), "/home/dev/.kube/config")
	assert.Empty(t, dry.SharedPath)
	assert.False(t, dry.Merged)
}

func TestReportWrite(t *testing.T) {
	dir := t.TempDir()
	report := NewReport(sampleResult(true), "/tmp/config")

	jsonPath := filepath.Join(dir, "out", "report.json")
	require.NoError(t, report.Write(jsonPath))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON Report
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, *report, fromJSON)

	yamlPath := filepath.Join(dir, "report.yaml")
	require.NoError(t, report.Write(yamlPath))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, *report, fromYAML)
}

func TestDebugDump(t *testing.T) {
	out := DebugDump(sampleResult(false).Ref)

	assert.Contains(t, out, "Job URL: https://gitlab.example.com/platform/prod/-/jobs/12")
	assert.Contains(t, out, "API:         https://gitlab.example.com/api/v4")
	assert.Contains(t, out, "Environment: prod")
}
