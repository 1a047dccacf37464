package model

import "fmt"

// JobReference identifies a single CI job and the environment it deploys.
type JobReference struct {
	Scheme          string `json:"scheme" yaml:"scheme"`
	Host            string `json:"host" yaml:"host"`
	ProjectPath     string `json:"projectPath" yaml:"projectPath"`
	EnvironmentName string `json:"environmentName" yaml:"environmentName"`
	JobID           int    `json:"jobId" yaml:"jobId"`
}

// BaseURL returns the origin the job URL was served from
func (r JobReference) BaseURL() string {
	scheme := r.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func (r JobReference) String() string {
	return fmt.Sprintf("%s/%s job %d (env %s)", r.Host, r.ProjectPath, r.JobID, r.EnvironmentName)
}

// URL returns the canonical job page URL
func (r JobReference) URL() string {
	return fmt.Sprintf("%s/%s/-/jobs/%d", r.BaseURL(), r.ProjectPath, r.JobID)
}
