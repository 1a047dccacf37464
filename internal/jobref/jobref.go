// Package jobref extracts the project, environment and job id from a GitLab job URL.
package jobref

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/sourceplane/kubefetch/internal/model"
	"golang.org/x/net/idna"
)

const projectSeparator = "/-/"

var (
	jobsMarker = regexp.MustCompile(`/-/jobs/\d+`)
	jobID      = regexp.MustCompile(`/jobs/(\d+)`)
)

// Parse splits a job URL of the form scheme://host/<project-path>/-/jobs/<id>[...]
// into a JobReference. The environment name is the last segment of the project path.
func Parse(raw string) (model.JobReference, error) {
	var ref model.JobReference

	raw = strings.TrimSpace(raw)
	if !jobsMarker.MatchString(raw) {
		return ref, fmt.Errorf("%w: %q does not contain /-/jobs/<id>", model.ErrMalformedURL, raw)
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return ref, fmt.Errorf("%w: %q has no scheme", model.ErrMalformedURL, raw)
	}

	host, rest, ok := strings.Cut(rest, "/")
	if !ok || host == "" {
		return ref, fmt.Errorf("%w: %q has no host", model.ErrMalformedURL, raw)
	}
	if err := validateHost(scheme, host); err != nil {
		return ref, err
	}

	projectPath, _, ok := strings.Cut("/"+rest, projectSeparator)
	projectPath = strings.Trim(projectPath, "/")
	if !ok || projectPath == "" {
		return ref, fmt.Errorf("%w: %q has no project path", model.ErrMalformedURL, raw)
	}

	matches := jobID.FindAllStringSubmatch(rest, -1)
	if len(matches) == 0 {
		return ref, fmt.Errorf("%w: %q has no /jobs/<id> after the host", model.ErrMalformedURL, raw)
	}
	id, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return ref, fmt.Errorf("%w: invalid job id in %q: %v", model.ErrMalformedURL, raw, err)
	}

	ref = model.JobReference{
		Scheme:          scheme,
		Host:            host,
		ProjectPath:     projectPath,
		EnvironmentName: path.Base(projectPath),
		JobID:           id,
	}
	return ref, nil
}

// validateHost rejects hosts that are not valid IDNA lookup names
func validateHost(scheme, host string) error {
	parsed, err := url.Parse(scheme + "://" + host)
	if err != nil {
		return fmt.Errorf("%w: invalid host %s: %v", model.ErrMalformedURL, host, err)
	}
	if _, err := idna.Lookup.ToASCII(parsed.Hostname()); err != nil {
		return fmt.Errorf("%w: invalid hostname %s: %v", model.ErrMalformedURL, parsed.Hostname(), err)
	}
	return nil
}
