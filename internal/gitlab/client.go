// Package gitlab talks to the GitLab REST API to resolve projects and download job artifacts.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sourceplane/kubefetch/internal/artifact"
	"github.com/sourceplane/kubefetch/internal/model"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	tokenHeader = "PRIVATE-TOKEN"
	userAgent   = "kubefetch"

	DefaultRequestTimeout  = 30 * time.Second
	DefaultDownloadTimeout = 5 * time.Minute
)

// Client resolves projects and fetches job artifacts from a GitLab instance
type Client struct {
	token           string
	http            *http.Client
	logger          *zap.Logger
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration

	optErr error
}

// NewClient creates a client authenticating with token. An empty token is
// rejected before any request can be made.
func NewClient(token string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: set GITLAB_TOKEN to a token with read_api scope", model.ErrMissingCredential)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		token:           token,
		http:            &http.Client{},
		logger:          logger,
		RequestTimeout:  DefaultRequestTimeout,
		DownloadTimeout: DefaultDownloadTimeout,
	}
	for _, fn := range opts {
		fn(c)
	}
	if c.optErr != nil {
		return nil, c.optErr
	}
	return c, nil
}

// ResolveProjectID looks up the numeric id of ref's project by its URL-encoded path
func (c *Client) ResolveProjectID(ctx context.Context, ref model.JobReference) (int, error) {
	if c.token == "" {
		return 0, model.ErrMissingCredential
	}

	endpoint := fmt.Sprintf("%s/api/v4/projects/%s", ref.BaseURL(), url.PathEscape(ref.ProjectPath))

	ctx, cancel := context.WithTimeout(ctx, c.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrProjectNotFound, err)
	}

	c.logger.Debug("resolving project", zap.String("host", ref.Host), zap.String("project", ref.ProjectPath))
	body, err := c.doRequest(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", model.ErrProjectNotFound, ref.ProjectPath, err)
	}

	id := gjson.GetBytes(body, "id")
	if id.Type != gjson.Number || id.Int() <= 0 {
		return 0, fmt.Errorf("%w: %s: response has no project id", model.ErrProjectNotFound, ref.ProjectPath)
	}

	c.logger.Debug("resolved project",
		zap.String("project", ref.ProjectPath),
		zap.Int64("id", id.Int()),
		zap.String("webURL", gjson.GetBytes(body, "web_url").String()))
	return int(id.Int()), nil
}

// FetchJobArtifacts downloads the artifact archive of ref's job. The body must
// be a structurally valid archive.
func (c *Client) FetchJobArtifacts(ctx context.Context, ref model.JobReference, projectID int) ([]byte, error) {
	if c.token == "" {
		return nil, model.ErrMissingCredential
	}

	endpoint := fmt.Sprintf("%s/api/v4/projects/%d/jobs/%d/artifacts", ref.BaseURL(), projectID, ref.JobID)

	ctx, cancel := context.WithTimeout(ctx, c.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrArtifactDownloadFailed, err)
	}

	c.logger.Debug("downloading artifacts", zap.Int("project", projectID), zap.Int("job", ref.JobID))
	body, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%w: job %d: %v", model.ErrArtifactDownloadFailed, ref.JobID, err)
	}

	format, err := artifact.Verify(body)
	if err != nil {
		return nil, fmt.Errorf("%w: job %d: %v", model.ErrArtifactDownloadFailed, ref.JobID, err)
	}

	c.logger.Debug("downloaded artifacts", zap.Int("bytes", len(body)), zap.String("format", string(format)))
	return body, nil
}
