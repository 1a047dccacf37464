package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sourceplane/kubefetch/internal/artifact"
	"github.com/sourceplane/kubefetch/internal/jobref"
	"github.com/sourceplane/kubefetch/internal/loader"
	"github.com/sourceplane/kubefetch/internal/merge"
	"github.com/sourceplane/kubefetch/internal/model"
	"github.com/sourceplane/kubefetch/internal/normalize"
	"github.com/sourceplane/kubefetch/internal/schema"
	"go.uber.org/zap"
)

// Stage names reported in errors
const (
	StageParse     = "parse job URL"
	StageResolve   = "resolve project"
	StageDownload  = "download artifacts"
	StageExtract   = "extract kubeconfig"
	StageNormalize = "normalize kubeconfig"
	StageMerge     = "merge kubeconfig"
)

// ArtifactSource is the CI system the kubeconfig is fetched from
type ArtifactSource interface {
	ResolveProjectID(ctx context.Context, ref model.JobReference) (int, error)
	FetchJobArtifacts(ctx context.Context, ref model.JobReference, projectID int) ([]byte, error)
}

// Result describes a completed run
type Result struct {
	Ref        model.JobReference
	ProjectID  int
	Kubeconfig string // path of the kubeconfig inside the bundle
	Selection  *normalize.Selection
	Normalized *model.KubeConfig
	Merged     bool
}

// Runner executes the fetch pipeline stage by stage. Any failure aborts the run.
type Runner struct {
	Source     ArtifactSource
	Extractor  *artifact.Extractor
	Validator  *schema.Validator
	Merger     *merge.Merger
	SharedPath string
	UseContext bool
	Stdout     io.Writer
	DryRun     bool
	// TempDir is where the scoped workspace is created; empty means os.TempDir()
	TempDir string
	Logger  *zap.Logger
}

func NewRunner(source ArtifactSource, extractor *artifact.Extractor, validator *schema.Validator, merger *merge.Merger, sharedPath string, stdout io.Writer, dryRun bool) *Runner {
	return &Runner{
		Source:     source,
		Extractor:  extractor,
		Validator:  validator,
		Merger:     merger,
		SharedPath: sharedPath,
		Stdout:     stdout,
		DryRun:     dryRun,
		Logger:     zap.NewNop(),
	}
}

func (r *Runner) Run(ctx context.Context, rawURL string) (*Result, error) {
	if r.Source == nil {
		return nil, &model.StageError{Stage: StageResolve, Err: model.ErrMissingCredential}
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fmt.Fprintln(r.Stdout, "□ Parsing job URL...")
	ref, err := jobref.Parse(rawURL)
	if err != nil {
		return nil, &model.StageError{Stage: StageParse, Err: err}
	}
	result := &Result{Ref: ref}
	logger.Debug("parsed job URL",
		zap.String("host", ref.Host),
		zap.String("project", ref.ProjectPath),
		zap.String("env", ref.EnvironmentName),
		zap.Int("job", ref.JobID))

	fmt.Fprintf(r.Stdout, "□ Resolving project %s...\n", ref.ProjectPath)
	projectID, err := r.Source.ResolveProjectID(ctx, ref)
	if err != nil {
		return nil, &model.StageError{Stage: StageResolve, Err: err}
	}
	result.ProjectID = projectID

	fmt.Fprintf(r.Stdout, "□ Downloading artifacts of job %d...\n", ref.JobID)
	bundle, err := r.Source.FetchJobArtifacts(ctx, ref, projectID)
	if err != nil {
		return nil, &model.StageError{Stage: StageDownload, Err: err}
	}

	workspace, err := os.MkdirTemp(r.TempDir, "kubefetch-")
	if err != nil {
		return nil, &model.StageError{Stage: StageDownload, Err: fmt.Errorf("%w: failed to create workspace: %v", model.ErrArtifactDownloadFailed, err)}
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logger.Warn("failed to remove workspace", zap.String("path", workspace), zap.Error(err))
		}
	}()

	bundlePath := filepath.Join(workspace, "artifacts")
	if err := os.WriteFile(bundlePath, bundle, 0o600); err != nil {
		return nil, &model.StageError{Stage: StageDownload, Err: fmt.Errorf("%w: %v", model.ErrArtifactDownloadFailed, err)}
	}

	fmt.Fprintln(r.Stdout, "□ Extracting kubeconfig...")
	extractDir := filepath.Join(workspace, "extract")
	kubeconfigPath, err := r.Extractor.ExtractAndLocate(bundlePath, extractDir, ref.EnvironmentName)
	if err != nil {
		return nil, &model.StageError{Stage: StageExtract, Err: err}
	}
	if rel, err := filepath.Rel(extractDir, kubeconfigPath); err == nil {
		result.Kubeconfig = filepath.ToSlash(rel)
	}
	logger.Debug("located kubeconfig", zap.String("path", result.Kubeconfig))

	fmt.Fprintf(r.Stdout, "□ Normalizing kubeconfig as %s...\n", ref.EnvironmentName)
	normalized, sel, err := normalize.NormalizeFile(kubeconfigPath, ref.EnvironmentName, r.Validator)
	if err != nil {
		return nil, &model.StageError{Stage: StageNormalize, Err: err}
	}
	result.Selection = sel
	result.Normalized = normalized
	logger.Debug("selected entries",
		zap.String("context", sel.Context),
		zap.String("cluster", sel.Cluster),
		zap.String("user", sel.User),
		zap.Bool("oidc", sel.OIDC))

	if r.DryRun {
		data, err := loader.RenderKubeConfig(normalized)
		if err != nil {
			return nil, &model.StageError{Stage: StageNormalize, Err: fmt.Errorf("%w: %v", model.ErrRebuildValidationFailed, err)}
		}
		fmt.Fprintln(r.Stdout, "□ Dry-run mode enabled. Normalized kubeconfig:")
		fmt.Fprintln(r.Stdout)
		r.Stdout.Write(data)
		return result, nil
	}

	fmt.Fprintf(r.Stdout, "□ Merging into %s...\n", r.SharedPath)
	if err := r.Merger.Merge(ctx, kubeconfigPath, ref.EnvironmentName, r.SharedPath, merge.Options{UseContext: r.UseContext}); err != nil {
		return nil, &model.StageError{Stage: StageMerge, Err: err}
	}
	result.Merged = true

	return result, nil
}
