package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourceplane/kubefetch/internal/model"
)

const (
	// DefaultSubdir is where CI jobs publish their kubeconfig inside the artifact bundle
	DefaultSubdir = "kubeconfig"

	kubeconfigSuffix = "oidc-kubeconfig"
)

var errStopWalk = errors.New("stop walk")

// Extractor unpacks bundles and locates the kubeconfig for an environment
type Extractor struct {
	Subdir string
}

// NewExtractor creates an extractor searching subdir first; empty means DefaultSubdir
func NewExtractor(subdir string) *Extractor {
	if subdir == "" {
		subdir = DefaultSubdir
	}
	return &Extractor{Subdir: subdir}
}

// Candidates returns the fixed lookup paths, in priority order
func (e *Extractor) Candidates(root, env string) []string {
	dir := filepath.Join(root, filepath.FromSlash(e.Subdir))
	return []string{
		filepath.Join(dir, env+"-"+kubeconfigSuffix),
		filepath.Join(dir, kubeconfigSuffix),
	}
}

// Locate finds the kubeconfig for env under root. The fixed candidates are tried
// first, then the first file in lexical walk order whose name ends in oidc-kubeconfig.
func (e *Extractor) Locate(root, env string) (string, error) {
	for _, candidate := range e.Candidates(root, env) {
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return candidate, nonEmpty(candidate, info)
	}

	var found string
	var foundInfo fs.FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), kubeconfigSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		found, foundInfo = path, info
		return errStopWalk
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return "", fmt.Errorf("%w: failed to search %s: %v", model.ErrKubeconfigNotFound, root, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: no %s file for environment %s", model.ErrKubeconfigNotFound, kubeconfigSuffix, env)
	}

	return found, nonEmpty(found, foundInfo)
}

// ExtractAndLocate unpacks the bundle into destDir and returns the kubeconfig path
func (e *Extractor) ExtractAndLocate(bundlePath, destDir, env string) (string, error) {
	if err := Extract(bundlePath, destDir); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrKubeconfigNotFound, err)
	}
	return e.Locate(destDir, env)
}

func nonEmpty(path string, info fs.FileInfo) error {
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", model.ErrKubeconfigNotFound, path)
	}
	return nil
}
