// Package merge folds a normalized single-context kubeconfig into the shared
// kubeconfig file, replacing any previous entries for the same environment.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/sourceplane/kubefetch/internal/loader"
	"github.com/sourceplane/kubefetch/internal/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

const (
	DefaultLockTimeout = 30 * time.Second

	lockRetryDelay = 100 * time.Millisecond
)

// Options tune a single merge
type Options struct {
	// UseContext switches the shared file's current-context to the merged environment.
	// Without it current-context is left as it was.
	UseContext bool
}

// Merger merges normalized kubeconfigs into a shared kubeconfig file
type Merger struct {
	LockTimeout time.Duration
	logger      *zap.Logger
}

// NewMerger creates a merger
func NewMerger(logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{
		LockTimeout: DefaultLockTimeout,
		logger:      logger,
	}
}

// Merge replaces the cluster, user and context named env in sharedPath with
// the entries of the normalized kubeconfig at normalizedPath. All other
// entries are left untouched. The shared file is created if missing.
func (m *Merger) Merge(ctx context.Context, normalizedPath, env, sharedPath string, opts Options) error {
	if err := m.merge(ctx, normalizedPath, env, sharedPath, opts); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMergeFailed, err)
	}
	return nil
}

func (m *Merger) merge(ctx context.Context, normalizedPath, env, sharedPath string, opts Options) error {
	sharedPath, err := resolveShared(sharedPath)
	if err != nil {
		return err
	}

	entries, err := incomingEntries(normalizedPath, env)
	if err != nil {
		return err
	}

	unlock, err := m.lock(ctx, sharedPath)
	if err != nil {
		return err
	}
	defer unlock()

	shared, err := loadShared(sharedPath)
	if err != nil {
		return err
	}

	replaced := false
	for _, section := range []string{loader.SectionClusters, loader.SectionUsers, loader.SectionContexts} {
		if shared.Upsert(section, entries[section]) {
			replaced = true
		}
	}
	m.logger.Debug("upserted entries", zap.String("env", env), zap.Bool("replaced", replaced))

	if opts.UseContext {
		shared.SetCurrentContext(env)
	}

	data, err := shared.Render()
	if err != nil {
		return err
	}
	if err := writeAtomic(data, sharedPath); err != nil {
		return err
	}

	m.logger.Info("merged kubeconfig",
		zap.String("env", env),
		zap.String("path", sharedPath),
		zap.Bool("replaced", replaced),
		zap.String("currentContext", shared.CurrentContext()))
	return nil
}

// incomingEntries returns the cluster, user and context named env from the
// normalized file, with file references inlined the way client-go flattens them.
func incomingEntries(normalizedPath, env string) (map[string]*yaml.Node, error) {
	doc, err := loader.LoadDocument(normalizedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load normalized kubeconfig: %w", err)
	}

	flat, err := clientcmd.LoadFromFile(normalizedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load normalized kubeconfig: %w", err)
	}
	if err := clientcmdapi.FlattenConfig(flat); err != nil {
		return nil, fmt.Errorf("failed to flatten normalized kubeconfig: %w", err)
	}

	entries := make(map[string]*yaml.Node, 3)
	for _, section := range []string{loader.SectionClusters, loader.SectionUsers, loader.SectionContexts} {
		entry, ok := doc.Entry(section, env)
		if !ok {
			return nil, fmt.Errorf("normalized kubeconfig has no %s entry %q", section, env)
		}
		entries[section] = entry
	}

	if cluster, ok := flat.Clusters[env]; ok {
		loader.InlineData(entries[loader.SectionClusters], "cluster", "certificate-authority", "certificate-authority-data", cluster.CertificateAuthorityData)
	}
	if user, ok := flat.AuthInfos[env]; ok {
		loader.InlineData(entries[loader.SectionUsers], "user", "client-certificate", "client-certificate-data", user.ClientCertificateData)
		loader.InlineData(entries[loader.SectionUsers], "user", "client-key", "client-key-data", user.ClientKeyData)
	}

	return entries, nil
}

// loadShared reads the shared file. A missing file starts an empty v1 Config.
func loadShared(sharedPath string) (*loader.Document, error) {
	doc, err := loader.LoadDocument(sharedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return loader.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", sharedPath, err)
	}
	return doc, nil
}

// Load reads the shared kubeconfig. A missing file yields an empty config.
func Load(sharedPath string) (*clientcmdapi.Config, error) {
	cfg, err := clientcmd.LoadFromFile(sharedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return clientcmdapi.NewConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", sharedPath, err)
	}
	return cfg, nil
}

// lock takes the advisory lock guarding sharedPath. The lock file is left behind
// on purpose: removing it would let a waiter lock a file nobody else sees.
func (m *Merger) lock(ctx context.Context, sharedPath string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(sharedPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", sharedPath, err)
	}

	timeout := m.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fileLock := flock.New(sharedPath + ".lock")
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", fileLock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("timed out waiting for lock %s", fileLock.Path())
	}

	m.logger.Debug("acquired lock", zap.String("path", fileLock.Path()))
	return func() {
		if err := fileLock.Unlock(); err != nil {
			m.logger.Warn("failed to release lock", zap.String("path", fileLock.Path()), zap.Error(err))
		}
	}, nil
}

// resolveShared follows a symlinked shared file so the rename replaces its target
func resolveShared(sharedPath string) (string, error) {
	abs, err := filepath.Abs(sharedPath)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return abs, nil
	}
	return "", err
}

// writeAtomic writes data next to path and renames it into place with mode 0600
func writeAtomic(data []byte, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
