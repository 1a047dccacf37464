package normalize

import (
	"fmt"
	"path/filepath"

	"github.com/sourceplane/kubefetch/internal/loader"
	"github.com/sourceplane/kubefetch/internal/model"
	"github.com/sourceplane/kubefetch/internal/schema"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	oidcCommand = "kubectl"
	oidcArg     = "oidc-login"
)

// Selection records which entries of a raw kubeconfig the normalizer keeps
type Selection struct {
	Context string
	Cluster string
	User    string
	// OIDC is true when User was chosen by the OIDC preference rather than the context
	OIDC bool
}

// Select picks the active context, its cluster and the user to keep
func Select(cfg *model.KubeConfig) (*Selection, error) {
	if cfg == nil || len(cfg.Contexts) == 0 {
		return nil, model.ErrNoContextFound
	}

	if err := checkReferences(cfg); err != nil {
		return nil, err
	}

	active, ok := cfg.FindContext(cfg.CurrentContext)
	if !ok {
		active = &cfg.Contexts[0]
	}

	sel := &Selection{Context: active.Name, Cluster: active.Context.Cluster}

	if user, ok := findOIDCUser(cfg); ok {
		sel.User = user.Name
		sel.OIDC = true
		return sel, nil
	}

	sel.User = active.Context.User

	return sel, nil
}

// checkReferences fails on any context naming a cluster or user the file does not define
func checkReferences(cfg *model.KubeConfig) error {
	for _, c := range cfg.Contexts {
		if _, ok := cfg.FindCluster(c.Context.Cluster); !ok {
			return fmt.Errorf("%w: context %s references cluster %q", model.ErrClusterNotFound, c.Name, c.Context.Cluster)
		}
		if _, ok := cfg.FindUser(c.Context.User); !ok {
			return fmt.Errorf("%w: context %s references user %q", model.ErrUserNotFound, c.Name, c.Context.User)
		}
	}
	return nil
}

// IsOIDCUser reports whether a user obtains its token through kubectl oidc-login
func IsOIDCUser(user model.NamedUser) bool {
	exec := user.User.Exec
	if exec == nil || filepath.Base(exec.Command) != oidcCommand {
		return false
	}
	for _, arg := range exec.Args {
		if arg == oidcArg {
			return true
		}
	}
	return false
}

func findOIDCUser(cfg *model.KubeConfig) (*model.NamedUser, bool) {
	for i := range cfg.Users {
		if IsOIDCUser(cfg.Users[i]) {
			return &cfg.Users[i], true
		}
	}
	return nil, false
}

// Normalize rebuilds cfg as a single-context kubeconfig whose cluster, user and
// context are all named env. Every other entry is dropped.
func Normalize(cfg *model.KubeConfig, env string) (*model.KubeConfig, *Selection, error) {
	if env == "" {
		return nil, nil, fmt.Errorf("environment name cannot be empty")
	}

	sel, err := Select(cfg)
	if err != nil {
		return nil, nil, err
	}

	cluster, _ := cfg.FindCluster(sel.Cluster)
	user, ok := cfg.FindUser(sel.User)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", model.ErrUserNotFound, sel.User)
	}
	active, _ := cfg.FindContext(sel.Context)

	normalized := &model.KubeConfig{
		APIVersion: "v1",
		Kind:       "Config",
		Clusters: []model.NamedCluster{
			{Name: env, Cluster: cluster.Cluster},
		},
		Users: []model.NamedUser{
			{Name: env, User: user.User},
		},
		Contexts: []model.NamedContext{
			{
				Name: env,
				Context: model.ContextSpec{
					Cluster:   env,
					User:      env,
					Namespace: active.Context.Namespace,
				},
			},
		},
		CurrentContext: env,
	}

	return normalized, sel, nil
}

// NormalizeFile normalizes the kubeconfig at path in place and validates the
// rebuilt file before returning it.
func NormalizeFile(path, env string, validator *schema.Validator) (*model.KubeConfig, *Selection, error) {
	cfg, data, err := loader.LoadKubeConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrInvalidKubeConfig, err)
	}
	if err := validator.ValidateKubeConfig(data); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrInvalidKubeConfig, err)
	}

	normalized, sel, err := Normalize(cfg, env)
	if err != nil {
		return nil, nil, err
	}

	if err := loader.WriteKubeConfig(normalized, path); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrRebuildValidationFailed, err)
	}

	if err := Verify(path, env, validator); err != nil {
		return nil, nil, err
	}

	return normalized, sel, nil
}

// Verify checks that the file at path is a valid single-context kubeconfig named env
func Verify(path, env string, validator *schema.Validator) error {
	cfg, data, err := loader.LoadKubeConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrRebuildValidationFailed, err)
	}
	if err := validator.ValidateNormalized(data); err != nil {
		return fmt.Errorf("%w: %v", model.ErrRebuildValidationFailed, err)
	}

	if cfg.CurrentContext != env ||
		cfg.Clusters[0].Name != env ||
		cfg.Users[0].Name != env ||
		cfg.Contexts[0].Name != env ||
		cfg.Contexts[0].Context.Cluster != env ||
		cfg.Contexts[0].Context.User != env {
		return fmt.Errorf("%w: entries are not all named %q", model.ErrRebuildValidationFailed, env)
	}

	// client-go must accept it too
	if _, err := clientcmd.Load(data); err != nil {
		return fmt.Errorf("%w: %v", model.ErrRebuildValidationFailed, err)
	}

	return nil
}
