package model

// KubeConfig is the on-disk kubeconfig document. Cluster and user bodies keep
// any fields they carry so a rebuilt config loses nothing from the entries it keeps.
type KubeConfig struct {
	APIVersion     string                 `yaml:"apiVersion,omitempty" json:"apiVersion,omitempty"`
	Kind           string                 `yaml:"kind,omitempty" json:"kind,omitempty"`
	Preferences    map[string]interface{} `yaml:"preferences,omitempty" json:"preferences,omitempty"`
	Clusters       []NamedCluster         `yaml:"clusters" json:"clusters"`
	Users          []NamedUser            `yaml:"users" json:"users"`
	Contexts       []NamedContext         `yaml:"contexts" json:"contexts"`
	CurrentContext string                 `yaml:"current-context,omitempty" json:"current-context,omitempty"`
}

// NamedCluster binds a name to a cluster endpoint
type NamedCluster struct {
	Name    string                 `yaml:"name" json:"name"`
	Cluster map[string]interface{} `yaml:"cluster" json:"cluster"`
}

// NamedUser binds a name to a credential
type NamedUser struct {
	Name string   `yaml:"name" json:"name"`
	User UserSpec `yaml:"user" json:"user"`
}

// UserSpec is a credential entry. Only the exec plugin is typed.
type UserSpec struct {
	Exec  *ExecConfig            `yaml:"exec,omitempty" json:"exec,omitempty"`
	Extra map[string]interface{} `yaml:",inline" json:"-"`
}

// ExecConfig is a client-go credential plugin invocation
type ExecConfig struct {
	APIVersion string                 `yaml:"apiVersion,omitempty" json:"apiVersion,omitempty"`
	Command    string                 `yaml:"command" json:"command"`
	Args       []string               `yaml:"args,omitempty" json:"args,omitempty"`
	Extra      map[string]interface{} `yaml:",inline" json:"-"`
}

// NamedContext binds a name to a (cluster, user) pair
type NamedContext struct {
	Name    string      `yaml:"name" json:"name"`
	Context ContextSpec `yaml:"context" json:"context"`
}

// ContextSpec references a cluster and a user by name
type ContextSpec struct {
	Cluster   string                 `yaml:"cluster" json:"cluster"`
	User      string                 `yaml:"user" json:"user"`
	Namespace string                 `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Extra     map[string]interface{} `yaml:",inline" json:"-"`
}

// FindContext returns the context with the given name
func (c *KubeConfig) FindContext(name string) (*NamedContext, bool) {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			return &c.Contexts[i], true
		}
	}
	return nil, false
}

// FindCluster returns the cluster with the given name
func (c *KubeConfig) FindCluster(name string) (*NamedCluster, bool) {
	for i := range c.Clusters {
		if c.Clusters[i].Name == name {
			return &c.Clusters[i], true
		}
	}
	return nil, false
}

// FindUser returns the user with the given name
func (c *KubeConfig) FindUser(name string) (*NamedUser, bool) {
	for i := range c.Users {
		if c.Users[i].Name == name {
			return &c.Users[i], true
		}
	}
	return nil, false
}
