package render

import (
	"fmt"
	"sort"
	"strings"

	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

const rule = "═══════════════════════════════════════════════════════════\n"

// ConfigViewer provides human-readable views of a kubeconfig
type ConfigViewer struct {
	config *clientcmdapi.Config
}

// NewConfigViewer creates a new kubeconfig viewer
func NewConfigViewer(config *clientcmdapi.Config) *ConfigViewer {
	if config == nil {
		config = clientcmdapi.NewConfig()
	}
	return &ConfigViewer{config: config}
}

// ViewContexts returns a tree of every context with its cluster and user.
// The current context is marked with an asterisk.
func (cv *ConfigViewer) ViewContexts() string {
	if len(cv.config.Contexts) == 0 {
		return "No contexts in kubeconfig\n"
	}

	names := sortedKeys(cv.config.Contexts)

	var sb strings.Builder
	for i, name := range names {
		isLast := i == len(names)-1
		ctx := cv.config.Contexts[name]

		prefix := "├─ "
		connector := "│  "
		if isLast {
			prefix = "└─ "
			connector = "   "
		}

		header := prefix + name
		if name == cv.config.CurrentContext {
			header += " *"
		}
		sb.WriteString(header + "\n")

		lines := cv.contextLines(ctx)
		for j, line := range lines {
			linePrefix := "├─ "
			if j == len(lines)-1 {
				linePrefix = "└─ "
			}
			sb.WriteString(connector + linePrefix + line + "\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString(fmt.Sprintf("Summary: %d contexts, %d clusters, %d users",
		len(cv.config.Contexts), len(cv.config.Clusters), len(cv.config.AuthInfos)))
	if cv.config.CurrentContext != "" {
		sb.WriteString(fmt.Sprintf(" (current: %s)", cv.config.CurrentContext))
	}
	sb.WriteString("\n")

	return sb.String()
}

// ViewContext shows a single context in detail
func (cv *ConfigViewer) ViewContext(name string) string {
	ctx, ok := cv.config.Contexts[name]
	if !ok {
		return fmt.Sprintf("No context found: %s\n", name)
	}

	var sb strings.Builder
	sb.WriteString(name + "\n")
	sb.WriteString(rule)
	sb.WriteString(fmt.Sprintf("Cluster:   %s\n", ctx.Cluster))
	if cluster, ok := cv.config.Clusters[ctx.Cluster]; ok {
		sb.WriteString(fmt.Sprintf("  Server:  %s\n", cluster.Server))
		if cluster.InsecureSkipTLSVerify {
			sb.WriteString("  TLS:     insecure\n")
		}
	}
	sb.WriteString(fmt.Sprintf("User:      %s\n", ctx.AuthInfo))
	if user, ok := cv.config.AuthInfos[ctx.AuthInfo]; ok {
		sb.WriteString(fmt.Sprintf("  Auth:    %s\n", authKind(user)))
	}
	if ctx.Namespace != "" {
		sb.WriteString(fmt.Sprintf("Namespace: %s\n", ctx.Namespace))
	}
	if name == cv.config.CurrentContext {
		sb.WriteString("Current:   yes\n")
	}

	return sb.String()
}

func (cv *ConfigViewer) contextLines(ctx *clientcmdapi.Context) []string {
	cluster := "cluster: " + ctx.Cluster
	if c, ok := cv.config.Clusters[ctx.Cluster]; ok {
		cluster += " (" + c.Server + ")"
	} else {
		cluster += " (missing)"
	}

	user := "user: " + ctx.AuthInfo
	if u, ok := cv.config.AuthInfos[ctx.AuthInfo]; ok {
		user += " [" + authKind(u) + "]"
	} else {
		user += " (missing)"
	}

	lines := []string{cluster, user}
	if ctx.Namespace != "" {
		lines = append(lines, "namespace: "+ctx.Namespace)
	}
	return lines
}

// authKind names how a user authenticates without revealing credentials
func authKind(user *clientcmdapi.AuthInfo) string {
	switch {
	case user.Exec != nil:
		return strings.TrimSpace("exec: " + user.Exec.Command + " " + strings.Join(firstN(user.Exec.Args, 1), " "))
	case user.AuthProvider != nil:
		return "auth-provider: " + user.AuthProvider.Name
	case user.Token != "" || user.TokenFile != "":
		return "token"
	case len(user.ClientCertificateData) > 0 || user.ClientCertificate != "":
		return "client-certificate"
	case user.Username != "":
		return "basic"
	default:
		return "none"
	}
}

func firstN(s []string, n int) []string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
