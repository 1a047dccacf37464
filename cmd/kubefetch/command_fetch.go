package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sourceplane/kubefetch/internal/artifact"
	"github.com/sourceplane/kubefetch/internal/config"
	"github.com/sourceplane/kubefetch/internal/gitlab"
	"github.com/sourceplane/kubefetch/internal/logging"
	"github.com/sourceplane/kubefetch/internal/merge"
	"github.com/sourceplane/kubefetch/internal/model"
	"github.com/sourceplane/kubefetch/internal/render"
	"github.com/sourceplane/kubefetch/internal/runner"
	"github.com/sourceplane/kubefetch/internal/schema"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <job-url>",
	Short: "Fetch, normalize and merge the kubeconfig of a GitLab job",
	Long: "Resolve the job's project, download its artifacts, locate <env>-oidc-kubeconfig, " +
		"rename its entries to the environment and merge them into the shared kubeconfig.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fetchKubeconfig(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func registerFetchCommand(root *cobra.Command) {
	root.AddCommand(fetchCmd)

	addFetchFlags(fetchCmd)
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&artifactDir, "artifact-dir", "", "Artifact subdirectory searched first (default $KUBEFETCH_ARTIFACT_DIR or kubeconfig)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the normalized kubeconfig instead of merging it")
	cmd.Flags().BoolVar(&useContext, "use-context", false, "Switch current-context to the fetched environment")
	cmd.Flags().StringVarP(&reportFile, "report", "r", "", "Write a run report (json or yaml by extension)")
}

// loadSettings reads the environment and applies command line overrides
func loadSettings() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if kubeconfigPath != "" {
		cfg.Kubeconfig = kubeconfigPath
	}
	if artifactDir != "" {
		cfg.ArtifactDir = artifactDir
	}
	if debugMode {
		cfg.LogLevel = "debug"
	}

	return cfg, logging.NewLogger(cfg.LogLevel), nil
}

func newGitLabClient(cfg *config.Config, logger *zap.Logger) (*gitlab.Client, error) {
	var opts []gitlab.Option
	caCert, err := cfg.CACert()
	if err != nil {
		return nil, err
	}
	if caCert != nil {
		opts = append(opts, gitlab.WithCACert(caCert))
	}

	client, err := gitlab.NewClient(cfg.Token, logger, opts...)
	if err != nil {
		return nil, err
	}
	client.RequestTimeout = cfg.RequestTimeout
	client.DownloadTimeout = cfg.DownloadTimeout
	return client, nil
}

func fetchKubeconfig(ctx context.Context, out io.Writer, rawURL string) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := newGitLabClient(cfg, logger)
	if err != nil {
		return &model.StageError{Stage: runner.StageResolve, Err: err}
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	merger := merge.NewMerger(logger)
	merger.LockTimeout = cfg.LockTimeout

	r := runner.NewRunner(client, artifact.NewExtractor(cfg.ArtifactDir), validator, merger, cfg.Kubeconfig, out, dryRun)
	r.UseContext = useContext
	r.Logger = logger

	result, err := r.Run(ctx, rawURL)
	if err != nil {
		return err
	}

	if reportFile != "" {
		if err := render.NewReport(result, cfg.Kubeconfig).Write(reportFile); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Report written to %s\n", reportFile)
	}

	if dryRun {
		fmt.Fprintln(out, "✓ Dry-run complete")
		return nil
	}

	fmt.Fprintf(out, "✓ Context %s merged into %s\n", result.Ref.EnvironmentName, cfg.Kubeconfig)
	if useContext {
		fmt.Fprintf(out, "✓ Switched to context %s\n", result.Ref.EnvironmentName)
	}
	return nil
}
