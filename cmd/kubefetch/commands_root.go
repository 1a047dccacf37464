package main

import "github.com/spf13/cobra"

var (
	kubeconfigPath string
	artifactDir    string
	dryRun         bool
	useContext     bool
	debugMode      bool
	reportFile     string
)

var rootCmd = &cobra.Command{
	Use:   "kubefetch [job-url]",
	Short: "Fetch a kubeconfig from a GitLab job and merge it",
	Long: "kubefetch downloads the artifacts of a GitLab CI job, extracts the OIDC kubeconfig, " +
		"normalizes it to a single context named after the environment and merges it into your kubeconfig",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return fetchKubeconfig(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&kubeconfigPath, "kubeconfig", "", "Shared kubeconfig to merge into (default $KUBEFETCH_KUBECONFIG or ~/.kube/config)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	addFetchFlags(rootCmd)

	registerFetchCommand(rootCmd)
	registerValidateCommand(rootCmd)
	registerDebugCommand(rootCmd)
	registerContextsCommand(rootCmd)
}
