package main

import (
	"fmt"
	"io"

	"github.com/sourceplane/kubefetch/internal/artifact"
	"github.com/sourceplane/kubefetch/internal/config"
	"github.com/sourceplane/kubefetch/internal/jobref"
	"github.com/sourceplane/kubefetch/internal/render"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug <job-url>",
	Short: "Show how a job URL is parsed, without contacting GitLab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return debugJobURL(cmd.OutOrStdout(), args[0])
	},
}

func registerDebugCommand(root *cobra.Command) {
	root.AddCommand(debugCmd)

	debugCmd.Flags().StringVar(&artifactDir, "artifact-dir", "", "Artifact subdirectory searched first")
}

func debugJobURL(out io.Writer, rawURL string) error {
	ref, err := jobref.Parse(rawURL)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	subdir := cfg.ArtifactDir
	if artifactDir != "" {
		subdir = artifactDir
	}

	fmt.Fprint(out, render.DebugDump(ref))
	fmt.Fprintln(out, "Kubeconfig lookup:")
	for _, candidate := range artifact.NewExtractor(subdir).Candidates("<artifacts>", ref.EnvironmentName) {
		fmt.Fprintf(out, "  - %s\n", candidate)
	}
	fmt.Fprintln(out, "  - first file ending in oidc-kubeconfig")
	return nil
}
