package main

import (
	"fmt"
	"io"

	"github.com/sourceplane/kubefetch/internal/loader"
	"github.com/sourceplane/kubefetch/internal/model"
	"github.com/sourceplane/kubefetch/internal/normalize"
	"github.com/sourceplane/kubefetch/internal/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <kubeconfig>",
	Short: "Validate a kubeconfig and show what would be kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateKubeconfig(cmd.OutOrStdout(), args[0])
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)
}

func validateKubeconfig(out io.Writer, path string) error {
	fmt.Fprintf(out, "□ Validating %s...\n", path)
	cfg, raw, err := loader.LoadKubeConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidKubeConfig, err)
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}
	if err := validator.ValidateKubeConfig(raw); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidKubeConfig, err)
	}
	fmt.Fprintln(out, "✓ Kubeconfig matches schema")

	fmt.Fprintln(out, "□ Selecting entries...")
	sel, err := normalize.Select(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  Context: %s\n", sel.Context)
	fmt.Fprintf(out, "  Cluster: %s\n", sel.Cluster)
	if sel.OIDC {
		fmt.Fprintf(out, "  User:    %s (oidc-login)\n", sel.User)
	} else {
		fmt.Fprintf(out, "  User:    %s\n", sel.User)
	}

	fmt.Fprintln(out, "✓ All validation passed")
	return nil
}
