package main

import (
	"fmt"
	"io"

	"github.com/sourceplane/kubefetch/internal/merge"
	"github.com/sourceplane/kubefetch/internal/render"
	"github.com/spf13/cobra"
)

var contextsCmd = &cobra.Command{
	Use:     "contexts [context]",
	Aliases: []string{"context", "ctx"},
	Short:   "List the contexts in the shared kubeconfig",
	Long:    "List every context in the shared kubeconfig, or show one context in detail. The current context is marked with *.",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listContexts(cmd.OutOrStdout(), args)
	},
}

func registerContextsCommand(root *cobra.Command) {
	root.AddCommand(contextsCmd)
}

func listContexts(out io.Writer, args []string) error {
	cfg, _, err := loadSettings()
	if err != nil {
		return err
	}

	shared, err := merge.Load(cfg.Kubeconfig)
	if err != nil {
		return err
	}

	viewer := render.NewConfigViewer(shared)
	if len(args) > 0 {
		fmt.Fprint(out, viewer.ViewContext(args[0]))
		return nil
	}

	fmt.Fprintf(out, "Contexts in %s:\n", cfg.Kubeconfig)
	fmt.Fprint(out, viewer.ViewContexts())
	return nil
}
