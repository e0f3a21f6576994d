package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/engine"
	"github.com/esinfra/converge/internal/logger"
)

type planOptions struct {
	ManifestPath string
	Verbose      bool
}

func newPlanCmd(root *rootFlags) *cobra.Command {
	opts := planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Probe the host and report drift without applying anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose
			return runPlan(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ManifestPath, "config", "c", "", "Path to manifest file")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runPlan(cmd *cobra.Command, opts planOptions) error {
	manifest, err := config.ParseManifest(opts.ManifestPath)
	if err != nil {
		return err
	}

	level := "info"
	if opts.Verbose || manifest.Settings.Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true})
	if err != nil {
		return err
	}

	r := engine.New(manifest, engine.Options{DryRun: true, Logger: log})
	entries, err := r.Plan(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	drifted := 0
	for _, entry := range entries {
		fmt.Fprintf(out, "%-30s %-10s %s\n", entry.Resource.ID, entry.Evaluation.CurrentState, entry.Evaluation.Message)
		if entry.Evaluation.RequiresAction {
			drifted++
			if entry.Evaluation.Diff != "" {
				fmt.Fprintf(out, "%-30s %-10s %s\n", "", "", entry.Evaluation.Diff)
			}
		}
	}
	fmt.Fprintf(out, "\n%d of %d resources would change\n", drifted, len(entries))

	// Drift is advisory; plan always exits zero.
	return nil
}
