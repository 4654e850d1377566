package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "riboviz",
		Short:         "Riboviz drives a ribosome profiling analysis workflow",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.StringP("config", "c", "config.yaml", "workflow configuration file")
	persistent.StringArray("sample", nil, "sample filter (repeatable, substring or /regex/)")
	persistent.Bool("dry-run", false, "print the plan without executing any step")
	persistent.Bool("validate-only", false, "check configuration and inputs without running")
	persistent.Int("workers", 0, "number of samples to process in parallel")
	persistent.BoolP("verbose", "v", false, "stream tool output in real time")
	persistent.String("format", "pretty", "output format (pretty|json)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newPlanCmd())

	return cmd
}
