package main

import (
	"fmt"

	"github.com/davbunn1/riboviz/internal/config"
	"github.com/spf13/cobra"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	if flags.Changed("dry-run") {
		v, err := flags.GetBool("dry-run")
		if err != nil {
			return values, fmt.Errorf("parse --dry-run: %w", err)
		}
		values.DryRun = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("validate-only") {
		v, err := flags.GetBool("validate-only")
		if err != nil {
			return values, fmt.Errorf("parse --validate-only: %w", err)
		}
		values.ValidateOnly = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("verbose") {
		v, err := flags.GetBool("verbose")
		if err != nil {
			return values, fmt.Errorf("parse --verbose: %w", err)
		}
		values.Verbose = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("format") {
		v, err := flags.GetString("format")
		if err != nil {
			return values, fmt.Errorf("parse --format: %w", err)
		}
		values.Format = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("workers") {
		v, err := flags.GetInt("workers")
		if err != nil {
			return values, fmt.Errorf("parse --workers: %w", err)
		}
		values.Workers = config.IntFlag{Value: v, Set: true}
	}

	if flags.Changed("sample") {
		v, err := flags.GetStringArray("sample")
		if err != nil {
			return values, fmt.Errorf("parse --sample: %w", err)
		}
		values.Samples = config.SliceFlag{Values: append([]string{}, v...)}
	}

	return values, nil
}
