package main

import (
	"fmt"
	"strings"

	"github.com/davbunn1/riboviz/internal/config"
	"github.com/davbunn1/riboviz/internal/output"
	"github.com/davbunn1/riboviz/internal/runner"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the workflow for every configured sample",
		RunE:  runExecute,
	}
}

func runExecute(cmd *cobra.Command, args []string) error {
	cfg, root, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := buildPlan(root, configPath, cfg)
	if err != nil {
		return err
	}

	warnings := append(data.warnings, probeTools()...)

	// In JSON mode progress lines go to stderr so stdout stays a single
	// well-formed document.
	progressOut := cmd.OutOrStdout()
	if strings.ToLower(cfg.Format) == config.FormatJSON {
		progressOut = cmd.ErrOrStderr()
	}

	driver := runner.NewDriver(runner.Options{
		Root:    root,
		Stdout:  progressOut,
		Verbose: cfg.Verbose,
		Workers: cfg.NumWorkers,
	}, data.builder)

	if cfg.DryRun || cfg.ValidateOnly {
		return renderValidation(cmd, cfg, data, driver, warnings)
	}

	rep := driver.Run(cmd.Context(), data.plan)

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		renderer := output.NewPretty(cmd.OutOrStdout())
		if err := renderer.RenderReport(rep); err != nil {
			return err
		}
		printWarnings(cmd, warnings)
	case config.FormatJSON:
		renderer := output.NewJSON(cmd.OutOrStdout())
		if err := renderer.Render(output.Document{Report: rep, Warnings: warnings}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	if rep.ExitCode != 0 {
		if rep.Failed > 0 {
			return fmt.Errorf("%d of %d samples failed", rep.Failed, rep.Total)
		}
		return fmt.Errorf("aggregation failed")
	}
	return nil
}

func renderValidation(cmd *cobra.Command, cfg config.Config, data runData, driver *runner.Driver, warnings []string) error {
	issues := driver.Validate(data.plan)

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		renderer := output.NewPretty(cmd.OutOrStdout())
		if err := renderer.RenderPlan(data.plan, issues, cfg.DryRun); err != nil {
			return err
		}
		printWarnings(cmd, warnings)
	case config.FormatJSON:
		renderer := output.NewJSON(cmd.OutOrStdout())
		doc := output.Document{Plan: &data.plan, Validation: issues, Warnings: warnings}
		if err := renderer.Render(doc); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	if len(issues) > 0 {
		return fmt.Errorf("%d samples failed validation", len(issues))
	}
	return nil
}
