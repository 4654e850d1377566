package main

import (
	"fmt"
	"strings"

	"github.com/davbunn1/riboviz/internal/config"
	"github.com/davbunn1/riboviz/internal/output"
	"github.com/davbunn1/riboviz/internal/runner"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the per-sample step plan without executing anything",
		RunE:  runPlan,
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, root, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := buildPlan(root, configPath, cfg)
	if err != nil {
		return err
	}

	driver := runner.NewDriver(runner.Options{Root: root}, data.builder)
	issues := driver.Validate(data.plan)

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		renderer := output.NewPretty(cmd.OutOrStdout())
		if err := renderer.RenderPlan(data.plan, issues, true); err != nil {
			return err
		}
		printWarnings(cmd, data.warnings)
	case config.FormatJSON:
		renderer := output.NewJSON(cmd.OutOrStdout())
		doc := output.Document{Plan: &data.plan, Validation: issues, Warnings: data.warnings}
		if err := renderer.Render(doc); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	return nil
}
