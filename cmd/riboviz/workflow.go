package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/davbunn1/riboviz/internal/config"
	"github.com/davbunn1/riboviz/internal/discovery"
	"github.com/davbunn1/riboviz/internal/version"
	"github.com/davbunn1/riboviz/internal/workflow"
	"github.com/davbunn1/riboviz/internal/workflow/filter"
	"github.com/spf13/cobra"
)

// runData bundles the built plan with its builder and planning warnings.
type runData struct {
	plan     workflow.Plan
	builder  *workflow.Builder
	warnings []string
}

func loadConfig(cmd *cobra.Command) (config.Config, string, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", "", fmt.Errorf("determine working directory: %w", err)
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, "", "", fmt.Errorf("parse --config: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, "", "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", "", err
	}
	config.ApplyFlags(&cfg, flags)

	if errs := cfg.Validate(root); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return config.Config{}, "", "", fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	return cfg, root, configPath, nil
}

func buildPlan(root, configPath string, cfg config.Config) (runData, error) {
	inputs, err := discovery.Inputs(root, cfg.DirIn, cfg.FqFiles)
	if err != nil {
		if errors.Is(err, discovery.ErrNoSamples) {
			return runData{}, fmt.Errorf("no samples configured; add fq_files to %s", configPath)
		}
		return runData{}, err
	}

	patterns, err := filter.Compile(cfg.Samples)
	if err != nil {
		return runData{}, err
	}
	selected := filter.Inputs(inputs, patterns)

	data := runData{}
	if len(patterns) > 0 && len(selected) < len(inputs) {
		data.warnings = append(data.warnings,
			fmt.Sprintf("sample filter selected %d of %d configured samples", len(selected), len(inputs)))
	}
	if len(selected) == 0 {
		return runData{}, fmt.Errorf("no samples match the sample filter")
	}

	data.builder = workflow.NewBuilder(root, configPath, cfg)
	data.plan = data.builder.Plan(selected)
	for _, w := range data.plan.Warnings {
		data.warnings = append(data.warnings, fmt.Sprintf("%s: %s", w.Scope, w.Message))
	}
	return data, nil
}

// probeTools checks that the external executables the plan invokes are on
// PATH. Missing tools are warnings, not errors: validate-only and dry-run
// must work on machines without the bioinformatics stack installed.
func probeTools() []string {
	var warnings []string
	for _, name := range version.Tools() {
		if _, err := version.Detect(name); err != nil {
			if version.Missing(err) {
				warnings = append(warnings, fmt.Sprintf("%s not found on PATH", name))
			}
		}
	}
	return warnings
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", msg)
	}
}
