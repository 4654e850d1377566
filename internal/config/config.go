package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures workflow options sourced from the configuration file or flags.
type Config struct {
	FqFiles map[string]string `yaml:"fq_files"`

	DirIn    string `yaml:"dir_in"`
	DirIndex string `yaml:"dir_index"`
	DirTmp   string `yaml:"dir_tmp"`
	DirOut   string `yaml:"dir_out"`
	DirLogs  string `yaml:"dir_logs"`

	RRNAFastaFile string `yaml:"rrna_fasta_file"`
	ORFFastaFile  string `yaml:"orf_fasta_file"`
	ORFGFFFile    string `yaml:"orf_gff_file"`

	RRNAIndexPrefix string `yaml:"rrna_index_prefix"`
	ORFIndexPrefix  string `yaml:"orf_index_prefix"`
	BuildIndices    *bool  `yaml:"build_indices"`

	Adapters      string `yaml:"adapters"`
	NumProcesses  int    `yaml:"num_processes"`
	MinReadLength int    `yaml:"min_read_length"`
	MaxReadLength int    `yaml:"max_read_length"`

	ExtractUMIs  bool   `yaml:"extract_umis"`
	UMIRegexp    string `yaml:"umi_regexp"`
	DedupUMIs    bool   `yaml:"dedup_umis"`
	DedupStats   *bool  `yaml:"dedup_stats"`
	GroupUMIs    bool   `yaml:"group_umis"`
	MakeBedgraph *bool  `yaml:"make_bedgraph"`
	CountReads   *bool  `yaml:"count_reads"`

	NumWorkers int      `yaml:"num_workers"`
	Samples    []string `yaml:"samples"`

	DryRun       bool   `yaml:"dry_run"`
	ValidateOnly bool   `yaml:"validate_only"`
	Verbose      bool   `yaml:"verbose"`
	Format       string `yaml:"format"`
}

const (
	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"
)

func boolPtr(v bool) *bool { return &v }

// Default returns the baseline configuration used when the file or flags leave values unset.
func Default() Config {
	return Config{
		DirIn:           "input",
		DirIndex:        "index",
		DirTmp:          "tmp",
		DirOut:          "output",
		DirLogs:         "logs",
		RRNAIndexPrefix: "rRNA",
		ORFIndexPrefix:  "orf",
		BuildIndices:    boolPtr(true),
		DedupStats:      boolPtr(true),
		NumProcesses:    1,
		MinReadLength:   10,
		MaxReadLength:   50,
		MakeBedgraph:    boolPtr(true),
		CountReads:      boolPtr(true),
		NumWorkers:      1,
		Format:          FormatPretty,
	}
}

// Load reads the workflow configuration from path and merges it over Default.
// Configured paths may contain ${RIBOVIZ_*} environment tokens which are
// expanded here, once, so the rest of the run sees literal paths.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("configuration file %q not found", path)
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg = merge(cfg, fileCfg)
	expandEnvTokens(&cfg)
	return cfg, nil
}

func merge(base, override Config) Config {
	out := base

	if len(override.FqFiles) > 0 {
		out.FqFiles = make(map[string]string, len(override.FqFiles))
		for name, file := range override.FqFiles {
			out.FqFiles[name] = file
		}
	}

	if override.DirIn != "" {
		out.DirIn = override.DirIn
	}
	if override.DirIndex != "" {
		out.DirIndex = override.DirIndex
	}
	if override.DirTmp != "" {
		out.DirTmp = override.DirTmp
	}
	if override.DirOut != "" {
		out.DirOut = override.DirOut
	}
	if override.DirLogs != "" {
		out.DirLogs = override.DirLogs
	}

	if override.RRNAFastaFile != "" {
		out.RRNAFastaFile = override.RRNAFastaFile
	}
	if override.ORFFastaFile != "" {
		out.ORFFastaFile = override.ORFFastaFile
	}
	if override.ORFGFFFile != "" {
		out.ORFGFFFile = override.ORFGFFFile
	}
	if override.RRNAIndexPrefix != "" {
		out.RRNAIndexPrefix = override.RRNAIndexPrefix
	}
	if override.ORFIndexPrefix != "" {
		out.ORFIndexPrefix = override.ORFIndexPrefix
	}
	if override.BuildIndices != nil {
		out.BuildIndices = override.BuildIndices
	}

	if override.Adapters != "" {
		out.Adapters = override.Adapters
	}
	if override.NumProcesses > 0 {
		out.NumProcesses = override.NumProcesses
	}
	if override.MinReadLength > 0 {
		out.MinReadLength = override.MinReadLength
	}
	if override.MaxReadLength > 0 {
		out.MaxReadLength = override.MaxReadLength
	}
	if override.UMIRegexp != "" {
		out.UMIRegexp = override.UMIRegexp
	}
	if override.ExtractUMIs {
		out.ExtractUMIs = true
	}
	if override.DedupUMIs {
		out.DedupUMIs = true
	}
	if override.DedupStats != nil {
		out.DedupStats = override.DedupStats
	}
	if override.GroupUMIs {
		out.GroupUMIs = true
	}
	if override.MakeBedgraph != nil {
		out.MakeBedgraph = override.MakeBedgraph
	}
	if override.CountReads != nil {
		out.CountReads = override.CountReads
	}

	if override.NumWorkers > 0 {
		out.NumWorkers = override.NumWorkers
	}
	if len(override.Samples) > 0 {
		out.Samples = append([]string{}, override.Samples...)
	}

	if override.DryRun {
		out.DryRun = true
	}
	if override.ValidateOnly {
		out.ValidateOnly = true
	}
	if override.Verbose {
		out.Verbose = true
	}
	if override.Format != "" {
		out.Format = override.Format
	}

	return out
}

// envTokens are the path placeholders riboviz configurations may use.
var envTokens = []string{"RIBOVIZ_SAMPLES", "RIBOVIZ_ORGANISMS", "RIBOVIZ_DATA"}

func expandEnvTokens(cfg *Config) {
	cfg.DirIn = expandPath(cfg.DirIn)
	cfg.DirIndex = expandPath(cfg.DirIndex)
	cfg.DirTmp = expandPath(cfg.DirTmp)
	cfg.DirOut = expandPath(cfg.DirOut)
	cfg.DirLogs = expandPath(cfg.DirLogs)
	cfg.RRNAFastaFile = expandPath(cfg.RRNAFastaFile)
	cfg.ORFFastaFile = expandPath(cfg.ORFFastaFile)
	cfg.ORFGFFFile = expandPath(cfg.ORFGFFFile)
	for name, file := range cfg.FqFiles {
		cfg.FqFiles[name] = expandPath(file)
	}
}

func expandPath(path string) string {
	for _, token := range envTokens {
		value := os.Getenv(token)
		if value == "" {
			continue
		}
		path = strings.ReplaceAll(path, "${"+token+"}", value)
	}
	return path
}

// Validate checks the run-level configuration. Failures here are fatal and
// abort the run before any sample is attempted; per-sample problems such as a
// missing FASTQ file are handled later by the driver's validation pass.
func (c Config) Validate(root string) []error {
	var errs []error

	if len(c.FqFiles) == 0 {
		errs = append(errs, errors.New("no samples configured (fq_files is empty)"))
	}
	if c.Adapters == "" {
		errs = append(errs, errors.New("adapters must be set"))
	}
	if c.ExtractUMIs && c.UMIRegexp == "" {
		errs = append(errs, errors.New("extract_umis requires umi_regexp"))
	}
	if c.DedupUMIs && !c.ExtractUMIs {
		errs = append(errs, errors.New("dedup_umis requires extract_umis"))
	}
	if c.MinReadLength > c.MaxReadLength {
		errs = append(errs, fmt.Errorf("min_read_length %d exceeds max_read_length %d", c.MinReadLength, c.MaxReadLength))
	}

	for _, ref := range []struct {
		name string
		path string
	}{
		{"rrna_fasta_file", c.RRNAFastaFile},
		{"orf_fasta_file", c.ORFFastaFile},
		{"orf_gff_file", c.ORFGFFFile},
	} {
		if ref.path == "" {
			errs = append(errs, fmt.Errorf("%s must be set", ref.name))
			continue
		}
		full := ref.path
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, full)
		}
		if _, err := os.Stat(full); err != nil {
			errs = append(errs, fmt.Errorf("%s %q not found", ref.name, ref.path))
		}
	}

	return errs
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.DryRun.Set {
		cfg.DryRun = flags.DryRun.Value
	}
	if flags.ValidateOnly.Set {
		cfg.ValidateOnly = flags.ValidateOnly.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.Workers.Set {
		cfg.NumWorkers = flags.Workers.Value
	}
	if len(flags.Samples.Values) > 0 {
		cfg.Samples = append([]string{}, flags.Samples.Values...)
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	DryRun       BoolFlag
	ValidateOnly BoolFlag
	Verbose      BoolFlag
	Format       StringFlag
	Workers      IntFlag
	Samples      SliceFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// IntFlag represents an int flag and whether it was set.
type IntFlag struct {
	Value int
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}
