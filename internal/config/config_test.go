package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
fq_files:
  WTnone: SRR1042855_s1mi.fastq.gz
  WT3AT: SRR1042864_s1mi.fastq.gz
dir_in: vignette/input
adapters: CTGTAGGCACC
num_processes: 4
build_indices: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, cfg.FqFiles, 2)
	assert.Equal(t, "vignette/input", cfg.DirIn)
	assert.Equal(t, "CTGTAGGCACC", cfg.Adapters)
	assert.Equal(t, 4, cfg.NumProcesses)
	require.NotNil(t, cfg.BuildIndices)
	assert.False(t, *cfg.BuildIndices)

	// Defaults survive where the file is silent.
	assert.Equal(t, "index", cfg.DirIndex)
	assert.Equal(t, 1, cfg.NumWorkers)
	assert.Equal(t, FormatPretty, cfg.Format)
	require.NotNil(t, cfg.MakeBedgraph)
	assert.True(t, *cfg.MakeBedgraph)
	require.NotNil(t, cfg.DedupStats)
	assert.True(t, *cfg.DedupStats)
	assert.False(t, cfg.GroupUMIs)
}

func TestLoadUMIOptions(t *testing.T) {
	path := writeConfig(t, `
fq_files:
  WT3AT: SRR1042864_s1mi.fastq.gz
adapters: CTGTAGGCACC
extract_umis: true
umi_regexp: "^(?P<umi_1>[ATCG]{4})"
dedup_umis: true
dedup_stats: false
group_umis: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.DedupUMIs)
	assert.True(t, cfg.GroupUMIs)
	require.NotNil(t, cfg.DedupStats)
	assert.False(t, *cfg.DedupStats)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "fq_files: [not: a: map\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadExpandsEnvTokens(t *testing.T) {
	t.Setenv("RIBOVIZ_SAMPLES", "/data/samples")
	t.Setenv("RIBOVIZ_ORGANISMS", "/data/organisms")

	path := writeConfig(t, `
fq_files:
  WTnone: ${RIBOVIZ_SAMPLES}/WTnone.fastq.gz
dir_in: ${RIBOVIZ_SAMPLES}
rrna_fasta_file: ${RIBOVIZ_ORGANISMS}/rRNA.fa
adapters: CTGTAGGCACC
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/samples", cfg.DirIn)
	assert.Equal(t, "/data/samples/WTnone.fastq.gz", cfg.FqFiles["WTnone"])
	assert.Equal(t, "/data/organisms/rRNA.fa", cfg.RRNAFastaFile)
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"rRNA.fa", "orf.fa", "orf.gff3"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(">x\nACGT\n"), 0o644))
	}

	cfg := Default()
	cfg.FqFiles = map[string]string{"WTnone": "WTnone.fastq.gz"}
	cfg.Adapters = "CTGTAGGCACC"
	cfg.RRNAFastaFile = "rRNA.fa"
	cfg.ORFFastaFile = "orf.fa"
	cfg.ORFGFFFile = "orf.gff3"

	assert.Empty(t, cfg.Validate(root))

	t.Run("no samples is fatal", func(t *testing.T) {
		bad := cfg
		bad.FqFiles = nil
		errs := bad.Validate(root)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "no samples configured")
	})

	t.Run("missing organism file is fatal", func(t *testing.T) {
		bad := cfg
		bad.ORFGFFFile = "missing.gff3"
		errs := bad.Validate(root)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "orf_gff_file")
	})

	t.Run("umi settings are cross-checked", func(t *testing.T) {
		bad := cfg
		bad.ExtractUMIs = true
		errs := bad.Validate(root)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "umi_regexp")

		bad = cfg
		bad.DedupUMIs = true
		errs = bad.Validate(root)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "dedup_umis requires extract_umis")
	})

	t.Run("read length bounds", func(t *testing.T) {
		bad := cfg
		bad.MinReadLength = 60
		errs := bad.Validate(root)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "min_read_length")
	})
}

func TestApplyFlags(t *testing.T) {
	cfg := Default()
	ApplyFlags(&cfg, FlagValues{
		DryRun:  BoolFlag{Value: true, Set: true},
		Format:  StringFlag{Value: FormatJSON, Set: true},
		Workers: IntFlag{Value: 4, Set: true},
		Samples: SliceFlag{Values: []string{"WT"}},
	})

	assert.True(t, cfg.DryRun)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, 4, cfg.NumWorkers)
	assert.Equal(t, []string{"WT"}, cfg.Samples)

	// Unset flags leave config values alone.
	ApplyFlags(&cfg, FlagValues{})
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 4, cfg.NumWorkers)
}
