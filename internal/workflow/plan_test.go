package workflow

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davbunn1/riboviz/internal/config"
	"github.com/davbunn1/riboviz/internal/discovery"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.FqFiles = map[string]string{"WTnone": "WTnone.fastq.gz"}
	cfg.Adapters = "CTGTAGGCACC"
	cfg.RRNAFastaFile = "organisms/rRNA.fa"
	cfg.ORFFastaFile = "organisms/orf.fa"
	cfg.ORFGFFFile = "organisms/orf.gff3"
	return cfg
}

func stepNames(steps []Step) []string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Name)
	}
	return names
}

func TestSamplePipelineStepOrder(t *testing.T) {
	b := NewBuilder("/run", "config.yaml", testConfig())
	p := b.SamplePipeline(discovery.Input{Sample: "WTnone", Path: "/run/input/WTnone.fastq.gz"})

	assert.Equal(t, []string{
		"cutadapt",
		"hisat2_rrna",
		"hisat2_orf",
		"trim_5p_mismatch",
		"samtools_sort",
		"samtools_index",
		"bedgraph_plus",
		"bedgraph_minus",
		"bam_to_h5",
		"generate_stats_figs",
	}, stepNames(p.Steps))

	for i, step := range p.Steps {
		assert.Equal(t, i+1, step.Index, "steps must be numbered contiguously")
		require.NotEmpty(t, step.Args)
	}
}

func TestSamplePipelineUMISteps(t *testing.T) {
	cfg := testConfig()
	cfg.ExtractUMIs = true
	cfg.UMIRegexp = "^(?P<umi_1>[ATCG]{4}).+(?P<umi_2>[ATCG]{4})$"
	cfg.DedupUMIs = true

	b := NewBuilder("/run", "config.yaml", cfg)
	p := b.SamplePipeline(discovery.Input{Sample: "WT3AT", Path: "/run/input/WT3AT.fastq.gz"})
	names := stepNames(p.Steps)

	assert.Contains(t, names, "umi_extract")
	assert.Contains(t, names, "umi_dedup")
	assert.Contains(t, names, "samtools_index_dedup")

	// UMI extraction follows adapter trimming and feeds the rRNA alignment.
	assert.Equal(t, "cutadapt", names[0])
	assert.Equal(t, "umi_extract", names[1])
	assert.Equal(t, "hisat2_rrna", names[2])

	// Bedgraphs are built from the deduplicated BAM; dedup statistics are
	// written unless dedup_stats is disabled.
	for _, step := range p.Steps {
		switch step.Name {
		case "bedgraph_plus":
			assert.Contains(t, strings.Join(step.Args, " "), "WT3AT_dedup.bam")
		case "umi_dedup":
			assert.Contains(t, step.Args, "--output-stats="+filepath.Join(p.Sample.DirTmp, "dedup_stats"))
		}
	}

	off := false
	cfg.DedupStats = &off
	p = NewBuilder("/run", "config.yaml", cfg).SamplePipeline(discovery.Input{Sample: "WT3AT", Path: "/run/input/WT3AT.fastq.gz"})
	for _, step := range p.Steps {
		if step.Name == "umi_dedup" {
			assert.NotContains(t, strings.Join(step.Args, " "), "--output-stats")
		}
	}
}

func TestSamplePipelineUMIGroups(t *testing.T) {
	cfg := testConfig()
	cfg.ExtractUMIs = true
	cfg.UMIRegexp = "^(?P<umi_1>[ATCG]{4})"
	cfg.DedupUMIs = true
	cfg.GroupUMIs = true

	b := NewBuilder("/run", "config.yaml", cfg)
	p := b.SamplePipeline(discovery.Input{Sample: "WT3AT", Path: "/run/input/WT3AT.fastq.gz"})
	names := stepNames(p.Steps)

	// Grouping brackets deduplication: once over the indexed BAM before
	// dedup, once over the indexed deduplicated BAM after.
	pre := indexOf(names, "umi_group_pre_dedup")
	dedup := indexOf(names, "umi_dedup")
	indexDedup := indexOf(names, "samtools_index_dedup")
	post := indexOf(names, "umi_group_post_dedup")
	require.True(t, pre >= 0 && post >= 0)
	assert.Greater(t, pre, indexOf(names, "samtools_index"))
	assert.Greater(t, dedup, pre)
	assert.Greater(t, post, indexDedup)

	for _, step := range p.Steps {
		switch step.Name {
		case "umi_group_pre_dedup":
			assert.Contains(t, step.Args, "--group-out="+filepath.Join(p.Sample.DirTmp, "pre_dedup_groups.tsv"))
		case "umi_group_post_dedup":
			assert.Contains(t, step.Args, "--group-out="+filepath.Join(p.Sample.DirTmp, "post_dedup_groups.tsv"))
		}
	}

	// Grouping is tied to deduplication.
	cfg.DedupUMIs = false
	p = NewBuilder("/run", "config.yaml", cfg).SamplePipeline(discovery.Input{Sample: "WT3AT", Path: "/run/input/WT3AT.fastq.gz"})
	assert.NotContains(t, stepNames(p.Steps), "umi_group_pre_dedup")
	assert.NotContains(t, stepNames(p.Steps), "umi_group_post_dedup")
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestSamplePipelineDirectories(t *testing.T) {
	b := NewBuilder("/run", "config.yaml", testConfig())
	p := b.SamplePipeline(discovery.Input{Sample: "WTnone", Path: "/run/input/WTnone.fastq.gz"})

	assert.Equal(t, filepath.Join("/run", "tmp", "WTnone"), p.Sample.DirTmp)
	assert.Equal(t, filepath.Join("/run", "output", "WTnone"), p.Sample.DirOut)
	assert.Equal(t, filepath.Join("/run", "logs", "WTnone"), p.Sample.DirLogs)
}

func TestStepLogFileName(t *testing.T) {
	s := Step{Index: 3, Name: "hisat2_rrna"}
	assert.Equal(t, "03_hisat2_rrna.log", s.LogFileName())
}

func TestPlanIndexSteps(t *testing.T) {
	cfg := testConfig()
	b := NewBuilder("/run", "config.yaml", cfg)
	plan := b.Plan([]discovery.Input{{Sample: "WTnone", Path: "/run/input/WTnone.fastq.gz"}})

	require.Len(t, plan.IndexSteps, 2)
	assert.Equal(t, "hisat2_build_rrna", plan.IndexSteps[0].Name)
	assert.Equal(t, "hisat2_build_orf", plan.IndexSteps[1].Name)
	assert.Equal(t, filepath.Join("/run", "logs"), plan.DirLogs)

	off := false
	cfg.BuildIndices = &off
	plan = NewBuilder("/run", "config.yaml", cfg).Plan(nil)
	assert.Empty(t, plan.IndexSteps)
}

func TestPlanWarnsOnUnusedUMIs(t *testing.T) {
	cfg := testConfig()
	cfg.ExtractUMIs = true
	cfg.UMIRegexp = "^(?P<umi_1>[ATCG]{4})"

	plan := NewBuilder("/run", "config.yaml", cfg).Plan(nil)
	require.Len(t, plan.Warnings, 1)
	assert.Equal(t, "umi", plan.Warnings[0].Scope)
	assert.Contains(t, plan.Warnings[0].Message, "dedup_umis")

	cfg.DedupUMIs = true
	plan = NewBuilder("/run", "config.yaml", cfg).Plan(nil)
	assert.Empty(t, plan.Warnings)
}

func TestAggregationSteps(t *testing.T) {
	b := NewBuilder("/run", "config.yaml", testConfig())

	assert.Empty(t, b.AggregationSteps(nil), "no succeeded samples means no aggregation")

	steps := b.AggregationSteps([]string{"WT3AT", "WTnone"})
	require.Len(t, steps, 2)
	assert.Equal(t, "collate_tpms", steps[0].Name)
	assert.Equal(t, "count_reads", steps[1].Name)

	// The collation input set is exactly the succeeded samples.
	joined := strings.Join(steps[0].Args, " ")
	assert.Contains(t, joined, "WT3AT")
	assert.Contains(t, joined, "WTnone")

	cfg := testConfig()
	off := false
	cfg.CountReads = &off
	steps = NewBuilder("/run", "config.yaml", cfg).AggregationSteps([]string{"WTnone"})
	require.Len(t, steps, 1)
	assert.Equal(t, "collate_tpms", steps[0].Name)
}

func TestBedgraphStepsWriteOutputFiles(t *testing.T) {
	b := NewBuilder("/run", "config.yaml", testConfig())
	p := b.SamplePipeline(discovery.Input{Sample: "WTnone", Path: "/run/input/WTnone.fastq.gz"})

	var plus, minus *Step
	for i := range p.Steps {
		switch p.Steps[i].Name {
		case "bedgraph_plus":
			plus = &p.Steps[i]
		case "bedgraph_minus":
			minus = &p.Steps[i]
		}
	}
	require.NotNil(t, plus)
	require.NotNil(t, minus)
	assert.Equal(t, filepath.Join(p.Sample.DirOut, "plus.bedgraph"), plus.OutputFile)
	assert.Equal(t, filepath.Join(p.Sample.DirOut, "minus.bedgraph"), minus.OutputFile)
}
