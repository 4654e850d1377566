package workflow

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/davbunn1/riboviz/internal/config"
	"github.com/davbunn1/riboviz/internal/discovery"
)

// Intermediate and output file names within a sample's directories.
const (
	adapterTrimFq   = "trim.fq"
	umiExtractFq    = "extract_trim.fq"
	nonRRNAFq       = "nonrRNA.fq"
	rRNAMapSam      = "rRNA_map.sam"
	unalignedFq     = "unaligned.fq"
	orfMapSam       = "orf_map.sam"
	orfMapCleanSam  = "orf_map_clean.sam"
	plusBedgraph    = "plus.bedgraph"
	minusBedgraph   = "minus.bedgraph"
	dedupStatsStem  = "dedup_stats"
	preDedupGroups  = "pre_dedup_groups.tsv"
	postDedupGroups = "post_dedup_groups.tsv"
	tpmsCollatedTsv = "TPMs_collated.tsv"
	readCountsTsv   = "read_counts.tsv"
)

// Builder constructs per-sample pipelines and aggregation steps from the
// configuration. Paths are resolved against Root unless absolute.
type Builder struct {
	Root       string
	ConfigPath string
	Config     config.Config
}

// NewBuilder returns a Builder for the given run root and configuration.
func NewBuilder(root, configPath string, cfg config.Config) *Builder {
	return &Builder{Root: root, ConfigPath: configPath, Config: cfg}
}

// Plan builds the full run plan for the resolved sample inputs. Whether an
// input file exists is not checked here; the driver's validation pass reports
// missing inputs as per-sample failures.
func (b *Builder) Plan(inputs []discovery.Input) Plan {
	plan := Plan{DirLogs: b.path(b.Config.DirLogs)}
	if b.Config.BuildIndices != nil && *b.Config.BuildIndices {
		plan.IndexSteps = b.IndexSteps()
	}
	for _, in := range inputs {
		plan.Pipelines = append(plan.Pipelines, b.SamplePipeline(in))
	}
	if b.Config.ExtractUMIs && !b.Config.DedupUMIs {
		plan.Warnings = append(plan.Warnings, Warning{
			Scope:   "umi",
			Message: "extract_umis is enabled without dedup_umis; extracted UMIs will not be used",
		})
	}
	return plan
}

// IndexDir returns the resolved index directory.
func (b *Builder) IndexDir() string {
	return b.path(b.Config.DirIndex)
}

// IndexSteps returns the global hisat2-build invocations that must complete
// before any sample pipeline runs.
func (b *Builder) IndexSteps() []Step {
	dirIndex := b.path(b.Config.DirIndex)
	return []Step{
		{
			Index:       1,
			Name:        "hisat2_build_rrna",
			Description: "Build hisat2 rRNA index",
			Args: []string{
				"hisat2-build",
				b.path(b.Config.RRNAFastaFile),
				filepath.Join(dirIndex, b.Config.RRNAIndexPrefix),
			},
		},
		{
			Index:       2,
			Name:        "hisat2_build_orf",
			Description: "Build hisat2 ORF index",
			Args: []string{
				"hisat2-build",
				b.path(b.Config.ORFFastaFile),
				filepath.Join(dirIndex, b.Config.ORFIndexPrefix),
			},
		},
	}
}

// SamplePipeline builds the ordered step sequence for one sample.
func (b *Builder) SamplePipeline(in discovery.Input) Pipeline {
	cfg := b.Config
	sample := Sample{
		Name:      in.Sample,
		InputFile: in.Path,
		DirTmp:    filepath.Join(b.path(cfg.DirTmp), in.Sample),
		DirOut:    filepath.Join(b.path(cfg.DirOut), in.Sample),
		DirLogs:   filepath.Join(b.path(cfg.DirLogs), in.Sample),
	}

	tmp := func(name string) string { return filepath.Join(sample.DirTmp, name) }
	out := func(name string) string { return filepath.Join(sample.DirOut, name) }
	procs := strconv.Itoa(cfg.NumProcesses)
	dirIndex := b.path(cfg.DirIndex)

	var steps []Step
	add := func(name, description string, args []string) *Step {
		steps = append(steps, Step{
			Index:       len(steps) + 1,
			Name:        name,
			Description: description,
			Args:        args,
		})
		return &steps[len(steps)-1]
	}

	add("cutadapt", "Cut out sequencing library adapters", []string{
		"cutadapt", "--trim-n", "-O", "1", "-m", "5",
		"-a", cfg.Adapters,
		"-o", tmp(adapterTrimFq),
		"-j", procs,
		sample.InputFile,
	})

	alignInput := tmp(adapterTrimFq)
	if cfg.ExtractUMIs {
		add("umi_extract", "Extract UMIs and barcodes", []string{
			"umi_tools", "extract",
			"-I", tmp(adapterTrimFq),
			"-S", tmp(umiExtractFq),
			"--bc-pattern=" + cfg.UMIRegexp,
			"--extract-method=regex",
		})
		alignInput = tmp(umiExtractFq)
	}

	add("hisat2_rrna", "Remove rRNA or other contaminating reads", []string{
		"hisat2", "-p", procs, "-N", "1", "-k", "1",
		"--un", tmp(nonRRNAFq),
		"-x", filepath.Join(dirIndex, cfg.RRNAIndexPrefix),
		"-S", tmp(rRNAMapSam),
		"-U", alignInput,
	})

	add("hisat2_orf", "Align remaining reads to ORFs", []string{
		"hisat2", "-p", procs, "-k", "2",
		"--no-spliced-alignment", "--rna-strandness", "F", "--no-unal",
		"--un", tmp(unalignedFq),
		"-x", filepath.Join(dirIndex, cfg.ORFIndexPrefix),
		"-S", tmp(orfMapSam),
		"-U", tmp(nonRRNAFq),
	})

	add("trim_5p_mismatch", "Trim 5' mismatches and remove imperfect matches", []string{
		"trim_5p_mismatch",
		"-m", "2",
		"-i", tmp(orfMapSam),
		"-o", tmp(orfMapCleanSam),
	})

	bam := out(sample.Name + ".bam")
	add("samtools_sort", "Convert alignments to sorted BAM", []string{
		"samtools", "sort", "-@", procs, "-O", "bam",
		"-o", bam,
		tmp(orfMapCleanSam),
	})
	add("samtools_index", "Index the BAM file", []string{
		"samtools", "index", bam,
	})

	if cfg.DedupUMIs {
		if cfg.GroupUMIs {
			add("umi_group_pre_dedup", "Identify UMI groups before deduplication", []string{
				"umi_tools", "group",
				"-I", bam,
				"--group-out=" + tmp(preDedupGroups),
			})
		}
		dedupBam := out(sample.Name + "_dedup.bam")
		dedupArgs := []string{
			"umi_tools", "dedup",
			"-I", bam,
			"-S", dedupBam,
		}
		if cfg.DedupStats != nil && *cfg.DedupStats {
			dedupArgs = append(dedupArgs, "--output-stats="+tmp(dedupStatsStem))
		}
		add("umi_dedup", "Deduplicate reads using UMIs", dedupArgs)
		add("samtools_index_dedup", "Index the deduplicated BAM file", []string{
			"samtools", "index", dedupBam,
		})
		if cfg.GroupUMIs {
			add("umi_group_post_dedup", "Identify UMI groups after deduplication", []string{
				"umi_tools", "group",
				"-I", dedupBam,
				"--group-out=" + tmp(postDedupGroups),
			})
		}
		bam = dedupBam
	}

	if cfg.MakeBedgraph != nil && *cfg.MakeBedgraph {
		plus := add("bedgraph_plus", "Make plus-strand bedgraph", []string{
			"bedtools", "genomecov", "-ibam", bam, "-bga", "-5", "-strand", "+",
		})
		plus.OutputFile = out(plusBedgraph)
		minus := add("bedgraph_minus", "Make minus-strand bedgraph", []string{
			"bedtools", "genomecov", "-ibam", bam, "-bga", "-5", "-strand", "-",
		})
		minus.OutputFile = out(minusBedgraph)
	}

	add("bam_to_h5", "Summarise alignments per codon position", []string{
		"Rscript", "--vanilla", "bam_to_h5.R",
		"--bam-file=" + bam,
		"--orf-gff-file=" + b.path(cfg.ORFGFFFile),
		"--hd-file=" + out(sample.Name+".h5"),
		"--num-processes=" + procs,
		"--min-read-length=" + strconv.Itoa(cfg.MinReadLength),
		"--max-read-length=" + strconv.Itoa(cfg.MaxReadLength),
	})

	add("generate_stats_figs", "Generate statistics and figures", []string{
		"Rscript", "--vanilla", "generate_stats_figs.R",
		"--hd-file=" + out(sample.Name+".h5"),
		"--orf-fasta-file=" + b.path(cfg.ORFFastaFile),
		"--orf-gff-file=" + b.path(cfg.ORFGFFFile),
		"--output-dir=" + sample.DirOut,
		"--num-processes=" + procs,
		"--min-read-length=" + strconv.Itoa(cfg.MinReadLength),
		"--max-read-length=" + strconv.Itoa(cfg.MaxReadLength),
	})

	return Pipeline{Sample: sample, Steps: steps}
}

// AggregationSteps builds the post-processing steps run once over the samples
// that reached a successful terminal state. The returned slice is empty when
// no sample succeeded.
func (b *Builder) AggregationSteps(succeeded []string) []Step {
	if len(succeeded) == 0 {
		return nil
	}
	cfg := b.Config
	dirOut := b.path(cfg.DirOut)

	collate := []string{
		"Rscript", "--vanilla", "collate_tpms.R",
		"--tpms-file=" + filepath.Join(dirOut, tpmsCollatedTsv),
		"--sample-subdirs=true",
		"--output-dir=" + dirOut,
	}
	collate = append(collate, succeeded...)

	steps := []Step{
		{
			Index:       1,
			Name:        "collate_tpms",
			Description: fmt.Sprintf("Collate TPMs across %d samples", len(succeeded)),
			Args:        collate,
		},
	}

	if cfg.CountReads != nil && *cfg.CountReads {
		steps = append(steps, Step{
			Index:       2,
			Name:        "count_reads",
			Description: "Count reads processed at each stage",
			Args: []string{
				"count_reads",
				"-c", b.path(b.ConfigPath),
				"-i", b.path(cfg.DirIn),
				"-t", b.path(cfg.DirTmp),
				"-o", dirOut,
				"-r", filepath.Join(dirOut, readCountsTsv),
			},
		})
	}

	return steps
}

func (b *Builder) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.Root, p)
}
