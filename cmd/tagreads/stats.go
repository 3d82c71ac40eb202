package main

import (
	"fmt"

	"github.com/scttfrdmn/tagreads-go/pkg/alignio"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/filter"
	"github.com/scttfrdmn/tagreads-go/pkg/logging"
	"github.com/scttfrdmn/tagreads-go/pkg/regions"
	"github.com/scttfrdmn/tagreads-go/pkg/storage"
	"github.com/scttfrdmn/tagreads-go/pkg/tagstats"
	"github.com/spf13/cobra"
)

var (
	statsTags      []string
	statsTagFile   string
	splitValues    bool
	targetRegions  string
	requireFlag    uint16
	excludeFlag    uint16
	minMapQ        uint8
	statsOutput    string
	sortRows       bool
	statsVerbosity int
)

var statsCmd = &cobra.Command{
	Use:   "stats [options] <in>",
	Short: "Count reads carrying the given tags",
	Long: `Count the reads of a SAM/BAM file that carry each requested tag.

A tag given as ID counts every field with that id. A tag given as
ID:PATTERN counts reads whose first ID field contains a match for the
regular expression PATTERN.

With --target-regions only reads overlapping the BED targets are counted;
this needs a coordinate-sorted, indexed BAM.

Output columns: tag, value, count, fraction. The first row counts every
read that passed the filters.

Examples:
  tagreads stats -t ZA in.bam
  tagreads stats -t ZA --split --sort -F 1024 -q 20 in.bam -o counts.tsv
  tagreads stats --tag-file tags.txt -L targets.bed.gz in.bam`,
	Args:    cobra.ExactArgs(1),
	Version: version,
	RunE:    runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.Stderr(statsVerbosity)
	inPath := args[0]

	if len(statsTags) == 0 && statsTagFile == "" {
		return fmt.Errorf("%w: one of --tag or --tag-file is required", errs.ErrConfiguration)
	}
	searchTags, err := tagstats.ParseSearchTags(statsTags)
	if err != nil {
		return err
	}
	if statsTagFile != "" {
		fromFile, err := tagstats.LoadSearchTags(ctx, statsTagFile)
		if err != nil {
			return err
		}
		searchTags = append(searchTags, fromFile...)
	}
	if err := checkInput(ctx, inPath); err != nil {
		return err
	}

	var fc filter.Config
	if cmd.Flags().Changed("require-flag") {
		fc.Require = &requireFlag
	}
	if cmd.Flags().Changed("exclude-flag") {
		fc.Exclude = &excludeFlag
	}
	if cmd.Flags().Changed("min-mapq") {
		fc.MinMapQ = &minMapQ
	}
	stats := tagstats.New(searchTags, splitValues)
	log.Debugf("Counting %d distinct tags (split values: %t) with %d read filters",
		len(stats.SearchTags()), stats.Split(), fc.Active())
	scanner := tagstats.NewScanner(stats, filter.New(fc), log)

	if targetRegions != "" {
		set, err := regions.LoadBEDFile(ctx, targetRegions)
		if err != nil {
			return err
		}
		set.Merge()
		st := set.Stats()
		log.Infof("Loaded %d targets on %d contigs covering %d bases", st.Targets, st.Contigs, st.Bases)

		in, err := alignio.OpenIndexed(inPath)
		if err != nil {
			return err
		}
		defer in.Close()
		if err := scanner.ScanRegions(ctx, in, set); err != nil {
			return err
		}
	} else {
		in, err := alignio.OpenReader(ctx, inPath)
		if err != nil {
			return err
		}
		defer in.Close()
		if err := scanner.ScanAll(ctx, in); err != nil {
			return err
		}
	}

	out, err := storage.CreateOutput(ctx, statsOutput)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	if err := tagstats.Report(out, stats, tagstats.ReportOptions{Sorted: sortRows}); err != nil {
		out.Close()
		return fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %w", errs.ErrIO, statsOutput, err)
	}
	return nil
}

func init() {
	statsCmd.Flags().StringArrayVarP(&statsTags, "tag", "t", nil,
		"Tag ID[:PATTERN] to count (repeatable)")
	statsCmd.Flags().StringVar(&statsTagFile, "tag-file", "",
		"File with one tag ID[:PATTERN] per line")
	statsCmd.Flags().BoolVar(&splitValues, "split", false,
		"Also count each distinct tag value")
	statsCmd.Flags().StringVarP(&targetRegions, "target-regions", "L", "",
		"BED file of target regions (needs an indexed BAM)")
	statsCmd.Flags().Uint16VarP(&requireFlag, "require-flag", "f", 0,
		"Only count reads with all of these flag bits set")
	statsCmd.Flags().Uint16VarP(&excludeFlag, "exclude-flag", "F", 0,
		"Skip reads with any of these flag bits set")
	statsCmd.Flags().Uint8VarP(&minMapQ, "min-mapq", "q", 0,
		"Only count reads with at least this mapping quality")
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", storage.Stdio,
		"Output file; .gz is compressed, s3:// is uploaded (default: stdout)")
	statsCmd.Flags().BoolVar(&sortRows, "sort", false,
		"Order rows by descending count")
	statsCmd.Flags().IntVar(&statsVerbosity, "verbosity", 0,
		"Logging verbosity (0 warnings, 1 progress, 2 debug)")
}
