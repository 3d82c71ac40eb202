package main

import (
	"fmt"

	"github.com/scttfrdmn/tagreads-go/pkg/alignio"
	"github.com/scttfrdmn/tagreads-go/pkg/annotate"
	"github.com/scttfrdmn/tagreads-go/pkg/edits"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/logging"
	"github.com/scttfrdmn/tagreads-go/pkg/storage"
	"github.com/scttfrdmn/tagreads-go/pkg/tags"
	"github.com/spf13/cobra"
)

var (
	tagOutput    string
	tagToken     string
	tagFlag      uint16
	buildIndex   bool
	tagVerbosity int
)

var tagCmd = &cobra.Command{
	Use:   "tag [options] <in> <qnames-table>",
	Short: "Add tags and flags to reads listed in a read-name table",
	Long: `Stream a SAM/BAM file and annotate every read whose name appears in
the read-name table. Other reads are written unchanged.

Each table line is NAME[<TAB>TAG[<TAB>FLAG]]:
  r1                  mark with --tag and --flag only
  r2<TAB>ZB:7         add ZB:7 next to --tag
  r3<TAB><TAB>1024    OR flag 1024 into the read

When --tag is given without a value (e.g. --tag ZA), the TAG column holds
only a value for that tag.

Without --output, SAM text is written to standard output. An output path
ending in .sam is written as SAM, anything else as BAM.

Examples:
  tagreads tag -t ZA:BAR in.bam qnames.tsv -o out.bam -i
  tagreads tag -t ZA -f 1024 in.bam qnames.tsv.gz > out.sam
  samtools view -h in.bam | tagreads tag - s3://bucket/qnames.tsv -o out.bam`,
	Args:    cobra.ExactArgs(2),
	Version: version,
	RunE:    runTag,
}

func runTag(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.Stderr(tagVerbosity)
	inPath, tablePath := args[0], args[1]

	if err := checkInput(ctx, inPath); err != nil {
		return err
	}
	if err := checkInput(ctx, tablePath); err != nil {
		return err
	}
	if buildIndex && tagOutput == "" {
		log.Warnf("cannot build BAM index without --output")
	}

	config := annotate.NewConfig()
	config.Logger = log
	if cmd.Flags().Changed("tag") {
		tag, err := tags.Parse(tagToken)
		if err != nil {
			return err
		}
		config.DefaultTag = &tag
	}
	if cmd.Flags().Changed("flag") {
		config.Flag = tagFlag
		config.HasFlag = true
	}

	table, err := edits.LoadFile(ctx, tablePath, edits.LoadOptions{
		Logger: log,
		Progress: func(lines int) {
			log.Debugf("Read %d lines of %s", lines, tablePath)
		},
	})
	if err != nil {
		return err
	}
	log.Infof("Loaded %d read names", len(table))

	engine, err := annotate.NewEngine(table, config)
	if err != nil {
		return err
	}
	log.Debugf("Tag column mode: %s", engine.Mode())

	in, err := alignio.OpenReader(ctx, inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := alignio.CreateWriter(ctx, tagOutput, in.Header())
	if err != nil {
		return err
	}
	if err := engine.Run(ctx, in, out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: failed to close output: %w", errs.ErrIO, err)
	}

	if buildIndex && tagOutput != "" {
		indexOutput(log, tagOutput)
	}
	return nil
}

// indexOutput builds the BAM index for path; failures are only reported
func indexOutput(log *logging.Logger, path string) {
	if storage.IsS3URI(path) {
		log.Warnf("cannot build index for remote output %s", path)
		return
	}
	if alignio.OutputFormat(path) != alignio.BAM {
		log.Warnf("cannot build index for SAM output %s", path)
		return
	}
	if err := alignio.BuildIndex(path); err != nil {
		log.Warnf("failed to build BAM index: %v", err)
		return
	}
	log.Infof("Wrote index %s.bai", path)
}

func init() {
	tagCmd.Flags().StringVarP(&tagOutput, "output", "o", "",
		"Output SAM/BAM file (default: SAM on stdout)")
	tagCmd.Flags().StringVarP(&tagToken, "tag", "t", "",
		"Tag ID[:VALUE] added to every listed read")
	tagCmd.Flags().Uint16VarP(&tagFlag, "flag", "f", 0,
		"Flag bits OR-ed into every listed read")
	tagCmd.Flags().BoolVarP(&buildIndex, "index", "i", false,
		"Build a BAM index for --output")
	tagCmd.Flags().IntVar(&tagVerbosity, "verbosity", 0,
		"Logging verbosity (0 warnings, 1 progress, 2 debug)")
}
