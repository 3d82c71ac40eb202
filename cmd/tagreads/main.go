package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/storage"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "tagreads",
	Short: "Tag named reads and summarize alignment tags",
	Long: `tagreads annotates reads listed in a read-name table with auxiliary
tags and flag bits, and reports how often tags occur across a SAM/BAM file.

Inputs may be local paths, "-" for standard input, or s3://bucket/key URIs.
Read-name tables, BED files and tag files may be gzip or zstd compressed.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(statsCmd)
}

// checkInput fails with ErrMissingInput when path does not exist.
// Standard input is always accepted.
func checkInput(ctx context.Context, path string) error {
	if path == storage.Stdio {
		return nil
	}
	ok, err := storage.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: failed to check %s: %w", errs.ErrIO, path, err)
	}
	if !ok {
		return fmt.Errorf("%w: input file %s does not exist", errs.ErrMissingInput, path)
	}
	return nil
}
