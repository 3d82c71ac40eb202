package tagstats

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// ReportOptions controls row ordering
type ReportOptions struct {
	// Sorted orders the counted rows by descending count; ties keep their
	// original order
	Sorted bool
}

// Report writes stats as a tab-delimited table. The first data row always
// counts every scanned read.
func Report(w io.Writer, stats *Stats, opts ReportOptions) error {
	rows := stats.Rows()
	if opts.Sorted {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Count > rows[j].Count
		})
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "tag\tvalue\tcount\tfraction")

	all := "0"
	if stats.TotalReads > 0 {
		all = "1"
	}
	fmt.Fprintf(bw, "*\t*\t%d\t%s\n", stats.TotalReads, all)

	for _, row := range rows {
		fmt.Fprintf(bw, "%s\t%s\t%d\t%s\n", row.Tag, row.Value, row.Count, fraction(row.Count, stats.TotalReads))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func fraction(count, total int) string {
	if total == 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(count)/float64(total), 'f', -1, 64)
}
