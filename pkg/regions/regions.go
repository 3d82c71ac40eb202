// Package regions loads BED target regions and merges them per contig.
package regions

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/storage"
)

// Interval is a zero-based, half-open [Begin, End) genomic interval
type Interval struct {
	Begin, End uint32
}

// Len returns the number of bases covered
func (iv Interval) Len() uint32 {
	if iv.End < iv.Begin {
		return 0
	}
	return iv.End - iv.Begin
}

// Less orders intervals by Begin, then End
func (iv Interval) Less(other Interval) bool {
	if iv.Begin != other.Begin {
		return iv.Begin < other.Begin
	}
	return iv.End < other.End
}

// Sort sorts intervals by Begin, then End
func Sort(intervals []Interval) {
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Less(intervals[j])
	})
}

// Merge merges overlapping and touching intervals.
// intervals must be sorted with Sort before calling Merge. In the result,
// every interval ends strictly before the next one begins.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	var merged []Interval
	emit := func(run Interval) {
		if n := len(merged); n > 0 && merged[n-1] == run {
			return
		}
		merged = append(merged, run)
	}

	run := intervals[0]
	for _, x := range intervals[1:] {
		if x.Begin > run.End {
			emit(run)
			run = x
		} else if x.End >= run.End {
			run.End = x.End
		}
	}
	emit(run)
	return merged
}

// Overlaps reports whether [begin, end) intersects any of the merged
// intervals. An empty span is treated as covering the single base at begin.
func Overlaps(merged []Interval, begin, end uint32) bool {
	if end <= begin {
		end = begin + 1
	}
	i := sort.Search(len(merged), func(i int) bool {
		return merged[i].End > begin
	})
	return i < len(merged) && merged[i].Begin < end
}

// Set maps contig names to their intervals
type Set map[string][]Interval

// Add appends an interval to a contig
func (s Set) Add(contig string, iv Interval) {
	s[contig] = append(s[contig], iv)
}

// Merge sorts and merges the intervals of every contig in place
func (s Set) Merge() {
	for contig, intervals := range s {
		Sort(intervals)
		s[contig] = Merge(intervals)
	}
}

// Contigs returns the contig names in lexical order
func (s Set) Contigs() []string {
	contigs := make([]string, 0, len(s))
	for contig := range s {
		contigs = append(contigs, contig)
	}
	sort.Strings(contigs)
	return contigs
}

// Stats summarizes a merged Set
type Stats struct {
	Contigs int
	Targets int
	Bases   uint64
}

// Stats counts contigs, intervals and covered bases. Call Merge first so
// that overlapping intervals are not counted twice.
func (s Set) Stats() Stats {
	var st Stats
	for _, intervals := range s {
		if len(intervals) == 0 {
			continue
		}
		st.Contigs++
		st.Targets += len(intervals)
		for _, iv := range intervals {
			st.Bases += uint64(iv.Len())
		}
	}
	return st
}

// LoadBED reads CONTIG\tSTART\tEND lines. Extra columns are ignored;
// blank, comment, track and browser lines are skipped.
func LoadBED(r io.Reader) (Set, error) {
	set := make(Set)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if text == "" ||
			strings.HasPrefix(text, "#") ||
			strings.HasPrefix(text, "track") ||
			strings.HasPrefix(text, "browser") {
			continue
		}

		fields := strings.SplitN(text, "\t", 4)
		if len(fields) < 3 || fields[0] == "" {
			return nil, fmt.Errorf("%w: BED line %d: expected CONTIG, START and END", errs.ErrParse, line)
		}
		begin, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: BED line %d: invalid start %q", errs.ErrParse, line, fields[1])
		}
		end, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: BED line %d: invalid end %q", errs.ErrParse, line, fields[2])
		}
		if end < begin {
			return nil, fmt.Errorf("%w: BED line %d: end %d before start %d", errs.ErrParse, line, end, begin)
		}
		set.Add(fields[0], Interval{Begin: uint32(begin), End: uint32(end)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read BED: %w", errs.ErrIO, err)
	}
	return set, nil
}

// LoadBEDFile loads a BED file from a local path, "-" or an s3:// URI;
// gzip and zstd compressed files are decoded transparently
func LoadBEDFile(ctx context.Context, path string) (Set, error) {
	r, err := storage.OpenText(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", errs.ErrIO, path, err)
	}
	defer r.Close()

	set, err := LoadBED(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}
