// Package edits loads the read-name table that drives annotation.
//
// Each line of the table is
//
//	NAME[\tTAGTEXT][\tFLAGTEXT]
//
// and becomes one Edit keyed by NAME. A later line for the same name
// replaces an earlier one.
package edits

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/logging"
	"github.com/scttfrdmn/tagreads-go/pkg/storage"
)

// DefaultTick is the number of lines between progress callbacks
const DefaultTick = 10_000_000

// maxLineLength bounds a single table line
const maxLineLength = 64 * 1024 * 1024

// Capacity hints are bounded so that a misleading first line cannot
// trigger a huge preallocation. minEstimateLine is the shortest line
// length assumed when estimating.
const (
	maxCapacityHint = 1 << 20
	minEstimateLine = 16
)

// Edit holds the changes applied to a matched read
type Edit struct {
	// Tag is the raw tag column: an ID:VALUE token, or a bare value when
	// the run has a default tag without value. Empty means no tag.
	Tag string

	Flag    uint16
	HasFlag bool
}

// IsEmpty reports whether the edit carries neither tag nor flag. Such
// reads only receive the run's default tag and flag.
func (e Edit) IsEmpty() bool {
	return e.Tag == "" && !e.HasFlag
}

// Table maps read names to their edit
type Table map[string]Edit

// LoadOptions configures Load
type LoadOptions struct {
	// Capacity preallocates the table; it is a hint only
	Capacity int

	// Progress, when set, is called with the number of lines read every
	// Tick lines
	Progress func(lines int)
	Tick     int

	Logger *logging.Logger
}

func (o LoadOptions) tick() int {
	if o.Tick > 0 {
		return o.Tick
	}
	return DefaultTick
}

func (o LoadOptions) logger() *logging.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Discard()
}

// Load reads a table from r
func Load(r io.Reader, opts LoadOptions) (Table, error) {
	table := make(Table, capacityHint(opts.Capacity))
	tick := opts.tick()
	duplicates, bare := 0, 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	lines := 0
	for scanner.Scan() {
		if opts.Progress != nil && lines > 0 && lines%tick == 0 {
			opts.Progress(lines)
		}
		lines++

		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		name, edit, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lines, err)
		}
		if _, exists := table[name]; exists {
			duplicates++
		}
		if edit.IsEmpty() {
			bare++
		}
		table[name] = edit
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read read-name table: %w", errs.ErrIO, err)
	}

	log := opts.logger()
	if duplicates > 0 {
		log.Debugf("%d duplicate read names replaced earlier entries", duplicates)
	}
	if bare > 0 {
		log.Debugf("%d read names carry neither tag nor flag", bare)
	}
	return table, nil
}

// ParseLine splits one non-empty table line into the read name and its edit
func ParseLine(line string) (string, Edit, error) {
	name, rest, found := strings.Cut(line, "\t")
	if !found {
		return name, Edit{}, nil
	}

	var edit Edit
	tagText, flagText, hasFlag := strings.Cut(rest, "\t")
	edit.Tag = tagText
	if hasFlag {
		flag, err := strconv.ParseUint(flagText, 10, 16)
		if err != nil {
			return "", Edit{}, fmt.Errorf("%w: invalid flag %q for read %s", errs.ErrParse, flagText, name)
		}
		edit.Flag = uint16(flag)
		edit.HasFlag = true
	}
	return name, edit, nil
}

// capacityHint clamps a requested capacity to [0, maxCapacityHint]
func capacityHint(n int) int {
	return min(max(n, 0), maxCapacityHint)
}

// EstimateLines estimates the number of lines in a file of the given size
// from the length of its first line. An empty first line gives no
// estimate, and lines are assumed to be at least minEstimateLine bytes.
func EstimateLines(size int64, firstLine string) int {
	firstLine = strings.TrimSuffix(firstLine, "\r")
	if size <= 0 || firstLine == "" {
		return 0
	}
	lineLen := max(int64(len(firstLine)+1), minEstimateLine)
	return capacityHint(int(size / lineLen))
}

// LoadFile loads a table from "-", a local path or an s3:// URI. gzip and
// zstd compressed tables are decoded transparently.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (Table, error) {
	log := opts.logger()
	if opts.Capacity == 0 {
		n, err := estimateFileLines(ctx, path)
		if err != nil {
			log.Debugf("cannot estimate size of %s: %v", path, err)
		} else {
			opts.Capacity = n
		}
	}

	r, err := storage.OpenText(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", errs.ErrIO, path, err)
	}
	defer r.Close()

	table, err := Load(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// estimateFileLines applies EstimateLines to an uncompressed local file
func estimateFileLines(ctx context.Context, path string) (int, error) {
	if path == storage.Stdio || storage.IsS3URI(path) {
		return 0, fmt.Errorf("not a local file")
	}
	size, err := storage.Size(ctx, path)
	if err != nil {
		return 0, err
	}

	raw, err := storage.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer raw.Close()

	br := bufio.NewReader(raw)
	if c := storage.Sniff(br); c != storage.None {
		return 0, fmt.Errorf("%s compressed", c)
	}
	first, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return 0, err
	}
	return EstimateLines(size, strings.TrimSuffix(first, "\n")), nil
}
