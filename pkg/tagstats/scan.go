package tagstats

import (
	"context"
	"fmt"
	"io"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/tagreads-go/pkg/alignio"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/filter"
	"github.com/scttfrdmn/tagreads-go/pkg/logging"
	"github.com/scttfrdmn/tagreads-go/pkg/regions"
)

// DefaultLogTick is the number of scanned records between progress lines
const DefaultLogTick = 10_000_000

// RegionQuerier iterates the records of a contig that overlap a merged
// interval list
type RegionQuerier interface {
	Header() *sam.Header
	Query(contig string, merged []regions.Interval, fn func(*sam.Record) error) error
}

// Scanner feeds filtered records into Stats
type Scanner struct {
	Stats   *Stats
	Filter  filter.Predicate
	LogTick int
	Logger  *logging.Logger

	scanned int
	kept    int
}

// NewScanner creates a Scanner with default settings
func NewScanner(stats *Stats, keep filter.Predicate, log *logging.Logger) *Scanner {
	return &Scanner{
		Stats:   stats,
		Filter:  keep,
		LogTick: DefaultLogTick,
		Logger:  log,
	}
}

// Scanned returns the number of records seen
func (s *Scanner) Scanned() int {
	return s.scanned
}

// Kept returns the number of records that passed the filter
func (s *Scanner) Kept() int {
	return s.kept
}

func (s *Scanner) init() {
	if s.Filter == nil {
		s.Filter = filter.All
	}
	if s.LogTick < 1 {
		s.LogTick = DefaultLogTick
	}
	if s.Logger == nil {
		s.Logger = logging.Discard()
	}
}

func (s *Scanner) observe(rec *sam.Record) {
	if s.scanned > 0 && s.scanned%s.LogTick == 0 {
		s.logProgress()
	}
	s.scanned++
	if !s.Filter(rec) {
		return
	}
	s.kept++
	s.Stats.Observe(rec)
}

// ScanAll reads r to the end
func (s *Scanner) ScanAll(ctx context.Context, r alignio.RecordReader) error {
	s.init()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read record: %w", errs.ErrIO, err)
		}
		s.observe(rec)
	}
	s.finish()
	return nil
}

// ScanRegions visits only the records overlapping set, contig by contig in
// header order. set must already be merged. Contigs missing from the header
// are skipped with a warning.
func (s *Scanner) ScanRegions(ctx context.Context, q RegionQuerier, set regions.Set) error {
	s.init()

	visited := make(map[string]bool, len(set))
	visit := func(rec *sam.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.observe(rec)
		return nil
	}
	for _, ref := range q.Header().Refs() {
		merged, ok := set[ref.Name()]
		if !ok {
			continue
		}
		visited[ref.Name()] = true
		if err := q.Query(ref.Name(), merged, visit); err != nil {
			return err
		}
	}
	for _, contig := range set.Contigs() {
		if !visited[contig] {
			s.Logger.Warnf("target contig %s not found in alignment header", contig)
		}
	}

	s.finish()
	return nil
}

func (s *Scanner) finish() {
	if s.Logger.Enabled(logging.Info) {
		s.logProgress()
	}
}

func (s *Scanner) logProgress() {
	pct := 0
	if s.scanned > 0 {
		pct = 100 * s.kept / s.scanned
	}
	s.Logger.Infof("Scanned %d reads -- kept %d (~%d%%)", s.scanned, s.kept, pct)
}
