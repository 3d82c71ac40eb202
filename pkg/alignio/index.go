package alignio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/regions"
)

// maxIndexPos is the largest coordinate a BAI index can address
const maxIndexPos = 1<<29 - 1

// ErrUnknownContig is returned by Query for a contig missing from the header
var ErrUnknownContig = errors.New("contig not in header")

// BuildIndex re-reads the coordinate-sorted BAM at path and writes path.bai
func BuildIndex(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open BAM file: %w", err)
	}
	defer f.Close()

	br, err := bam.NewReader(f, 1)
	if err != nil {
		return fmt.Errorf("failed to create BAM reader: %w", err)
	}
	defer br.Close()

	var idx bam.Index
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read BAM record: %w", err)
		}
		if err := idx.Add(rec, br.LastChunk()); err != nil {
			return fmt.Errorf("failed to index record %s: %w", rec.Name, err)
		}
	}

	out, err := os.Create(path + ".bai")
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	if err := bam.WriteIndex(out, &idx); err != nil {
		out.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}
	return out.Close()
}

// indexPaths lists the candidate index locations for a BAM path
func indexPaths(path string) []string {
	paths := []string{path + ".bai"}
	if trimmed := strings.TrimSuffix(path, ".bam"); trimmed != path {
		paths = append(paths, trimmed+".bai")
	}
	return paths
}

// IndexedReader supports region queries on a local indexed BAM
type IndexedReader struct {
	file   *os.File
	reader *bam.Reader
	index  *bam.Index
	refs   map[string]*sam.Reference
}

// OpenIndexed opens the BAM at path together with path.bai, falling back
// to the path with .bam replaced by .bai
func OpenIndexed(path string) (*IndexedReader, error) {
	var idx *bam.Index
	for _, candidate := range indexPaths(path) {
		f, err := os.Open(candidate)
		if err != nil {
			continue
		}
		idx, err = bam.ReadIndex(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read index %s: %w", errs.ErrIO, candidate, err)
		}
		break
	}
	if idx == nil {
		return nil, fmt.Errorf("%w: no index found for %s", errs.ErrIO, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open BAM file: %w", errs.ErrIO, err)
	}
	br, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: failed to create BAM reader: %w", errs.ErrIO, err)
	}

	refs := make(map[string]*sam.Reference)
	for _, ref := range br.Header().Refs() {
		refs[ref.Name()] = ref
	}
	return &IndexedReader{file: f, reader: br, index: idx, refs: refs}, nil
}

// Header returns the BAM header
func (r *IndexedReader) Header() *sam.Header {
	return r.reader.Header()
}

// Close closes the BAM reader and file
func (r *IndexedReader) Close() error {
	err := r.reader.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Query calls fn for every record on contig that overlaps one of the
// merged intervals. merged must be sorted and non-overlapping, as produced
// by regions.Merge; each record is passed to fn at most once.
func (r *IndexedReader) Query(contig string, merged []regions.Interval, fn func(*sam.Record) error) error {
	ref, ok := r.refs[contig]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContig, contig)
	}

	for i, iv := range merged {
		if iv.Begin > maxIndexPos {
			break
		}
		end := iv.End
		if end > maxIndexPos {
			end = maxIndexPos
		}
		if end <= iv.Begin {
			end = iv.Begin + 1
		}

		chunks, err := r.index.Chunks(ref, int(iv.Begin), int(end))
		if errors.Is(err, index.ErrNoReference) || errors.Is(err, index.ErrInvalid) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: failed to query %s:%d-%d: %w", errs.ErrIO, contig, iv.Begin, iv.End, err)
		}
		if len(chunks) == 0 {
			continue
		}

		if err := r.iterate(chunks, merged, i, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *IndexedReader) iterate(chunks []bgzf.Chunk, merged []regions.Interval, i int, fn func(*sam.Record) error) error {
	it, err := bam.NewIterator(r.reader, chunks)
	if err != nil {
		return fmt.Errorf("%w: failed to create iterator: %w", errs.ErrIO, err)
	}
	defer it.Close()

	current := merged[i : i+1]
	for it.Next() {
		rec := it.Record()
		pos := uint32(max(rec.Pos, 0))
		end := uint32(max(rec.End(), rec.Pos, 0))
		if !regions.Overlaps(current, pos, end) {
			continue
		}
		// Records starting before the previous interval ended were seen
		// by the previous query.
		if i > 0 && pos < merged[i-1].End {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("%w: failed to read records: %w", errs.ErrIO, err)
	}
	return nil
}
