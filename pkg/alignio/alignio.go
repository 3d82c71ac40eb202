// Package alignio opens SAM and BAM inputs and outputs on top of biogo/hts.
package alignio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/storage"
)

// bgzfMagic is a gzip member header with FEXTRA set, followed by the BC
// subfield identifier at offset 12
var bgzfMagic = []byte{0x1f, 0x8b, 0x08, 0x04}

// Format is the on-disk encoding of an alignment stream
type Format int

const (
	SAM Format = iota
	BAM
)

func (f Format) String() string {
	if f == BAM {
		return "BAM"
	}
	return "SAM"
}

// RecordReader yields records until io.EOF
type RecordReader interface {
	Read() (*sam.Record, error)
}

// Reader is an open alignment input
type Reader struct {
	format  Format
	records RecordReader
	header  *sam.Header
	closers []io.Closer
}

// Read returns the next record, or io.EOF
func (r *Reader) Read() (*sam.Record, error) {
	return r.records.Read()
}

// Header returns the input header
func (r *Reader) Header() *sam.Header {
	return r.header
}

// Format returns the detected input format
func (r *Reader) Format() Format {
	return r.format
}

// Close releases the decoder and the underlying stream
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenReader opens path ("-" for stdin, a local file or an s3:// URI) and
// detects BAM from the BGZF magic; anything else is read as SAM text, after
// gzip or zstd decompression when needed
func OpenReader(ctx context.Context, path string) (*Reader, error) {
	raw, err := storage.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", errs.ErrIO, path, err)
	}

	r, err := NewReader(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closers = append(r.closers, raw)
	return r, nil
}

// NewReader sniffs the stream in and returns a Reader over it. Closing the
// Reader does not close in.
func NewReader(in io.Reader) (*Reader, error) {
	br := bufio.NewReader(in)
	magic, _ := br.Peek(len(bgzfMagic))

	if bytes.Equal(magic, bgzfMagic) {
		bamReader, err := bam.NewReader(br, 1)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create BAM reader: %w", errs.ErrIO, err)
		}
		return &Reader{
			format:  BAM,
			records: bamReader,
			header:  bamReader.Header(),
			closers: []io.Closer{bamReader},
		}, nil
	}

	text, err := storage.Decompress(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	samReader, err := sam.NewReader(text)
	if err != nil {
		text.Close()
		return nil, fmt.Errorf("%w: failed to create SAM reader: %w", errs.ErrIO, err)
	}
	return &Reader{
		format:  SAM,
		records: samReader,
		header:  samReader.Header(),
		closers: []io.Closer{text},
	}, nil
}

// OutputFormat chooses the encoding for an output path: SAM for "", "-"
// and *.sam, BAM otherwise
func OutputFormat(path string) Format {
	if path == "" || path == storage.Stdio || strings.HasSuffix(strings.ToLower(path), ".sam") {
		return SAM
	}
	return BAM
}

// Writer is an open alignment output
type Writer struct {
	format  Format
	write   func(*sam.Record) error
	closers []io.Closer
}

// Write appends a record
func (w *Writer) Write(rec *sam.Record) error {
	return w.write(rec)
}

// Format returns the output encoding
func (w *Writer) Format() Format {
	return w.format
}

// Close flushes the encoder and closes the destination
func (w *Writer) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CreateWriter opens path ("-", a local file or an s3:// URI) for writing
// with header. An empty path or "-" writes SAM text to stdout. Missing local
// directories are created.
func CreateWriter(ctx context.Context, path string, header *sam.Header) (*Writer, error) {
	var out io.Writer = os.Stdout
	var closers []io.Closer
	if path != "" && path != storage.Stdio {
		f, err := storage.Create(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create output file: %w", errs.ErrIO, err)
		}
		out = f
		closers = append(closers, f)
	}

	w, err := NewWriter(out, header, OutputFormat(path))
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}
	w.closers = append(w.closers, closers...)
	return w, nil
}

// NewWriter encodes records to out in the given format. Closing the Writer
// does not close out.
func NewWriter(out io.Writer, header *sam.Header, format Format) (*Writer, error) {
	if format == BAM {
		bamWriter, err := bam.NewWriter(out, header, 1)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create BAM writer: %w", errs.ErrIO, err)
		}
		return &Writer{format: BAM, write: bamWriter.Write, closers: []io.Closer{bamWriter}}, nil
	}

	buf := bufio.NewWriter(out)
	samWriter, err := sam.NewWriter(buf, header, sam.FlagDecimal)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create SAM writer: %w", errs.ErrIO, err)
	}
	return &Writer{format: SAM, write: samWriter.Write, closers: []io.Closer{flusher{buf}}}, nil
}

type flusher struct {
	*bufio.Writer
}

func (f flusher) Close() error {
	return f.Flush()
}
