package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/shenwei356/xopen"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Compression identifies the encoding of a text input
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "none"
}

// Sniff reports the compression of the stream behind br without consuming it
func Sniff(br *bufio.Reader) Compression {
	magic, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		return Gzip
	case bytes.HasPrefix(magic, zstdMagic):
		return Zstd
	}
	return None
}

// Decompress wraps r so that gzip (including BGZF) and zstd streams are
// decoded transparently; plain text passes through
func Decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	switch Sniff(br) {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return zr, nil
	case Zstd:
		decoder, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return decoder.IOReadCloser(), nil
	}
	return io.NopCloser(br), nil
}

// TextReader is a decompressed text input; Close releases both the
// decoder and the underlying object
type TextReader struct {
	io.Reader
	closers []io.Closer
}

// Close closes the decoder then the underlying object
func (t *TextReader) Close() error {
	var first error
	for _, c := range t.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenText opens a possibly compressed text input from "-", a local path
// or an s3:// URI
func OpenText(ctx context.Context, path string) (*TextReader, error) {
	raw, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	dec, err := Decompress(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &TextReader{Reader: dec, closers: []io.Closer{dec, raw}}, nil
}

// CreateOutput opens a report destination. s3:// URIs are uploaded on
// Close; "-" and local paths go through xopen, which gzips ".gz" paths.
func CreateOutput(ctx context.Context, path string) (io.WriteCloser, error) {
	if IsS3URI(path) {
		return Create(ctx, path)
	}
	w, err := xopen.Wopen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return w, nil
}
