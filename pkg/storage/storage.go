// Package storage opens the text inputs and report outputs of tagreads
// from the local filesystem, standard streams or S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Stdio is the path naming standard input or standard output
const Stdio = "-"

// Storage is an interface for reading and writing whole objects.
// Names are relative to the backend (a file path, or an S3 key).
type Storage interface {
	// Open opens an object for streaming reads
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Create opens an object for writing; data is visible after Close
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// Size returns the object size in bytes
	Size(ctx context.Context, name string) (int64, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, name string) (bool, error)

}

// LocalStorage implements Storage for the local filesystem and "-"
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a local storage backend rooted at basePath.
// An empty basePath resolves names against the working directory.
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

func (s *LocalStorage) fullPath(name string) string {
	if s.basePath == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.basePath, name)
}

func (s *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == Stdio {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(s.fullPath(name))
}

func (s *LocalStorage) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if name == Stdio {
		return nopWriteCloser{os.Stdout}, nil
	}
	fullPath := s.fullPath(name)
	if dir := filepath.Dir(fullPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(fullPath)
}

func (s *LocalStorage) Size(ctx context.Context, name string) (int64, error) {
	if name == Stdio {
		return 0, fmt.Errorf("size of standard input is unknown")
	}
	info, err := os.Stat(s.fullPath(name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *LocalStorage) Exists(ctx context.Context, name string) (bool, error) {
	if name == Stdio {
		return true, nil
	}
	_, err := os.Stat(s.fullPath(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// S3Storage implements Storage for one AWS S3 bucket
type S3Storage struct {
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Storage creates an S3 backend for bucket using the default AWS
// configuration chain
func NewS3Storage(ctx context.Context, bucket string) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 3
	})

	return &S3Storage{
		bucket:   bucket,
		client:   client,
		uploader: uploader,
	}, nil
}

func (s *S3Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

func (s *S3Storage) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	return &s3Object{ctx: ctx, storage: s, key: key}, nil
}

func (s *S3Storage) Size(ctx context.Context, key string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to stat s3://%s/%s: %w", s.bucket, key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// s3Object buffers writes and uploads them on Close
type s3Object struct {
	ctx     context.Context
	storage *S3Storage
	key     string
	buf     bytes.Buffer
}

func (o *s3Object) Write(p []byte) (int, error) {
	return o.buf.Write(p)
}

func (o *s3Object) Close() error {
	_, err := o.storage.uploader.Upload(o.ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.storage.bucket),
		Key:    aws.String(o.key),
		Body:   bytes.NewReader(o.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", o.storage.bucket, o.key, err)
	}
	return nil
}

// S3URI represents a parsed S3 URI
type S3URI struct {
	Bucket string
	Key    string
}

// IsS3URI checks if a path is an S3 URI
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ParseS3URI parses an S3 URI like s3://bucket/path/to/object
func ParseS3URI(uri string) (S3URI, error) {
	if !IsS3URI(uri) {
		return S3URI{}, fmt.Errorf("invalid S3 URI: %s (must start with s3://)", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "s3://"), "/", 2)
	if parts[0] == "" {
		return S3URI{}, fmt.Errorf("invalid S3 URI: %s (missing bucket name)", uri)
	}
	if len(parts) == 1 || parts[1] == "" {
		return S3URI{}, fmt.Errorf("invalid S3 URI: %s (missing object key)", uri)
	}

	return S3URI{Bucket: parts[0], Key: parts[1]}, nil
}

// NewStorage creates the appropriate storage backend for path and returns
// the name of path within that backend
func NewStorage(ctx context.Context, path string) (Storage, string, error) {
	if !IsS3URI(path) {
		return NewLocalStorage(""), path, nil
	}
	uri, err := ParseS3URI(path)
	if err != nil {
		return nil, "", err
	}
	s, err := NewS3Storage(ctx, uri.Bucket)
	if err != nil {
		return nil, "", err
	}
	return s, uri.Key, nil
}

// Open opens path ("-", a local file or an s3:// URI) for reading
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	s, name, err := NewStorage(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, name)
}

// Create opens path ("-", a local file or an s3:// URI) for writing.
// Missing local directories are created; S3 objects are uploaded on Close.
func Create(ctx context.Context, path string) (io.WriteCloser, error) {
	s, name, err := NewStorage(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, name)
}

// Exists reports whether path exists; "-" always exists
func Exists(ctx context.Context, path string) (bool, error) {
	s, name, err := NewStorage(ctx, path)
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, name)
}

// Size returns the size of path in bytes
func Size(ctx context.Context, path string) (int64, error) {
	s, name, err := NewStorage(ctx, path)
	if err != nil {
		return 0, err
	}
	return s.Size(ctx, name)
}
