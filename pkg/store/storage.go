package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/iterator"
)

// Storage is an interface for reading/writing dataset files
// Supports local filesystem, S3 and Google Cloud Storage
type Storage interface {
	// ReadFile reads a file
	ReadFile(path string) ([]byte, error)

	// WriteFile writes a file
	WriteFile(path string, data []byte) error

	// List lists files matching a prefix
	List(prefix string) ([]string, error)

	// Exists checks if a file exists
	Exists(path string) (bool, error)

	// MkdirAll creates directory structure
	MkdirAll(path string) error

	// GetBasePath returns the base path
	GetBasePath() string

	// IsRemote returns true for object storage backends
	IsRemote() bool
}

// LocalStorage implements Storage for local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage backend
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

func (s *LocalStorage) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.basePath, path))
}

// WriteFile writes to a temporary name and renames, so a reader never
// sees a half-written array
func (s *LocalStorage) WriteFile(path string, data []byte) error {
	fullPath := filepath.Join(s.basePath, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, fullPath)
}

func (s *LocalStorage) List(prefix string) ([]string, error) {
	fullPath := filepath.Join(s.basePath, prefix)
	var files []string

	err := filepath.Walk(fullPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			relPath, err := filepath.Rel(s.basePath, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(relPath))
		}
		return nil
	})

	return files, err
}

func (s *LocalStorage) Exists(path string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStorage) MkdirAll(path string) error {
	return os.MkdirAll(filepath.Join(s.basePath, path), 0755)
}

func (s *LocalStorage) GetBasePath() string {
	return s.basePath
}

func (s *LocalStorage) IsRemote() bool {
	return false
}

// splitBucketURI splits scheme://bucket/prefix
func splitBucketURI(path, scheme string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(path, scheme) {
		return "", "", fmt.Errorf("invalid path: %s (must start with %s)", path, scheme)
	}
	parts := strings.SplitN(strings.TrimPrefix(path, scheme), "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid path: %s (missing bucket)", path)
	}
	if len(parts) > 1 {
		prefix = strings.Trim(parts[1], "/")
	}
	return parts[0], prefix, nil
}

func joinKey(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return prefix + "/" + path
}

// S3Storage implements Storage for AWS S3
type S3Storage struct {
	bucket     string
	prefix     string
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	ctx        context.Context
}

// NewS3Storage creates a new S3 storage backend
// path should be in format: s3://bucket/prefix
func NewS3Storage(path string) (*S3Storage, error) {
	bucket, prefix, err := splitBucketURI(path, "s3://")
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return &S3Storage{
		bucket:     bucket,
		prefix:     prefix,
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		ctx:        ctx,
	}, nil
}

func (s *S3Storage) ReadFile(path string) ([]byte, error) {
	key := joinKey(s.prefix, path)

	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := s.downloader.Download(s.ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", s.bucket, key, err)
	}

	return buf.Bytes(), nil
}

func (s *S3Storage) WriteFile(path string, data []byte) error {
	key := joinKey(s.prefix, path)

	_, err := s.uploader.Upload(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", s.bucket, key, err)
	}

	return nil
}

func (s *S3Storage) List(prefix string) ([]string, error) {
	var files []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(joinKey(s.prefix, prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(s.ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			files = append(files, key)
		}
	}

	return files, nil
}

func (s *S3Storage) Exists(path string) (bool, error) {
	_, err := s.client.HeadObject(s.ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(joinKey(s.prefix, path)),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// MkdirAll is a no-op, object stores have no directories
func (s *S3Storage) MkdirAll(path string) error {
	return nil
}

func (s *S3Storage) GetBasePath() string {
	return "s3://" + joinKey(s.bucket, s.prefix)
}

func (s *S3Storage) IsRemote() bool {
	return true
}

// GCSStorage implements Storage for Google Cloud Storage
type GCSStorage struct {
	bucket string
	prefix string
	client *storage.Client
	ctx    context.Context
}

// NewGCSStorage creates a GCS backend using application default credentials
// path should be in format: gs://bucket/prefix
func NewGCSStorage(path string) (*GCSStorage, error) {
	bucket, prefix, err := splitBucketURI(path, "gs://")
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		bucket: bucket,
		prefix: prefix,
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *GCSStorage) object(path string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(joinKey(s.prefix, path))
}

func (s *GCSStorage) ReadFile(path string) ([]byte, error) {
	r, err := s.object(path).NewReader(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", s.bucket, joinKey(s.prefix, path), err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCSStorage) WriteFile(path string, data []byte) error {
	w := s.object(path).NewWriter(s.ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload to gs://%s/%s: %w", s.bucket, joinKey(s.prefix, path), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload to gs://%s/%s: %w", s.bucket, joinKey(s.prefix, path), err)
	}
	return nil
}

func (s *GCSStorage) List(prefix string) ([]string, error) {
	var files []string
	it := s.client.Bucket(s.bucket).Objects(s.ctx, &storage.Query{Prefix: joinKey(s.prefix, prefix)})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		key := attrs.Name
		if s.prefix != "" {
			key = strings.TrimPrefix(key, s.prefix+"/")
		}
		files = append(files, key)
	}
	return files, nil
}

func (s *GCSStorage) Exists(path string) (bool, error) {
	_, err := s.object(path).Attrs(s.ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GCSStorage) MkdirAll(path string) error {
	return nil
}

func (s *GCSStorage) GetBasePath() string {
	return "gs://" + joinKey(s.bucket, s.prefix)
}

func (s *GCSStorage) IsRemote() bool {
	return true
}

// IsRemoteURI reports whether path names an object store location
func IsRemoteURI(path string) bool {
	return strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "gs://")
}

// NewStorage creates the appropriate storage backend based on path
func NewStorage(path string) (Storage, error) {
	switch {
	case strings.HasPrefix(path, "s3://"):
		return NewS3Storage(path)
	case strings.HasPrefix(path, "gs://"):
		return NewGCSStorage(path)
	}
	return NewLocalStorage(path), nil
}
