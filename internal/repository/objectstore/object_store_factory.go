// Package objectstore provides object storage repository implementations and factory.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
)

// ObjectRepository defines the interface for object storage operations
type ObjectRepository interface {
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	GetBucketName() string
	GetStorageType() string
}

// RepositoryType represents the type of object storage
type RepositoryType string

const (
	S3Type   RepositoryType = "s3"
	GCSType  RepositoryType = "gs"
	FileType RepositoryType = "file"
)

// Location addresses an object, or a key prefix, in some store.
type Location struct {
	Type   RepositoryType
	Bucket string
	Key    string
}

func (l Location) String() string {
	if l.Type == FileType {
		return "file://" + l.Key
	}
	return fmt.Sprintf("%s://%s/%s", l.Type, l.Bucket, l.Key)
}

// ParseLocation parses "s3://bucket/key", "gs://bucket/key", "file:///path"
// or a bare filesystem path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("location cannot be empty")
	}

	if !strings.Contains(raw, "://") {
		return Location{Type: FileType, Key: raw}, nil
	}

	parts := strings.SplitN(raw, "://", 2)
	scheme := RepositoryType(strings.ToLower(strings.TrimSpace(parts[0])))
	rest := parts[1]

	switch scheme {
	case FileType:
		if rest == "" {
			return Location{}, fmt.Errorf("file path cannot be empty")
		}
		return Location{Type: FileType, Key: rest}, nil
	case S3Type, GCSType:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, fmt.Errorf("bucket name cannot be empty")
		}
		return Location{Type: scheme, Bucket: bucket, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("unsupported scheme: %s", scheme)
	}
}

// ObjectRepositoryFactory creates object repository instances
type ObjectRepositoryFactory struct {
	awsConfig aws.Config
	gcsClient func(ctx context.Context) (*storage.Client, error)
}

// NewObjectRepositoryFactory creates a new factory. The GCS client is only
// created when a gs:// location is requested.
func NewObjectRepositoryFactory(awsConfig aws.Config) *ObjectRepositoryFactory {
	return &ObjectRepositoryFactory{
		awsConfig: awsConfig,
		gcsClient: func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx)
		},
	}
}

// CreateRepository creates a repository for the location's bucket.
func (f *ObjectRepositoryFactory) CreateRepository(ctx context.Context, loc Location) (ObjectRepository, error) {
	switch loc.Type {
	case S3Type:
		store := NewS3ObjectStore(f.awsConfig)
		repo := NewS3ObjectRepository(store.Client, loc.Bucket)
		return &repo, nil
	case GCSType:
		client, err := f.gcsClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to create GCS client: %w", err)
		}
		repo := NewGCSObjectRepository(client, loc.Bucket)
		return &repo, nil
	case FileType:
		repo := NewLocalObjectRepository("")
		return &repo, nil
	default:
		return nil, fmt.Errorf("unsupported repository type: %s", loc.Type)
	}
}
