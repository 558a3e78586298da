package objectstore

import (
	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Store struct {
	Client *s3.Client
}

func NewS3ObjectStore(awsConfig aws.Config) *S3Store {
	return &S3Store{
		Client: s3.NewFromConfig(awsConfig),
	}
}

// NewS3ObjectRepository creates a new S3 object repository
func NewS3ObjectRepository(client *s3.Client, bucketName string) S3ObjectRepository {
	return S3ObjectRepository{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucketName: bucketName,
	}
}

// NewGCSObjectRepository creates a new GCS object repository
func NewGCSObjectRepository(client *storage.Client, bucketName string) GCSObjectRepository {
	return GCSObjectRepository{
		client:     client,
		bucketName: bucketName,
	}
}

// NewLocalObjectRepository creates a repository rooted at dir. An empty dir
// resolves keys as plain paths.
func NewLocalObjectRepository(dir string) LocalObjectRepository {
	return LocalObjectRepository{dir: dir}
}
