package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"preview-service/internal/config"
)

// ErrObjectNotFound is returned when a bucket has no object under a key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the blob store previews are kept in.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Remove(ctx context.Context, bucket, key string) error
}

// NewMinioClient initializes a MinIO client and ensures the bucket exists.
func NewMinioClient(ctx context.Context, cfg *config.Config) (*minio.Client, error) {
	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioSSL,
	})
	if err != nil {
		return nil, err
	}
	exists, err := minioClient.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, errors.Wrap(err, "check bucket")
	}
	if !exists {
		err = minioClient.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: ""})
		if err != nil {
			return nil, errors.Wrap(err, "create bucket")
		}
		log.Infof("Created bucket %s", cfg.MinioBucket)
	}
	return minioClient, nil
}

// MinioStore adapts a MinIO client to ObjectStore.
type MinioStore struct {
	Client *minio.Client
}

func (s *MinioStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.Client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrapf(err, "put %s/%s", bucket, key)
}

func (s *MinioStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	object, err := s.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err, bucket, key)
	}
	defer object.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, object); err != nil {
		return nil, mapMinioError(err, bucket, key)
	}
	return buf.Bytes(), nil
}

func (s *MinioStore) Remove(ctx context.Context, bucket, key string) error {
	err := s.Client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	return errors.Wrapf(err, "remove %s/%s", bucket, key)
}

// The object handle is lazy: a missing key surfaces on the first read.
func mapMinioError(err error, bucket, key string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errors.Wrapf(ErrObjectNotFound, "%s/%s", bucket, key)
	}
	return errors.Wrapf(err, "get %s/%s", bucket, key)
}
