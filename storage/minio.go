package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioBlobStore keeps payloads in an S3-compatible object store. Selected by
// configuration when uploads should outlive the server's local disk.
type MinioBlobStore struct {
	client *minio.Client
	bucket string
}

// NewMinioBlobStore connects and creates the bucket if it does not exist.
func NewMinioBlobStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, log *zap.Logger) (*MinioBlobStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to MinIO at %s: %w", endpoint, err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
		log.Info("created MinIO bucket", zap.String("bucket", bucket))
	}

	log.Info("MinIO blob store ready", zap.String("endpoint", endpoint), zap.String("bucket", bucket))
	return &MinioBlobStore{client: client, bucket: bucket}, nil
}

func (s *MinioBlobStore) Save(name string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(context.Background(), s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinioBlobStore) Open(name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(context.Background(), s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; surface missing objects here instead of at first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return obj, nil
}

func (s *MinioBlobStore) Delete(name string) error {
	return s.client.RemoveObject(context.Background(), s.bucket, name, minio.RemoveObjectOptions{})
}
