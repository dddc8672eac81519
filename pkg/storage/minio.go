// Package storage stores report images in MinIO.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"dira-go/internal/config"
	"dira-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStore keeps report images under reports/{reportID}/{filename}.
type ImageStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewImageStore connects to MinIO and makes sure the bucket exists.
func NewImageStore(ctx context.Context, cfg config.MinIOConfig) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}
	if !exists {
		log.Infof("[Storage] bucket '%s' does not exist, creating", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}
	}
	log.Infof("[Storage] minio ready, bucket '%s'", cfg.BucketName)

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &ImageStore{client: client, bucket: cfg.BucketName, expiry: expiry}, nil
}

// ObjectName builds the object key for an image. Directory parts of filename are discarded.
func ObjectName(reportID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return fmt.Sprintf("reports/%s/%s", reportID, base)
}

// Put uploads an image and returns its object name.
func (s *ImageStore) Put(ctx context.Context, reportID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	objectName := ObjectName(reportID, filename)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return objectName, nil
}

// PresignedURL returns a time-limited GET URL for an object.
func (s *ImageStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.expiry, nil)
	if err != nil {
		log.Errorf("[Storage] presign %s failed: %v", objectName, err)
		return "", err
	}
	return u.String(), nil
}

// Remove deletes an object.
func (s *ImageStore) Remove(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}
