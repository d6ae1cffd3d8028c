package remote

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures the S3-compatible uploader.
type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// MinioUploader stores certificate artifacts in a MinIO (or any S3
// compatible) bucket.
type MinioUploader struct {
	cfg    MinioConfig
	client *minio.Client
}

// NewMinioUploader creates the client. It does not contact the server.
func NewMinioUploader(cfg MinioConfig) (*MinioUploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio: bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioUploader{cfg: cfg, client: client}, nil
}

// EnsureBucket creates the bucket if it is missing.
func (u *MinioUploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s: %w", u.cfg.Bucket, err)
	}
	return nil
}

// Upload implements certificate.Uploader.
func (u *MinioUploader) Upload(ctx context.Context, objectName, localPath string) (string, error) {
	_, err := u.client.FPutObject(ctx, u.cfg.Bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType(objectName),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", objectName, err)
	}
	return u.URL(objectName), nil
}

// URL returns the public URL of objectName.
func (u *MinioUploader) URL(objectName string) string {
	base := strings.TrimRight(u.cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if u.cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + u.cfg.Endpoint
	}
	return base + "/" + u.cfg.Bucket + "/" + strings.TrimLeft(objectName, "/")
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
