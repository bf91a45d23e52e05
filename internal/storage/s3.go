package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicURL     string
	PresignExpiry time.Duration
}

// S3Gateway writes to any S3-compatible bucket.
type S3Gateway struct {
	client    *minio.Client
	bucket    string
	publicURL string
	expiry    time.Duration
}

func NewS3Gateway(cfg S3Config) (*S3Gateway, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	expiry := cfg.PresignExpiry
	if expiry <= 0 || expiry > 7*24*time.Hour {
		expiry = 7 * 24 * time.Hour
	}
	return &S3Gateway{client: client, bucket: cfg.Bucket, publicURL: cfg.PublicURL, expiry: expiry}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (g *S3Gateway) EnsureBucket(ctx context.Context) error {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", g.bucket, err)
	}
	if exists {
		return nil
	}
	if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", g.bucket, err)
	}
	return nil
}

func (g *S3Gateway) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := g.client.PutObject(ctx, g.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	if g.publicURL != "" {
		return g.publicURL + "/" + key, nil
	}
	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, g.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return u.String(), nil
}
