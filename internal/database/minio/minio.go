package minio

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"learnsphere/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidObjectName = errors.New("invalid object name")

// Store wraps the MinIO client for one bucket of lesson materials.
type Store struct {
	client *minio.Client
	bucket string
}

// Connect builds the client and creates the material bucket if missing.
func Connect(ctx context.Context, cfg config.MinIOConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		log.Printf("Error initializing MinIO client: %v", err)
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.MaterialBucket)
	if err != nil {
		log.Printf("Error checking if bucket %s exists: %v", cfg.MaterialBucket, err)
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MaterialBucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			log.Printf("Error creating bucket %s: %v", cfg.MaterialBucket, err)
			return nil, err
		}
		log.Printf("Created bucket: %s", cfg.MaterialBucket)
	}

	log.Println("Successfully initialized MinIO client")
	return &Store{client: client, bucket: cfg.MaterialBucket}, nil
}

func (s *Store) Bucket() string { return s.bucket }

func (s *Store) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		log.Printf("Error uploading %s to MinIO: %v", key, err)
	}
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		log.Printf("Error deleting %s from MinIO: %v", key, err)
		return err
	}
	return nil
}

// PresignedURL returns a time-limited GET link for key.
func (s *Store) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		log.Printf("Error generating presigned URL: %v", err)
		return "", err
	}
	return u.String(), nil
}

func validKey(key string) error {
	if key == "" || strings.Contains(key, "..") {
		return ErrInvalidObjectName
	}
	return nil
}
