package services

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/Raghav-C/CompliVault/initializers"
)

// ObjectStore is the narrow slice of object storage the pipeline needs.
// Keeping it an interface lets tests substitute an in-memory fake.
type ObjectStore interface {
	Upload(key string, data []byte, contentType string) (string, error)
	Download(key string) ([]byte, error)
	Remove(key string) error
}

// s3Store talks to an S3-compatible bucket.
type s3Store struct {
	client    *s3.S3
	bucket    string
	publicURL string
}

// NewS3Store builds the object store from injected configuration.
func NewS3Store(cfg *initializers.Config) (ObjectStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.S3Region),
		Endpoint:         aws.String(cfg.S3Endpoint),
		DisableSSL:       aws.Bool(false),
		Credentials:      credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &s3Store{
		client:    s3.New(sess),
		bucket:    cfg.S3Bucket,
		publicURL: cfg.S3PublicURL,
	}, nil
}

func (s *s3Store) Upload(key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := s.client.PutObject(input); err != nil {
		log.Printf("[s3Store] upload error for %s: %v", key, err)
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key)
	log.Printf("[s3Store] file stored at: %s", url)
	return url, nil
}

func (s *s3Store) Download(key string) ([]byte, error) {
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download file from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return data, nil
}

func (s *s3Store) Remove(key string) error {
	_, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}
