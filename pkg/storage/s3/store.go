// Package s3 implements the object-storage client for the ingestion
// pipeline.
//
// The server never touches uploaded file bytes: clients PUT directly to
// storage using presigned URLs issued here, and the server only verifies
// object existence (HEAD), removes swept objects (DELETE), and streams model
// assets back out (GET). Works against AWS S3 and S3-compatible backends
// (MinIO, localstack) via a configurable endpoint with path-style addressing.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ErrObjectNotFound is returned by Head and Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found in storage")

// Config contains object-storage configuration.
type Config struct {
	// Endpoint overrides the AWS endpoint for S3-compatible backends.
	// Empty uses the AWS default resolution.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Region is the bucket region. Default: us-east-1.
	Region string `mapstructure:"region" yaml:"region"`

	// Bucket is the bucket holding uploads and model assets.
	Bucket string `mapstructure:"bucket" validate:"required" yaml:"bucket"`

	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`

	// ForcePathStyle addresses objects as host/bucket/key instead of
	// bucket.host/key. Required for localstack/MinIO.
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// PresignExpiry is the lifetime of issued upload URLs. Default: 900s.
	PresignExpiry time.Duration `mapstructure:"presign_expiry" yaml:"presign_expiry"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.PresignExpiry == 0 {
		c.PresignExpiry = 900 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	return nil
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// PresignedUpload is an issued upload credential.
type PresignedUpload struct {
	URL       string
	ExpiresIn int // seconds
}

// Store is a thread-safe object-storage client. A single instance is shared
// by all request handlers.
type Store struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucket        string
	presignExpiry time.Duration
}

// New creates an object-storage client from configuration.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewWithClient(client, cfg.Bucket, cfg.PresignExpiry), nil
}

// NewWithClient wraps an existing S3 client. Useful for tests.
func NewWithClient(client *s3.Client, bucket string, presignExpiry time.Duration) *Store {
	if presignExpiry == 0 {
		presignExpiry = 900 * time.Second
	}
	return &Store{
		client:        client,
		presign:       s3.NewPresignClient(client),
		bucket:        bucket,
		presignExpiry: presignExpiry,
	}
}

// PresignPut issues a presigned PUT URL for key.
//
// The URL is bound to the submitted Content-Type but deliberately not to a
// Content-Length: the browser supplies the length header itself, and binding
// it server-side causes a signature mismatch on upload.
func (s *Store) PresignPut(ctx context.Context, key, contentType string) (*PresignedUpload, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload for %q: %w", key, err)
	}

	return &PresignedUpload{
		URL:       req.URL,
		ExpiresIn: int(s.presignExpiry.Seconds()),
	}, nil
}

// Head verifies that key exists and returns its metadata.
func (s *Store) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to head %q: %w", key, err)
	}

	info := &ObjectInfo{}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	return info, nil
}

// Delete removes key. Deleting a non-existent object is not an error; S3
// DELETE is idempotent.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Get opens a streaming read of key. The caller must close the reader.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, ErrObjectNotFound
		}
		return nil, 0, fmt.Errorf("failed to get %q: %w", key, err)
	}

	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

// isNotFound recognizes both the typed NotFound/NoSuchKey responses and the
// bare 404 some S3-compatible servers return on HEAD.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NotFound" || code == "NoSuchKey" {
			return true
		}
	}
	return strings.Contains(err.Error(), "StatusCode: 404")
}
