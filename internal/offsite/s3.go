package offsite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gametime/internal/config"
)

// Uploader stores one object.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.ReadSeeker, contentType string) error
}

// S3Uploader writes objects to a single bucket of an S3-compatible backend
// (AWS S3 or MinIO).
type S3Uploader struct {
	client *s3.Client
	bucket string
}

var _ Uploader = (*S3Uploader)(nil)

// Option adjusts the S3 client options.
type Option func(*s3.Options)

// WithHTTPClient replaces the transport used by the S3 client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *s3.Options) {
		if client != nil {
			o.HTTPClient = client
		}
	}
}

// NewS3Uploader builds an uploader from the [offsite] section. Without static
// keys the default AWS credentials chain applies.
func NewS3Uploader(ctx context.Context, cfg config.Offsite, opts ...Option) (*S3Uploader, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("offsite bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		for _, opt := range opts {
			opt(o)
		}
	})
	return &S3Uploader{client: client, bucket: cfg.Bucket}, nil
}

// Upload puts body under key, replacing any existing object.
func (u *S3Uploader) Upload(ctx context.Context, key string, body io.ReadSeeker, contentType string) error {
	input := &s3.PutObjectInput{Bucket: &u.bucket, Key: &key, Body: body}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := u.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", u.bucket, key, err)
	}
	return nil
}
