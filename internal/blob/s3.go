// Package blob uploads exported files to S3-compatible object storage.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/huangsam/peakbase/internal/contract"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Config holds the S3 connection parameters. Credentials come from the
// default AWS chain (env, shared config, instance role).
type Config struct {
	Region    string
	Endpoint  string // optional; set for MinIO and other S3-compatible stores
	PathStyle bool

	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
	// Credentials overrides the default chain (tests).
	Credentials aws.CredentialsProvider
}

// S3Uploader writes objects addressed as s3://bucket/key.
type S3Uploader struct {
	client *s3.Client
}

var _ contract.BlobUploader = &S3Uploader{} // Compile-time check

// NewS3Uploader loads the AWS configuration and builds a client.
func NewS3Uploader(ctx context.Context, cfg Config) (*S3Uploader, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.Credentials != nil {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(cfg.Credentials))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3-compatible stores often reject streamed trailing checksums.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &S3Uploader{client: client}, nil
}

// Upload writes body to the object named by target, replacing any existing object.
func (u *S3Uploader) Upload(ctx context.Context, target string, body io.Reader) error {
	bucket, key, err := contract.ParseS3Target(target)
	if err != nil {
		return err
	}
	// Signing needs a seekable body; exports are small enough to buffer.
	seeker, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("failed to buffer upload: %w", err)
		}
		seeker = bytes.NewReader(data)
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        seeker,
		ContentType: aws.String(ContentType(key)),
	}
	if _, err := u.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", target, err)
	}
	return nil
}

// ContentType guesses the media type of an export from its extension.
func ContentType(key string) string {
	switch path.Ext(key) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "text/plain; charset=utf-8"
	}
}
