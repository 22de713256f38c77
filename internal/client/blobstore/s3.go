package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
)

// S3Config describes an S3-compatible bucket (AWS or MinIO).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Saver uploads blobs as <prefix>/<name>. Existing keys are kept: the
// upload is conditional on the key being absent.
type S3Saver struct {
	api     putObjectAPI
	bucket  string
	prefix  string
	onSaved SavedFunc
}

// NewS3Saver builds the SDK client from cfg. Static credentials are used
// when given, the default AWS chain otherwise.
func NewS3Saver(ctx context.Context, cfg S3Config, onSaved SavedFunc) (*S3Saver, error) {
	if !cfg.Enabled() {
		return nil, errors.New("s3: bucket is not configured")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Saver(client, cfg, onSaved), nil
}

func newS3Saver(api putObjectAPI, cfg S3Config, onSaved SavedFunc) *S3Saver {
	return &S3Saver{api: api, bucket: cfg.Bucket, prefix: cfg.Prefix, onSaved: onSaved}
}

func (s *S3Saver) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Saver) SaveBlobAs(ctx context.Context, blob models.Blob, name string) error {
	key := s.key(name)

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(blob.Data),
		IfNoneMatch: aws.String("*"),
	}
	if blob.ContentType != "" {
		in.ContentType = aws.String(blob.ContentType)
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3: put %s/%s: %w", s.bucket, key, err)
	}

	if s.onSaved != nil {
		s.onSaved("s3://" + s.bucket + "/" + key)
	}
	return nil
}
