// Package storage uploads product images to S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/example/farmmarket/pkg/config"
)

// Uploader is the part of manager.Uploader used here.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type ImageStore struct {
	uploader Uploader
	bucket   string
	prefix   string
}

// NewImageStore loads the default AWS credential chain for the configured region.
func NewImageStore(ctx context.Context, cfg config.S3Config) (*ImageStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return NewImageStoreWithUploader(manager.NewUploader(client), cfg), nil
}

func NewImageStoreWithUploader(uploader Uploader, cfg config.S3Config) *ImageStore {
	return &ImageStore{uploader: uploader, bucket: cfg.Bucket, prefix: cfg.Prefix}
}

// Upload stores body under the configured prefix as a public object and returns its URL.
func (s *ImageStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	fullKey := strings.TrimSuffix(s.prefix, "/") + "/" + strings.TrimPrefix(key, "/")
	if s.prefix == "" {
		fullKey = strings.TrimPrefix(key, "/")
	}

	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        body,
		ACL:         types.ObjectCannedACLPublicRead,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", fullKey, err)
	}
	return result.Location, nil
}
