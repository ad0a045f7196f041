package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/example/farmmarket/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (s *stubUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	s.input = input
	s.body = string(data)
	return &manager.UploadOutput{
		Location: "https://market-images.s3.amazonaws.com/" + aws.ToString(input.Key),
	}, nil
}

func TestImageStore_Upload(t *testing.T) {
	stub := &stubUploader{}
	store := NewImageStoreWithUploader(stub, config.S3Config{Bucket: "market-images", Prefix: "products/"})

	url, err := store.Upload(context.Background(), "p-1/123.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "https://market-images.s3.amazonaws.com/products/p-1/123.png", url)
	assert.Equal(t, "market-images", aws.ToString(stub.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(stub.input.ContentType))
	assert.Equal(t, types.ObjectCannedACLPublicRead, stub.input.ACL)
	assert.Equal(t, "png-bytes", stub.body)
}

func TestImageStore_NoPrefix(t *testing.T) {
	stub := &stubUploader{}
	store := NewImageStoreWithUploader(stub, config.S3Config{Bucket: "b"})

	_, err := store.Upload(context.Background(), "/p-1/a.jpg", "image/jpeg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "p-1/a.jpg", aws.ToString(stub.input.Key))
}

func TestImageStore_UploadError(t *testing.T) {
	store := NewImageStoreWithUploader(&stubUploader{err: errors.New("denied")}, config.S3Config{Bucket: "b"})
	_, err := store.Upload(context.Background(), "k", "image/png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}
