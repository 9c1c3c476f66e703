package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3Manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"

	"github.com/tetelio/asset-pipeline/models"
	"github.com/tetelio/asset-pipeline/storage"
)

// objectUploader is the part of the s3 manager used by S3Storage.
type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3Manager.Uploader)) (*s3Manager.UploadOutput, error)
}

type S3Storage struct {
	*s3.Client
	uploader objectUploader
	fs       afero.Fs
}

// NewClient creates a new S3Storage which includes a S3-SDK client.
// Files to upload are read from fs.
func NewClient(ctx context.Context, config aws.Config, fs afero.Fs) (*S3Storage, error) {
	if !hasValidCredentials(ctx, config) {
		return nil, fmt.Errorf("invalid credentials")
	}

	s3Client := s3.NewFromConfig(config)
	return &S3Storage{
		Client:   s3Client,
		uploader: s3Manager.NewUploader(s3Client),
		fs:       fs,
	}, nil
}

// Size returns the size in bytes of an uploaded object. It is also useful to check
// that an upload landed.
func (s *S3Storage) Size(ctx context.Context, source *models.SpecConfig) (uint64, error) {
	src, err := DecodeDestinationSpec(source)
	if err != nil {
		return 0, fmt.Errorf("failed to decode source spec: %w", err)
	}

	output, err := s.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(sanitizeKey(src.Key)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get object size: %w", err)
	}

	return uint64(aws.ToInt64(output.ContentLength)), nil
}

// Compile time interface check
var _ storage.Uploader = (*S3Storage)(nil)
