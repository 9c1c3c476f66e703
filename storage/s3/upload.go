package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tetelio/asset-pipeline/models"
)

// Upload streams the file at localPath to the bucket and key of the destination spec.
// The returned spec carries the object's s3:// URI.
//
// Warning: the file is read from the afero.Fs given to NewClient, be careful if
// managing files with `os` (callers might be using an in-memory one)
func (s *S3Storage) Upload(ctx context.Context, localPath string,
	destinationSpecs *models.SpecConfig) (*models.SpecConfig, error) {

	target, err := DecodeDestinationSpec(destinationSpecs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode destination spec: %w", err)
	}

	key := sanitizeKey(target.Key)

	file, err := s.fs.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	zlog.Sugar().Debugf("Uploading %s to s3://%s/%s", localPath, target.Bucket, key)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to S3: %w", localPath, err)
	}

	target.Key = key
	return models.NewSpecConfig(models.StorageProviderS3).
		WithParam(models.ParamBucket, target.Bucket).
		WithParam(models.ParamKey, target.Key).
		WithParam(models.ParamURI, target.URI()), nil
}
