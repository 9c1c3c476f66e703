package s3

import (
	"fmt"

	"github.com/fatih/structs"
	"github.com/mitchellh/mapstructure"

	"github.com/tetelio/asset-pipeline/models"
	"github.com/tetelio/asset-pipeline/utils/validate"
)

// S3Destination holds the parameters of an upload target.
type S3Destination struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string
}

func (s S3Destination) Validate() error {
	if validate.IsBlank(s.Bucket) {
		return fmt.Errorf("invalid s3 storage params: bucket cannot be empty")
	}
	if sanitizeKey(s.Key) == "" {
		return fmt.Errorf("invalid s3 storage params: key cannot be empty")
	}
	return nil
}

func (s S3Destination) ToMap() map[string]interface{} {
	return structs.Map(s)
}

// URI returns the s3:// location of the object.
func (s S3Destination) URI() string {
	return fmt.Sprintf("s3://%s/%s", s.Bucket, sanitizeKey(s.Key))
}

// NewDestinationSpec builds the spec of an upload of key into bucket.
func NewDestinationSpec(bucket, key string) *models.SpecConfig {
	return &models.SpecConfig{
		Type:   models.StorageProviderS3,
		Params: S3Destination{Bucket: bucket, Key: key}.ToMap(),
	}
}

func DecodeDestinationSpec(spec *models.SpecConfig) (S3Destination, error) {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return S3Destination{}, fmt.Errorf("invalid storage destination: %w", err)
	}
	if !spec.IsType(models.StorageProviderS3) {
		return S3Destination{}, fmt.Errorf("invalid storage destination type. Expected %s but received %s", models.StorageProviderS3, spec.Type)
	}

	if len(spec.Params) == 0 {
		return S3Destination{}, fmt.Errorf("invalid storage destination params. cannot be empty")
	}

	var d S3Destination
	if err := mapstructure.Decode(spec.Params, &d); err != nil {
		return d, err
	}

	return d, d.Validate()
}
