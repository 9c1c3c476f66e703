// Package storage handles access to remote storage providers such as AWS S3.
package storage

import (
	"context"

	"github.com/tetelio/asset-pipeline/models"
)

// Uploader copies local files to a remote storage provider.
//
// - Destination parameters and any authentication data are provided within the
// `*models.SpecConfig` target
//
// - The returned spec describes where the data ended up; its content varies from
// provider to provider
//
// - A failed upload never touches the local file
type Uploader interface {
	Upload(ctx context.Context, localPath string, target *models.SpecConfig) (*models.SpecConfig, error)
}
