// Package backend builds the collaborators the commands run with, so that
// tests can replace them.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/tetelio/asset-pipeline/db"
	"github.com/tetelio/asset-pipeline/fetcher"
	"github.com/tetelio/asset-pipeline/internal/config"
	"github.com/tetelio/asset-pipeline/metrics"
	"github.com/tetelio/asset-pipeline/models"
	"github.com/tetelio/asset-pipeline/pipeline"
	"github.com/tetelio/asset-pipeline/storage"
	"github.com/tetelio/asset-pipeline/storage/s3"
	"github.com/tetelio/asset-pipeline/timing"
)

// Services provides the I/O collaborators of the pipeline commands.
type Services interface {
	Fetcher(timeout time.Duration) pipeline.Fetcher
	Uploader(ctx context.Context, cfg *config.Config, fs afero.Fs) (storage.Uploader, error)
	TimingStore(path string) (TimingStore, error)
	Metrics() *metrics.Registry
}

// TimingStore abstracts the timing history database
type TimingStore interface {
	SaveRun(ctx context.Context, runID string, records timing.Records) error
	LoadRun(ctx context.Context, runID string) (timing.Records, error)
	ListRuns(ctx context.Context) ([]models.RunSummary, error)
}

// Default talks to the network, S3 and sqlite.
type Default struct{}

func (Default) Fetcher(timeout time.Duration) pipeline.Fetcher {
	return fetcher.NewHTTPFetcher(timeout)
}

func (Default) Uploader(ctx context.Context, cfg *config.Config, fs afero.Fs) (storage.Uploader, error) {
	awsConfig, err := s3.GetAWSConfig(ctx, cfg.AWS.Profile, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return s3.NewClient(ctx, awsConfig, fs)
}

func (Default) TimingStore(path string) (TimingStore, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return db.NewTimingRepository(database), nil
}

// Metrics returns a fresh registry for one command run.
func (Default) Metrics() *metrics.Registry {
	return metrics.NewRegistry()
}
