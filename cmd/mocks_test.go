package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/tetelio/asset-pipeline/cmd/backend"
	"github.com/tetelio/asset-pipeline/internal/config"
	"github.com/tetelio/asset-pipeline/metrics"
	"github.com/tetelio/asset-pipeline/models"
	"github.com/tetelio/asset-pipeline/pipeline"
	"github.com/tetelio/asset-pipeline/storage"
	"github.com/tetelio/asset-pipeline/timing"
)

var pipelineEnv = []string{
	"PIPELINE_DEBUG", "ENCRYPTION_KEY", "ENCRYPTION_ROUNDS", "ENCRYPTION_MIN_KEY_LENGTH",
	"ENCRYPTION_KEY_POLICY", "ENCRYPTION_PARALLELISM", "BUCKET_NAME", "AWS_PROFILE", "AWS_REGION",
	"ASSETS_DIR", "ENCRYPTED_ASSETS_DIR", "DECRYPTED_ASSETS_DIR", "TIME_ANALYSIS_DIR",
	"TIME_ANALYSIS_FILE", "TRANSFORM_WORKERS", "UPLOAD_WORKERS", "FETCH_TIMEOUT",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
}

// clearPipelineEnv keeps the host environment out of the config the commands load.
func clearPipelineEnv(t *testing.T) {
	t.Helper()
	for _, env := range pipelineEnv {
		t.Setenv(env, "")
	}
}

// MockFetcher serves generated bytes for every url, except the ones containing "missing".
type MockFetcher struct {
	mu      sync.Mutex
	fetched []string
}

func (f *MockFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	if strings.Contains(url, "missing") {
		return nil, fmt.Errorf("404 for %s", url)
	}
	return []byte(strings.Repeat(url, 50)), nil
}

type MockUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *MockUploader) Upload(_ context.Context, localPath string, target *models.SpecConfig) (*models.SpecConfig, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, localPath)
	return models.NewSpecConfig(models.StorageProviderS3).
		WithParam("URI", fmt.Sprintf("s3://%s/%s", target.Params["Bucket"], target.Params["Key"])), nil
}

type MockTimingStore struct {
	runs map[string]timing.Records
}

func (s *MockTimingStore) SaveRun(_ context.Context, runID string, records timing.Records) error {
	s.runs[runID] = records
	return nil
}

func (s *MockTimingStore) LoadRun(_ context.Context, runID string) (timing.Records, error) {
	records, ok := s.runs[runID]
	if !ok {
		return nil, errors.New("timing run not found")
	}
	return records, nil
}

func (s *MockTimingStore) ListRuns(_ context.Context) ([]models.RunSummary, error) {
	var out []models.RunSummary
	for id, records := range s.runs {
		out = append(out, models.RunSummary{RunID: id, Files: len(records), Records: len(records) * 2, Latest: 1.5})
	}
	return out, nil
}

type MockServices struct {
	fetcher     *MockFetcher
	uploader    *MockUploader
	uploaderErr error
	store       *MockTimingStore
	storePaths  []string
	registry    *metrics.Registry
}

func newMockServices() *MockServices {
	return &MockServices{
		fetcher:  &MockFetcher{},
		uploader: &MockUploader{},
		store:    &MockTimingStore{runs: map[string]timing.Records{}},
		registry: metrics.NewRegistry(),
	}
}

func (s *MockServices) Fetcher(time.Duration) pipeline.Fetcher {
	return s.fetcher
}

func (s *MockServices) Uploader(context.Context, *config.Config, afero.Fs) (storage.Uploader, error) {
	if s.uploaderErr != nil {
		return nil, s.uploaderErr
	}
	return s.uploader, nil
}

func (s *MockServices) TimingStore(path string) (backend.TimingStore, error) {
	s.storePaths = append(s.storePaths, path)
	return s.store, nil
}

func (s *MockServices) Metrics() *metrics.Registry {
	return s.registry
}
