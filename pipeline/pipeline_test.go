package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetelio/asset-pipeline/models"
	"github.com/tetelio/asset-pipeline/timing"
	"github.com/tetelio/asset-pipeline/transform"
)

const testKey = "correct horse battery staple"

type fakeFetcher struct {
	assets map[string][]byte
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := f.assets[url]
	if !ok {
		return nil, fmt.Errorf("404 for %s", url)
	}
	return data, nil
}

// blockingFetcher holds every fetch until the context is done.
type blockingFetcher struct {
	started chan string
}

func (f *blockingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.started <- url
	<-ctx.Done()
	return nil, ctx.Err()
}

// bufferedTransformer hides the streaming support of the engine it wraps.
type bufferedTransformer struct {
	Transformer
}

type fakeUploader struct {
	mu      sync.Mutex
	fail    map[string]bool
	release chan struct{}
	keys    []string
}

func (u *fakeUploader) Upload(ctx context.Context, localPath string, target *models.SpecConfig) (*models.SpecConfig, error) {
	if u.release != nil {
		select {
		case <-u.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if u.fail[localPath] {
		return nil, errors.New("access denied")
	}
	u.mu.Lock()
	u.keys = append(u.keys, target.Params["Key"].(string))
	u.mu.Unlock()
	uri := fmt.Sprintf("s3://%s/%s", target.Params["Bucket"], target.Params["Key"])
	return models.NewSpecConfig(models.StorageProviderS3).WithParam("URI", uri), nil
}

type countingMetrics struct {
	mu    sync.Mutex
	files map[string]int
	bytes map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{files: map[string]int{}, bytes: map[string]int{}}
}

func (m *countingMetrics) RecordFile(direction, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[direction+"/"+status]++
}

func (m *countingMetrics) AddBytes(direction string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes[direction] += n
}

func newEngine(t *testing.T, key string) *transform.Engine {
	t.Helper()
	engine, err := transform.New(transform.Config{Key: []byte(key), Rounds: 7})
	require.NoError(t, err)
	return engine
}

func testAssets(n int) (map[string][]byte, []string) {
	assets := make(map[string][]byte, n)
	urls := make([]string, n)
	for i := 0; i < n; i++ {
		url := fmt.Sprintf("https://cdn.example.com/course/video-%d.mp4", i+1)
		data := make([]byte, 1000+i*37)
		for j := range data {
			data[j] = byte(j * (i + 3))
		}
		assets[url] = data
		urls[i] = url
	}
	return assets, urls
}

func TestEncryptRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	assets, urls := testAssets(4)
	uploader := &fakeUploader{}
	recorder := timing.NewRecorder()
	metrics := newCountingMetrics()
	engine := newEngine(t, testKey)

	encryptor := &Encryptor{
		Fs:          fs,
		Fetcher:     &fakeFetcher{assets: assets},
		Transformer: engine,
		Uploader:    uploader,
		Bucket:      "videos",
		Recorder:    recorder,
		Metrics:     metrics,
		Workers:     2,
	}

	report, err := encryptor.Run(context.Background(), urls)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Len(t, report.Succeeded(), 4)
	assert.NotEmpty(t, report.RunID)

	for i, url := range urls {
		res := report.Results[i]
		name := fmt.Sprintf("video-%d.mp4", i+1)
		encryptedPath := filepath.Join(DefaultEncryptedDir, fmt.Sprintf("video-%d_encrypted.mp4", i+1))

		assert.Equal(t, i, res.Index)
		assert.Equal(t, url, res.Source)
		assert.Equal(t, encryptedPath, res.Output)
		assert.Equal(t, "s3://videos/"+filepath.ToSlash(encryptedPath), res.Remote)
		assert.Equal(t, len(assets[url]), res.Bytes)

		original, err := afero.ReadFile(fs, filepath.Join(DefaultAssetsDir, name))
		require.NoError(t, err)
		assert.Equal(t, assets[url], original)

		encrypted, err := afero.ReadFile(fs, encryptedPath)
		require.NoError(t, err)
		expected, err := transform.Encrypt(assets[url], []byte(testKey), 7)
		require.NoError(t, err)
		assert.Equal(t, expected, encrypted)
	}

	assert.Len(t, uploader.keys, 4)

	records := recorder.Records()
	require.Len(t, records, 4)
	for i := range urls {
		for _, stage := range []timing.Stage{timing.StageDownload, timing.StageEncrypt, timing.StageUpload} {
			span, ok := records[i][stage]
			require.True(t, ok, "file %d stage %s", i, stage)
			assert.LessOrEqual(t, span.Start, span.End)
		}
		// the upload of a file starts once its encrypted copy is on disk
		assert.LessOrEqual(t, records[i][timing.StageEncrypt].End, records[i][timing.StageUpload].Start)
	}

	assert.Equal(t, 4, metrics.files["encrypt/ok"])
	total := 0
	for _, data := range assets {
		total += len(data)
	}
	assert.Equal(t, total, metrics.bytes["encrypt"])
}

func TestEncryptRunWithoutUpload(t *testing.T) {
	fs := afero.NewMemMapFs()
	assets, urls := testAssets(2)
	recorder := timing.NewRecorder()

	encryptor := &Encryptor{
		Fs:          fs,
		Fetcher:     &fakeFetcher{assets: assets},
		Transformer: newEngine(t, testKey),
		Uploader:    &fakeUploader{},
		Recorder:    recorder,
	}

	report, err := encryptor.Run(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, report.Succeeded(), 2)

	for i, res := range report.Results {
		assert.Empty(t, res.Remote)
		_, uploaded := recorder.Records()[i][timing.StageUpload]
		assert.False(t, uploaded)
	}
}

func TestEncryptRunIsolatesFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	assets, urls := testAssets(3)
	delete(assets, urls[1])
	urls = append(urls, "https://cdn.example.com/")

	encryptor := &Encryptor{
		Fs:          fs,
		Fetcher:     &fakeFetcher{assets: assets},
		Transformer: newEngine(t, testKey),
	}

	report, err := encryptor.Run(context.Background(), urls)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, report.Results[0].Status)
	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.Equal(t, StatusOK, report.Results[2].Status)
	assert.Equal(t, StatusFailed, report.Results[3].Status)
	assert.Len(t, report.Failed(), 2)
	assert.ErrorContains(t, report.Err(), urls[1])

	exists, err := afero.Exists(fs, filepath.Join(DefaultEncryptedDir, "video-2_encrypted.mp4"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEncryptRunUploadFailureKeepsLocalFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	assets, urls := testAssets(2)
	failing := filepath.Join(DefaultEncryptedDir, "video-1_encrypted.mp4")

	encryptor := &Encryptor{
		Fs:          fs,
		Fetcher:     &fakeFetcher{assets: assets},
		Transformer: newEngine(t, testKey),
		Uploader:    &fakeUploader{fail: map[string]bool{failing: true}},
		Bucket:      "videos",
	}

	report, err := encryptor.Run(context.Background(), urls)
	require.NoError(t, err)

	assert.Equal(t, StatusUploadFailed, report.Results[0].Status)
	assert.Equal(t, failing, report.Results[0].Output)
	assert.Error(t, report.Results[0].Err)
	assert.Equal(t, StatusOK, report.Results[1].Status)

	exists, err := afero.Exists(fs, failing)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEncryptRunUploadsDoNotBlockTransforms(t *testing.T) {
	fs := afero.NewMemMapFs()
	assets, urls := testAssets(5)
	uploader := &fakeUploader{release: make(chan struct{})}

	encryptor := &Encryptor{
		Fs:            fs,
		Fetcher:       &fakeFetcher{assets: assets},
		Transformer:   newEngine(t, testKey),
		Uploader:      uploader,
		Bucket:        "videos",
		Workers:       1,
		UploadWorkers: 1,
	}

	done := make(chan *Report)
	go func() {
		report, err := encryptor.Run(context.Background(), urls)
		assert.NoError(t, err)
		done <- report
	}()

	// every file gets encrypted while the single upload worker is stuck
	require.Eventually(t, func() bool {
		for i := range urls {
			path := filepath.Join(DefaultEncryptedDir, fmt.Sprintf("video-%d_encrypted.mp4", i+1))
			if ok, _ := afero.Exists(fs, path); !ok {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	close(uploader.release)

	select {
	case report := <-done:
		assert.Len(t, report.Succeeded(), 5)
	case <-time.After(5 * time.Second):
		t.Fatal("encrypt run did not finish")
	}
}

func TestEncryptRunCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	assets, urls := testAssets(3)
	metrics := newCountingMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	encryptor := &Encryptor{
		Fs:          fs,
		Fetcher:     &fakeFetcher{assets: assets},
		Transformer: newEngine(t, testKey),
		Metrics:     metrics,
	}

	report, err := encryptor.Run(ctx, urls)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	for _, res := range report.Results {
		assert.Equal(t, StatusCancelled, res.Status)
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Equal(t, 3, metrics.files["encrypt/cancelled"])
}

func TestEncryptRunCancelledInFlight(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, urls := testAssets(2)
	fetcher := &blockingFetcher{started: make(chan string, len(urls))}
	metrics := newCountingMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	encryptor := &Encryptor{
		Fs:          fs,
		Fetcher:     fetcher,
		Transformer: newEngine(t, testKey),
		Metrics:     metrics,
		Workers:     1,
	}

	type outcome struct {
		report *Report
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := encryptor.Run(ctx, urls)
		done <- outcome{report, err}
	}()

	select {
	case url := <-fetcher.started:
		assert.Equal(t, urls[0], url)
	case <-time.After(5 * time.Second):
		t.Fatal("fetch never started")
	}
	cancel()

	var res outcome
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("encrypt run did not stop")
	}

	assert.ErrorIs(t, res.err, context.Canceled)
	require.NotNil(t, res.report)
	for _, file := range res.report.Results {
		assert.Equal(t, StatusCancelled, file.Status, "file %d", file.Index)
		assert.ErrorIs(t, file.Err, context.Canceled)
	}
	assert.Equal(t, 2, metrics.files["encrypt/cancelled"])
	assert.Zero(t, metrics.files["encrypt/failed"])

	ok, err := afero.Exists(fs, filepath.Join(DefaultAssetsDir, "video-1.mp4"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncryptRunRejectsDuplicateAssetNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	first := bytes.Repeat([]byte("first mirror "), 80)
	second := bytes.Repeat([]byte("second mirror "), 90)
	urls := []string{
		"https://a.example/clip.mp4",
		"https://a.example/intro.mp4",
		"https://b.example/clip.mp4",
	}
	fetcher := &fakeFetcher{assets: map[string][]byte{
		urls[0]: first,
		urls[1]: []byte("intro bytes"),
		urls[2]: second,
	}}
	metrics := newCountingMetrics()

	encryptor := &Encryptor{
		Fs:          fs,
		Fetcher:     fetcher,
		Transformer: newEngine(t, testKey),
		Metrics:     metrics,
		Workers:     3,
	}

	report, err := encryptor.Run(context.Background(), urls)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, report.Results[0].Status)
	assert.Equal(t, StatusOK, report.Results[1].Status)
	assert.Equal(t, StatusFailed, report.Results[2].Status)
	assert.ErrorIs(t, report.Results[2].Err, ErrDuplicateAsset)
	assert.ErrorContains(t, report.Results[2].Err, urls[0])
	assert.Empty(t, report.Results[2].Output)
	assert.Equal(t, 1, metrics.files["encrypt/failed"])

	original, err := afero.ReadFile(fs, filepath.Join(DefaultAssetsDir, "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, first, original)

	// the asset and its encrypted copy come from the same url
	decrypted, err := (&Decryptor{Fs: fs, Transformer: newEngine(t, testKey)}).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, decrypted.Err())
	assert.Len(t, decrypted.Succeeded(), 2)
}

func TestEncryptRunStreamingMatchesBuffered(t *testing.T) {
	assets, urls := testAssets(3)
	engine := newEngine(t, testKey)

	encryptWith := func(tr Transformer) afero.Fs {
		fs := afero.NewMemMapFs()
		report, err := (&Encryptor{
			Fs:          fs,
			Fetcher:     &fakeFetcher{assets: assets},
			Transformer: tr,
		}).Run(context.Background(), urls)
		require.NoError(t, err)
		require.NoError(t, report.Err())
		return fs
	}

	var tr Transformer = engine
	_, ok := tr.(StreamTransformer)
	require.True(t, ok)
	tr = bufferedTransformer{engine}
	_, ok = tr.(StreamTransformer)
	require.False(t, ok)

	streamed := encryptWith(engine)
	buffered := encryptWith(bufferedTransformer{engine})

	for i := range urls {
		path := filepath.Join(DefaultEncryptedDir, fmt.Sprintf("video-%d_encrypted.mp4", i+1))
		want, err := afero.ReadFile(buffered, path)
		require.NoError(t, err)
		got, err := afero.ReadFile(streamed, path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
}

func TestEncryptorRequiresCollaborators(t *testing.T) {
	_, err := (&Encryptor{Fs: afero.NewMemMapFs()}).Run(context.Background(), nil)
	assert.Error(t, err)

	_, err = (&Decryptor{Fs: afero.NewMemMapFs()}).Run(context.Background())
	assert.Error(t, err)
}

func TestLayoutEnsure(t *testing.T) {
	fs := afero.NewMemMapFs()
	layout := Layout{AssetsDir: "in"}
	require.NoError(t, layout.Ensure(fs))

	for _, dir := range []string{"in", DefaultEncryptedDir, DefaultDecryptedDir} {
		ok, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, ok, dir)
	}
}

func TestReport(t *testing.T) {
	report := newReport("run", []string{"a", "b", "c"})
	report.Results[0].Status = StatusOK
	report.Results[1].Status = StatusMismatch
	report.Results[1].Err = transform.ErrRoundTripMismatch
	report.Results[2].Status = StatusFailed
	report.Results[2].Err = errors.New("boom")

	assert.Len(t, report.Succeeded(), 1)
	assert.Len(t, report.Failed(), 2)
	assert.ErrorIs(t, report.Err(), transform.ErrRoundTripMismatch)
	assert.ErrorContains(t, report.Err(), "boom")

	assert.NoError(t, newReport("empty", nil).Err())
}
