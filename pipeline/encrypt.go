package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tetelio/asset-pipeline/storage"
	"github.com/tetelio/asset-pipeline/storage/s3"
	"github.com/tetelio/asset-pipeline/timing"
	"github.com/tetelio/asset-pipeline/transform"
	"github.com/tetelio/asset-pipeline/utils"
	"github.com/tetelio/asset-pipeline/utils/validate"
)

// ErrDuplicateAsset is returned for a url whose file name was already claimed by
// an earlier url of the same batch.
var ErrDuplicateAsset = errors.New("asset name used by another url of the batch")

// Encryptor downloads, encrypts and uploads a list of assets.
type Encryptor struct {
	Fs          afero.Fs
	Fetcher     Fetcher
	Transformer Transformer
	Layout      Layout

	// Uploader and Bucket are both needed for the upload stage to run.
	Uploader storage.Uploader
	Bucket   string

	Recorder StageRecorder
	Metrics  Metrics

	// Workers bounds the files downloaded and encrypted at once, UploadWorkers
	// the uploads in flight. Zero means runtime.NumCPU().
	Workers       int
	UploadWorkers int
}

type uploadJob struct {
	index int
	path  string
}

func (e *Encryptor) uploadEnabled() bool {
	return e.Uploader != nil && validate.IsNotBlank(e.Bucket)
}

// Run processes urls, the index of each file being its position in the list.
// A failing file never stops the others. When ctx is cancelled no new file is
// started and Run returns ctx.Err() along with the partial report.
func (e *Encryptor) Run(ctx context.Context, urls []string) (*Report, error) {
	if e.Fs == nil || e.Fetcher == nil || e.Transformer == nil {
		return nil, errors.New("encryptor needs a filesystem, a fetcher and a transformer")
	}
	if e.Recorder == nil {
		e.Recorder = nopRecorder{}
	}
	if e.Metrics == nil {
		e.Metrics = nopMetrics{}
	}
	e.Layout = e.Layout.withDefaults()
	if err := e.Layout.Ensure(e.Fs); err != nil {
		return nil, fmt.Errorf("failed to create asset directories: %w", err)
	}

	report := newReport(uuid.NewString(), urls)
	ctx, span := tracer.Start(ctx, "encrypt batch", trace.WithAttributes(
		attribute.String("run.id", report.RunID),
		attribute.Int("files", len(urls)),
	))
	defer span.End()

	zlog.Ctx(ctx).Info("starting encrypt run",
		zap.String("run.id", report.RunID),
		zap.Int("files", len(urls)),
		zap.Bool("upload", e.uploadEnabled()),
	)

	// one slot per file, so a transform worker never waits on an upload
	uploads := make(chan uploadJob, len(urls))

	var uploaders errgroup.Group
	if e.uploadEnabled() {
		for i := 0; i < workers(e.UploadWorkers); i++ {
			uploaders.Go(func() error {
				for job := range uploads {
					e.upload(ctx, job, &report.Results[job.index])
				}
				return nil
			})
		}
	}

	names := e.assetNames(ctx, urls, report)

	var transformers errgroup.Group
	transformers.SetLimit(workers(e.Workers))
	for i, url := range urls {
		if ctx.Err() != nil {
			break
		}
		if names[i] == "" {
			continue
		}
		transformers.Go(func() error {
			e.encryptOne(ctx, i, url, names[i], &report.Results[i], uploads)
			return nil
		})
	}
	_ = transformers.Wait()
	close(uploads)
	_ = uploaders.Wait()

	finish(ctx, report, "encrypt", e.Metrics)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// assetNames resolves the local file name of every url. Files run concurrently,
// so a name may belong to one url only: later urls with the same name, and urls
// without a usable name, are failed here and get "" as their name.
func (e *Encryptor) assetNames(ctx context.Context, urls []string, report *Report) []string {
	names := make([]string, len(urls))
	claimed := make(map[string]int, len(urls))
	for i, url := range urls {
		name, err := AssetName(url)
		if err == nil {
			if first, ok := claimed[name]; ok {
				err = fmt.Errorf("%w: %s already comes from file %d (%s)", ErrDuplicateAsset, name, first, urls[first])
			}
		}
		if err != nil {
			report.Results[i].Status = StatusFailed
			report.Results[i].Err = fmt.Errorf("file %d (%s): %w", i, url, err)
			zlog.Ctx(ctx).Error("skipping asset", zap.Int("file.index", i), zap.String("url", url), zap.Error(err))
			continue
		}
		claimed[name] = i
		names[i] = name
	}
	return names
}

func (e *Encryptor) encryptOne(ctx context.Context, index int, url, name string, result *FileResult, uploads chan<- uploadJob) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := tracer.Start(ctx, "encrypt file", trace.WithAttributes(
		attribute.Int("file.index", index),
		attribute.String("url", url),
	))
	defer span.End()

	fail := func(err error) {
		result.Status = fileStatus(ctx, err, StatusFailed)
		result.Err = fmt.Errorf("file %d (%s): %w", index, url, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if result.Status == StatusCancelled {
			zlog.Ctx(ctx).Warn("asset cancelled", zap.Int("file.index", index), zap.String("url", url), zap.Error(err))
			return
		}
		zlog.Ctx(ctx).Error("failed to encrypt asset",
			zap.Int("file.index", index), zap.String("url", url), zap.Error(err))
	}

	assetPath := filepath.Join(e.Layout.AssetsDir, name)
	encryptedPath := filepath.Join(e.Layout.EncryptedDir, EncryptedName(name))

	e.Recorder.Begin(index, timing.StageDownload)
	data, err := e.Fetcher.Fetch(ctx, url)
	if err == nil {
		err = utils.WriteFileAtomic(e.Fs, assetPath, data, 0644)
	}
	e.Recorder.End(index, timing.StageDownload)
	if err != nil {
		fail(fmt.Errorf("download: %w", err))
		return
	}

	e.Recorder.Begin(index, timing.StageEncrypt)
	err = e.writeEncrypted(encryptedPath, data)
	e.Recorder.End(index, timing.StageEncrypt)
	if err != nil {
		fail(fmt.Errorf("encrypt: %w", err))
		return
	}

	e.Metrics.AddBytes("encrypt", len(data))
	result.Output = encryptedPath
	result.Bytes = len(data)
	result.Status = StatusOK

	zlog.Ctx(ctx).Info("encrypted asset",
		zap.Int("file.index", index), zap.String("url", url), zap.String("path", encryptedPath))

	if e.uploadEnabled() {
		uploads <- uploadJob{index: index, path: encryptedPath}
	}
}

// writeEncrypted stores the encrypted form of data at path, streaming it through
// the transformer when it supports that.
func (e *Encryptor) writeEncrypted(path string, data []byte) error {
	if st, ok := e.Transformer.(StreamTransformer); ok {
		r, err := st.NewReader(bytes.NewReader(data), transform.DirectionEncrypt)
		if err != nil {
			return err
		}
		return utils.WriteReaderAtomic(e.Fs, path, r, 0644)
	}

	encrypted, err := e.Transformer.Encrypt(data)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(e.Fs, path, encrypted, 0644)
}

// upload sends an encrypted file to the bucket, the object key being its local path.
func (e *Encryptor) upload(ctx context.Context, job uploadJob, result *FileResult) {
	ctx, span := tracer.Start(ctx, "upload file", trace.WithAttributes(
		attribute.Int("file.index", job.index),
		attribute.String("path", job.path),
	))
	defer span.End()

	e.Recorder.Begin(job.index, timing.StageUpload)
	remote, err := e.Uploader.Upload(ctx, job.path, s3.NewDestinationSpec(e.Bucket, filepath.ToSlash(job.path)))
	e.Recorder.End(job.index, timing.StageUpload)
	if err != nil {
		result.Status = StatusUploadFailed
		result.Err = fmt.Errorf("file %d (%s): upload: %w", job.index, job.path, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		zlog.Ctx(ctx).Error("failed to upload encrypted asset, local copy kept",
			zap.Int("file.index", job.index), zap.String("path", job.path), zap.Error(err))
		return
	}

	result.Remote = remote.RemoteURI()
	zlog.Ctx(ctx).Info("uploaded encrypted asset",
		zap.Int("file.index", job.index), zap.String("path", job.path), zap.String("remote", result.Remote))
}

// finish marks the files never started, logs the outcome and feeds the metrics.
func finish(ctx context.Context, report *Report, direction string, m Metrics) {
	for i := range report.Results {
		res := &report.Results[i]
		if res.Status == StatusCancelled && res.Err == nil {
			cause := ctx.Err()
			if cause == nil {
				cause = context.Canceled
			}
			res.Err = fmt.Errorf("file %d (%s): %w", res.Index, res.Source, cause)
		}
		m.RecordFile(direction, string(res.Status))
	}

	zlog.Ctx(ctx).Info(fmt.Sprintf("%s run finished", direction),
		zap.String("run.id", report.RunID),
		zap.Int("succeeded", len(report.Succeeded())),
		zap.Int("failed", len(report.Failed())),
	)
}
