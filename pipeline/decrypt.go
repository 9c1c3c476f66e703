package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tetelio/asset-pipeline/timing"
	"github.com/tetelio/asset-pipeline/transform"
	"github.com/tetelio/asset-pipeline/utils"
)

// Decryptor decrypts every file of the encrypted directory and checks it against
// the original asset before writing it out.
type Decryptor struct {
	Fs          afero.Fs
	Transformer Transformer
	Layout      Layout
	Recorder    StageRecorder
	Metrics     Metrics
	Workers     int
}

// Run processes the regular files of the encrypted directory in name order.
// Hidden files, such as the temporary files of interrupted writes, are skipped.
func (d *Decryptor) Run(ctx context.Context) (*Report, error) {
	if d.Fs == nil || d.Transformer == nil {
		return nil, errors.New("decryptor needs a filesystem and a transformer")
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	d.Layout = d.Layout.withDefaults()
	if err := d.Layout.Ensure(d.Fs); err != nil {
		return nil, fmt.Errorf("failed to create asset directories: %w", err)
	}

	names, err := d.encryptedFiles()
	if err != nil {
		return nil, err
	}
	sources := make([]string, len(names))
	for i, name := range names {
		sources[i] = filepath.Join(d.Layout.EncryptedDir, name)
	}

	report := newReport(uuid.NewString(), sources)
	ctx, span := tracer.Start(ctx, "decrypt batch", trace.WithAttributes(
		attribute.String("run.id", report.RunID),
		attribute.Int("files", len(sources)),
	))
	defer span.End()

	zlog.Ctx(ctx).Info("starting decrypt run",
		zap.String("run.id", report.RunID), zap.Int("files", len(sources)))

	var g errgroup.Group
	g.SetLimit(workers(d.Workers))
	for i, name := range names {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			d.decryptOne(ctx, i, name, &report.Results[i])
			return nil
		})
	}
	_ = g.Wait()

	finish(ctx, report, "decrypt", d.Metrics)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (d *Decryptor) encryptedFiles() ([]string, error) {
	infos, err := afero.ReadDir(d.Fs, d.Layout.EncryptedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.Layout.EncryptedDir, err)
	}
	var names []string
	for _, info := range infos {
		if !info.Mode().IsRegular() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		names = append(names, info.Name())
	}
	return names, nil
}

func (d *Decryptor) decryptOne(ctx context.Context, index int, name string, result *FileResult) {
	if ctx.Err() != nil {
		return
	}
	encryptedPath := result.Source
	ctx, span := tracer.Start(ctx, "decrypt file", trace.WithAttributes(
		attribute.Int("file.index", index),
		attribute.String("path", encryptedPath),
	))
	defer span.End()

	fail := func(status Status, err error) {
		result.Status = fileStatus(ctx, err, status)
		result.Err = fmt.Errorf("file %d (%s): %w", index, encryptedPath, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	d.Recorder.Begin(index, timing.StageDecrypt)
	defer d.Recorder.End(index, timing.StageDecrypt)

	data, err := afero.ReadFile(d.Fs, encryptedPath)
	if err != nil {
		fail(StatusFailed, err)
		zlog.Ctx(ctx).Error("failed to read encrypted asset",
			zap.Int("file.index", index), zap.String("path", encryptedPath), zap.Error(err))
		return
	}

	decrypted, err := d.Transformer.Decrypt(data)
	if err != nil {
		fail(StatusFailed, err)
		zlog.Ctx(ctx).Error("failed to decrypt asset",
			zap.Int("file.index", index), zap.String("path", encryptedPath), zap.Error(err))
		return
	}

	referencePath := filepath.Join(d.Layout.AssetsDir, OriginalName(name))
	reference, err := afero.ReadFile(d.Fs, referencePath)
	if err != nil {
		fail(StatusFailed, fmt.Errorf("reading original asset: %w", err))
		zlog.Ctx(ctx).Error("original asset not available for verification",
			zap.Int("file.index", index), zap.String("path", encryptedPath),
			zap.String("reference", referencePath), zap.Error(err))
		return
	}

	if err := d.Transformer.Verify(decrypted, reference); err != nil {
		status := StatusFailed
		if errors.Is(err, transform.ErrRoundTripMismatch) {
			status = StatusMismatch
		}
		fail(status, err)
		zlog.Ctx(ctx).Warn("decrypted asset does not match the original, the key or rounds likely differ from the ones used to encrypt it",
			zap.Int("file.index", index), zap.String("path", encryptedPath),
			zap.String("reference", referencePath), zap.Error(err))
		return
	}

	decryptedPath := filepath.Join(d.Layout.DecryptedDir, DecryptedName(name))
	if err := utils.WriteFileAtomic(d.Fs, decryptedPath, decrypted, 0644); err != nil {
		fail(StatusFailed, err)
		zlog.Ctx(ctx).Error("failed to write decrypted asset",
			zap.Int("file.index", index), zap.String("path", decryptedPath), zap.Error(err))
		return
	}

	d.Metrics.AddBytes("decrypt", len(decrypted))
	result.Output = decryptedPath
	result.Bytes = len(decrypted)
	result.Status = StatusOK
	zlog.Ctx(ctx).Info("decrypted and verified asset",
		zap.Int("file.index", index), zap.String("path", decryptedPath))
}
