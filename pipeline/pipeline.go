// Package pipeline drives batches of files through download, transform, upload
// and verification. It owns the I/O and the concurrency; the byte transform
// itself lives in the transform package.
package pipeline

import (
	"context"
	"errors"
	"io"
	"runtime"

	"github.com/spf13/afero"

	"github.com/tetelio/asset-pipeline/models"
	"github.com/tetelio/asset-pipeline/timing"
	"github.com/tetelio/asset-pipeline/transform"
	"github.com/tetelio/asset-pipeline/utils"
)

// Fetcher retrieves the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Transformer is satisfied by *transform.Engine.
type Transformer interface {
	models.Encryptor
	models.Decryptor
	models.Verifier
}

// StreamTransformer is implemented by transformers able to transform while the
// output is being written, such as *transform.Engine. The encrypt stage uses it
// when available instead of holding a second copy of the asset in memory.
type StreamTransformer interface {
	NewReader(r io.Reader, dir transform.Direction) (*transform.Reader, error)
}

// StageRecorder is satisfied by *timing.Recorder.
type StageRecorder interface {
	Begin(index int, stage timing.Stage)
	End(index int, stage timing.Stage)
}

// Metrics is satisfied by *metrics.Registry.
type Metrics interface {
	RecordFile(direction, status string)
	AddBytes(direction string, n int)
}

type nopRecorder struct{}

func (nopRecorder) Begin(int, timing.Stage) {}
func (nopRecorder) End(int, timing.Stage)   {}

type nopMetrics struct{}

func (nopMetrics) RecordFile(string, string) {}
func (nopMetrics) AddBytes(string, int)      {}

const (
	DefaultAssetsDir    = "assets"
	DefaultEncryptedDir = "encrypted_assets"
	DefaultDecryptedDir = "decrypted_assets"
)

// Layout names the local directories of a run.
type Layout struct {
	AssetsDir    string
	EncryptedDir string
	DecryptedDir string
}

func (l Layout) withDefaults() Layout {
	if l.AssetsDir == "" {
		l.AssetsDir = DefaultAssetsDir
	}
	if l.EncryptedDir == "" {
		l.EncryptedDir = DefaultEncryptedDir
	}
	if l.DecryptedDir == "" {
		l.DecryptedDir = DefaultDecryptedDir
	}
	return l
}

// Ensure creates the directories that do not exist yet.
func (l Layout) Ensure(fs afero.Fs) error {
	l = l.withDefaults()
	return utils.EnsureDirs(fs, l.AssetsDir, l.EncryptedDir, l.DecryptedDir)
}

func workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// fileStatus is the status of a file that stopped on err. Errors caused by the
// run context being done count as cancellation, not failure.
func fileStatus(ctx context.Context, err error, otherwise Status) Status {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return StatusCancelled
	}
	return otherwise
}
