package utils

import (
	"io"
	"sync"
	"time"
)

type IOProgress struct {
	n         float64
	size      float64
	started   time.Time
	estimated time.Time
	err       error
}

type Reader struct {
	reader   io.Reader
	lock     sync.RWMutex
	Progress IOProgress
}

// ReaderWithProgress wraps r and counts the bytes read from it. A size of -1 means unknown.
func ReaderWithProgress(r io.Reader, size int64) *Reader {
	return &Reader{
		reader:   r,
		Progress: IOProgress{started: time.Now(), size: float64(size)},
	}
}

func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	r.lock.Lock()
	r.Progress.n += float64(n)
	r.Progress.err = err
	r.lock.Unlock()
	return n, err
}

// Snapshot returns a copy of the current progress that is safe to inspect.
func (r *Reader) Snapshot() IOProgress {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.Progress
}

func (p IOProgress) Size() float64 {
	return p.size
}

func (p IOProgress) N() float64 {
	return p.n
}

func (p IOProgress) Complete() bool {
	if p.err == io.EOF {
		return true
	}
	if p.size == -1 {
		return false
	}
	return p.n >= p.size
}

// Percent calculates the percentage complete.
func (p IOProgress) Percent() float64 {
	if p.n == 0 || p.size <= 0 {
		return 0
	}
	if p.n >= p.size {
		return 100
	}
	return 100.0 / (p.size / p.n)
}

// Elapsed is the time since the reader was created.
func (p IOProgress) Elapsed() time.Duration {
	return time.Since(p.started)
}

// Rate returns the observed throughput in bytes per second.
func (p IOProgress) Rate() float64 {
	secs := p.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return p.n / secs
}
