package timing

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder collects stage spans for many files. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	origin   time.Time
	now      func() time.Time
	records  Records
	observer Observer
}

type RecorderOption func(*Recorder)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithObserver forwards every finished stage to o.
func WithObserver(o Observer) RecorderOption {
	return func(r *Recorder) {
		r.observer = o
	}
}

// NewRecorder returns a Recorder whose origin is the moment it was created.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		now:     time.Now,
		records: make(Records),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.origin = r.now()
	return r
}

// Elapsed returns the time passed since the origin.
func (r *Recorder) Elapsed() time.Duration {
	return r.now().Sub(r.origin)
}

// Begin marks the start of stage for the file at index.
func (r *Recorder) Begin(index int, stage Stage) {
	at := r.now().Sub(r.origin).Seconds()

	r.mu.Lock()
	defer r.mu.Unlock()

	spans, ok := r.records[index]
	if !ok {
		spans = make(map[Stage]Span)
		r.records[index] = spans
	}
	spans[stage] = Span{Start: at}
}

// End marks the end of stage for the file at index. Ending a stage that was
// never begun is ignored.
func (r *Recorder) End(index int, stage Stage) {
	at := r.now().Sub(r.origin).Seconds()

	r.mu.Lock()
	span, ok := r.records[index][stage]
	if !ok {
		r.mu.Unlock()
		zlog.Debug("stage ended without a start", zap.Int("file.index", index), zap.String("stage", string(stage)))
		return
	}
	span.End = at
	r.records[index][stage] = span
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer.ObserveStage(stage, span.Duration())
	}
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() Records {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(Records, len(r.records))
	for index, spans := range r.records {
		copied := make(map[Stage]Span, len(spans))
		for stage, span := range spans {
			copied[stage] = span
		}
		out[index] = copied
	}
	return out
}
