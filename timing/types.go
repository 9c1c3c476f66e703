// Package timing records when each pipeline stage started and ended for every
// file, relative to the start of the run, and persists the records as JSON for
// later analysis.
package timing

import "time"

// Stage names one step of the per-file pipeline.
type Stage string

const (
	StageDownload Stage = "download"
	StageEncrypt  Stage = "encrypt"
	StageUpload   Stage = "upload"
	StageDecrypt  Stage = "decrypt"
)

// Stages lists the known stages in pipeline order.
var Stages = []Stage{StageDownload, StageEncrypt, StageUpload, StageDecrypt}

// Span holds the start and end of a stage in seconds since the run origin.
// An End of zero means the stage has not finished.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the elapsed time of a finished span.
func (s Span) Duration() time.Duration {
	if s.End < s.Start {
		return 0
	}
	return time.Duration((s.End - s.Start) * float64(time.Second))
}

// Records maps a file index to the spans recorded for it.
type Records map[int]map[Stage]Span

// Observer receives the duration of every completed stage.
type Observer interface {
	ObserveStage(stage Stage, d time.Duration)
}
