package pipeline

import "errors"

type Status string

const (
	StatusOK           Status = "ok"
	StatusFailed       Status = "failed"
	StatusMismatch     Status = "mismatch"
	StatusUploadFailed Status = "upload_failed"
	StatusCancelled    Status = "cancelled"
)

// FileResult is the outcome of one file of a batch.
type FileResult struct {
	Index int
	// Source is the URL (encrypt) or the encrypted path (decrypt) the file came from.
	Source string
	// Output is the local file written, empty when nothing was written.
	Output string
	// Remote is the URI of the uploaded object, if any.
	Remote string
	Bytes  int
	Status Status
	Err    error
}

// Report collects the results of a batch in index order.
type Report struct {
	RunID   string
	Results []FileResult
}

func newReport(runID string, sources []string) *Report {
	results := make([]FileResult, len(sources))
	for i, src := range sources {
		results[i] = FileResult{Index: i, Source: src, Status: StatusCancelled}
	}
	return &Report{RunID: runID, Results: results}
}

func (r *Report) Succeeded() []FileResult {
	return r.filter(func(res FileResult) bool { return res.Status == StatusOK })
}

func (r *Report) Failed() []FileResult {
	return r.filter(func(res FileResult) bool { return res.Status != StatusOK })
}

// Err joins the errors of every file that did not succeed.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

func (r *Report) filter(keep func(FileResult) bool) []FileResult {
	var out []FileResult
	for _, res := range r.Results {
		if keep(res) {
			out = append(out, res)
		}
	}
	return out
}
