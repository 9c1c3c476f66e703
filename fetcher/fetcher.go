// Package fetcher downloads source assets over HTTP.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/tetelio/asset-pipeline/utils"
)

const DefaultTimeout = 5 * time.Minute

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %s", e.URL, e.Status)
}

// HTTPFetcher fetches whole response bodies into memory.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher whose requests give up after timeout.
// A timeout of zero means DefaultTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// NewHTTPFetcherWithClient uses client as is.
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body := utils.ReaderWithProgress(resp.Body, resp.ContentLength)
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}

	progress := body.Snapshot()
	if progress.Size() > 0 && !progress.Complete() {
		return nil, fmt.Errorf("reading body of %s: got %s of %s", url,
			humanize.Bytes(uint64(progress.N())), humanize.Bytes(uint64(progress.Size())))
	}

	zlog.Ctx(ctx).Debug("fetched asset",
		zap.String("url", url),
		zap.String("size", humanize.Bytes(uint64(len(data)))),
		zap.String("rate", humanize.Bytes(uint64(progress.Rate()))+"/s"),
	)
	return data, nil
}
