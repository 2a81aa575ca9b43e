package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blacktop/skymirror/internal/mirror"
)

const (
	// DefaultMaxFetchBytes caps how much of an upstream body is read, a
	// little above the video byte budget so nothing fetchable is rejected
	// here but a hostile upstream cannot exhaust memory.
	DefaultMaxFetchBytes = DefaultMaxVideoBytes + (8 << 20)

	fetchTimeout = 30 * time.Second
)

// Fetcher retrieves remote media over HTTP. One attempt per resource, no
// retries; a failure just marks the attachment unavailable.
type Fetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewFetcher constructs a Fetcher with the default timeout and read cap.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:   &http.Client{Timeout: fetchTimeout},
		MaxBytes: DefaultMaxFetchBytes,
	}
}

// Fetch downloads the resource at url into memory.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, mirror.FetchError{URL: url, Err: err}
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, mirror.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, mirror.FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	max := f.MaxBytes
	if max <= 0 {
		max = DefaultMaxFetchBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, max+1))
	if err != nil {
		return nil, mirror.FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > max {
		return nil, mirror.FetchError{URL: url, Err: fmt.Errorf("body exceeds %d byte cap", max)}
	}

	return data, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}
