// Package fetcher is the shared HTTP layer for source adapters: per-host
// rate limiting, retry on 429/5xx and typed errors that map onto the result
// taxonomy.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetcher defines the HTTP operations source adapters depend on.
type Fetcher interface {
	// Get fetches rawURL and returns the body of a 2xx response.
	Get(ctx context.Context, rawURL string, header http.Header) (io.ReadCloser, error)

	// GetJSON fetches rawURL and decodes the JSON body into out.
	GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error
}

// StatusError is returned for a non-2xx response that was not retried or
// that exhausted its retries.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d from %s", e.Code, e.URL)
	}
	return fmt.Sprintf("http %d from %s: %s", e.Code, e.URL, e.Body)
}
