package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"transcode-jobs/ddd/domain/port"
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/logger"
)

// HTTPFetcher downloads remote inputs to local disk, bounded by the
// configured timeout and maximum input size.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

// NewHTTPFetcher builds a fetcher from the fetch configuration.
func NewHTTPFetcher(cfg config.FetchConfig) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		maxSize: cfg.MaxInputSize,
	}
}

// Fetch streams the url body into destPath. Partial downloads are removed.
func (f *HTTPFetcher) Fetch(ctx context.Context, sourceURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch input: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch input: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > f.maxSize {
		return fmt.Errorf("input size %d exceeds limit %d", resp.ContentLength, f.maxSize)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create input file: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, f.maxSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > f.maxSize {
		err = fmt.Errorf("input exceeds size limit %d", f.maxSize)
	}
	if err != nil {
		_ = os.Remove(destPath)
		return err
	}

	logger.Debugf("fetched input url=%s bytes=%d", sourceURL, written)
	return nil
}

var _ port.InputFetcher = (*HTTPFetcher)(nil)
