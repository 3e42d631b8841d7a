package port

import "context"

// InputFetcher stages remote source media into a local file. The caller
// owns the destination path and removes it when done.
type InputFetcher interface {
	Fetch(ctx context.Context, sourceURL, destPath string) error
}
