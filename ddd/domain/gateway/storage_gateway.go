package gateway

import (
	"context"
	"io"
)

// StorageGateway abstracts the artifact object store.
type StorageGateway interface {
	// UploadArtifact stores a local file under objectKey and returns the
	// final key.
	UploadArtifact(ctx context.Context, localPath, objectKey, contentType string) (string, error)

	// OpenArtifact streams a stored object. Size is -1 when unknown.
	OpenArtifact(ctx context.Context, objectKey string) (rc io.ReadCloser, size int64, err error)

	// DownloadFile stages an object into a local file.
	DownloadFile(ctx context.Context, objectKey, localPath string) error
}
