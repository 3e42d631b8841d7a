package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"transcode-jobs/ddd/domain/gateway"
	"transcode-jobs/internal/resource"
	"transcode-jobs/pkg/logger"
)

// MinioStorage implements the artifact gateway on the MinIO resource.
type MinioStorage struct {
	minioResource *resource.MinioResource
}

// NewMinioStorage creates the storage gateway.
func NewMinioStorage(minioResource *resource.MinioResource) gateway.StorageGateway {
	return &MinioStorage{
		minioResource: minioResource,
	}
}

// UploadArtifact stores a local file under objectKey and returns the key.
func (s *MinioStorage) UploadArtifact(ctx context.Context, localPath, objectKey, contentType string) (string, error) {
	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetBucketName()

	file, err := os.Open(localPath)
	if err != nil {
		logger.Error("Failed to open local artifact", map[string]interface{}{
			"local_path": localPath,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("open local artifact failed: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("get file info failed: %w", err)
	}

	if contentType == "" {
		contentType = getContentTypeFromExtension(objectKey)
	}

	_, err = client.PutObject(ctx, bucketName, objectKey, file, fileInfo.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("Failed to upload artifact to MinIO", map[string]interface{}{
			"local_path": localPath,
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("upload artifact to minio failed: %w", err)
	}

	logger.Info("Artifact uploaded", map[string]interface{}{
		"object_key": objectKey,
		"size":       fileInfo.Size(),
	})

	return objectKey, nil
}

// OpenArtifact streams a stored artifact.
func (s *MinioStorage) OpenArtifact(ctx context.Context, objectKey string) (rc io.ReadCloser, size int64, err error) {
	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetBucketName()

	object, err := client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get object from minio failed: %w", err)
	}

	// GetObject is lazy; Stat performs the request and surfaces not-found.
	stat, err := object.Stat()
	if err != nil {
		_ = object.Close()
		return nil, 0, fmt.Errorf("stat object in minio failed: %w", err)
	}

	return object, stat.Size, nil
}

// DownloadFile stages an object into a local file.
func (s *MinioStorage) DownloadFile(ctx context.Context, objectKey, localPath string) error {
	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetBucketName()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create local directory failed: %w", err)
	}

	object, err := client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		logger.Error("Failed to get object from MinIO", map[string]interface{}{
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return fmt.Errorf("get object from minio failed: %w", err)
	}
	defer object.Close()

	localFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file failed: %w", err)
	}
	defer localFile.Close()

	if _, err = localFile.ReadFrom(object); err != nil {
		logger.Error("Failed to download object from MinIO", map[string]interface{}{
			"object_key": objectKey,
			"local_path": localPath,
			"error":      err.Error(),
		})
		return fmt.Errorf("download object from minio failed: %w", err)
	}

	logger.Debugf("object staged locally object_key=%s local_path=%s", objectKey, localPath)
	return nil
}

// getContentTypeFromExtension maps an object key extension to a media type.
func getContentTypeFromExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
