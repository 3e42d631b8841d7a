package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"transcode-jobs/pkg/assert"
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/logger"
	"transcode-jobs/pkg/manager"
)

var (
	minioResourceOnce      sync.Once
	singletonMinioResource *MinioResource
)

// MinioResource manages the artifact object store client.
type MinioResource struct {
	client     *minio.Client
	bucketName string
}

// DefaultMinioResource returns the MinIO resource singleton.
func DefaultMinioResource() *MinioResource {
	assert.NotCircular()
	minioResourceOnce.Do(func() {
		singletonMinioResource = &MinioResource{}
	})
	assert.NotNil(singletonMinioResource)
	return singletonMinioResource
}

// MustOpen initializes the MinIO client and ensures the bucket exists.
func (r *MinioResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before MinioResource")
	}

	minioCfg := cfg.Minio
	if !minioCfg.Enabled {
		logger.Warnf("minio disabled, artifacts will stay on local disk")
		return
	}
	if minioCfg.Endpoint == "" {
		panic("minio endpoint is required")
	}

	client, err := minio.New(minioCfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioCfg.AccessKeyID, minioCfg.SecretAccessKey, ""),
		Secure: minioCfg.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create minio client: %v", err))
	}

	r.client = client
	r.bucketName = minioCfg.BucketName

	r.ensureBucket()

	logger.Info("minio resource initialized", map[string]interface{}{
		"endpoint":    minioCfg.Endpoint,
		"bucket_name": r.bucketName,
	})
}

func (r *MinioResource) ensureBucket() {
	ctx := context.Background()
	exists, err := r.client.BucketExists(ctx, r.bucketName)
	if err != nil {
		panic(fmt.Sprintf("failed to check minio bucket: %v", err))
	}
	if exists {
		return
	}
	if err := r.client.MakeBucket(ctx, r.bucketName, minio.MakeBucketOptions{}); err != nil {
		panic(fmt.Sprintf("failed to create minio bucket: %v", err))
	}
}

// GetClient returns the MinIO client, or nil when disabled.
func (r *MinioResource) GetClient() *minio.Client {
	return r.client
}

// GetBucketName returns the artifact bucket.
func (r *MinioResource) GetBucketName() string {
	return r.bucketName
}

// Close releases the resource; the minio client holds no persistent
// connection.
func (r *MinioResource) Close() {}

// MinioResourcePlugin wires the resource into the manager.
type MinioResourcePlugin struct{}

func (p *MinioResourcePlugin) Name() string { return "minio" }

func (p *MinioResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMinioResource()
}
