package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"transcode-jobs/ddd/adapter/component"
	adapterhttp "transcode-jobs/ddd/adapter/http"
	appsvc "transcode-jobs/ddd/application/app"
	"transcode-jobs/ddd/domain/gateway"
	"transcode-jobs/ddd/infrastructure/database/persistence"
	"transcode-jobs/ddd/infrastructure/events"
	"transcode-jobs/ddd/infrastructure/executor"
	"transcode-jobs/ddd/infrastructure/fetch"
	"transcode-jobs/ddd/infrastructure/queue"
	"transcode-jobs/ddd/infrastructure/storage"
	"transcode-jobs/ddd/infrastructure/store"
	"transcode-jobs/ddd/infrastructure/worker"
	"transcode-jobs/internal/resource"
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/kafka"
	"transcode-jobs/pkg/logger"
	"transcode-jobs/pkg/manager"
	"transcode-jobs/pkg/middleware"
	"transcode-jobs/pkg/registry"
	"transcode-jobs/pkg/task"
)

// Run assembles and starts the service, blocking until shutdown.
func Run() {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	config.SetGlobalConfig(cfg)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	defer logService.Close()

	logger.Infof("transcode-jobs starting config=%s", cfgPath)

	// fail at startup, not on the first job
	ffmpegBin := cfg.Transcode.FFmpeg.BinaryPath
	if strings.TrimSpace(ffmpegBin) == "" {
		ffmpegBin = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		logger.Fatal(fmt.Sprintf("ffmpeg binary not found, install it or set transcode.ffmpeg.binary_path binary=%s error=%s", ffmpegBin, err.Error()))
	}

	logger.Infof("initializing resources...")
	manager.MustInitResources()
	defer manager.CloseResources()

	// lifecycle hooks observe every committed transition
	var hooks []store.TransitionHook
	var archive *persistence.JobArchive
	if cfg.Database.Enabled {
		archive = persistence.NewJobArchive()
		startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := archive.ReconcileOrphans(startupCtx); err != nil {
			logger.Errorf("startup reconciliation: %v", err)
		}
		cancel()
		hooks = append(hooks, archive.RecordTransition)
	}
	if cfg.Kafka.Enabled {
		publisher := events.NewKafkaPublisher(kafka.DefaultClient(), cfg.Kafka.Topics.JobEvents)
		hooks = append(hooks, publisher.PublishTransition)
	}

	jobStore := store.NewMemoryJobStore(hooks...)
	admissionQueue := queue.NewMemoryAdmissionQueue(cfg.Worker.QueueCapacity)

	var storageGateway gateway.StorageGateway
	if cfg.Minio.Enabled {
		storageGateway = storage.NewMinioStorage(resource.DefaultMinioResource())
	}
	fetcher := fetch.NewHTTPFetcher(cfg.Fetch)

	ffmpegExecutor := executor.NewFFmpegExecutor(cfg, storageGateway, fetcher)
	pool := worker.NewPool(cfg, jobStore, admissionQueue, ffmpegExecutor)
	var archiveReader appsvc.ArchiveReader
	if archive != nil {
		archiveReader = archive
	}
	jobApp := appsvc.NewJobAppWith(cfg, jobStore, admissionQueue, pool, storageGateway, archiveReader)

	task.Register(pool)
	var purger component.Purger
	if archive != nil {
		purger = archive
	}
	task.Register(component.NewRetentionSweep(cfg.Retention, jobStore, purger))
	if cfg.Kafka.Enabled {
		task.Register(component.NewSubmitConsumer(jobApp, cfg.Kafka.Topics.JobSubmit, cfg.Kafka.GroupID))
	}
	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("failed to start background tasks error=%v", err))
	}

	var rateLimiter gin.HandlerFunc
	if cfg.RateLimit.Enabled && cfg.Redis.Enabled {
		rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RedisClient: resource.DefaultRedisResource().Client(),
			Limit:       cfg.RateLimit.Limit,
			Window:      cfg.RateLimit.Window,
			KeyPrefix:   "transcode-jobs:submit:",
		})
	}

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	router := adapterhttp.NewRouter(jobApp, rateLimiter)
	router.SetupMiddleware(engine)
	router.SetupRoutes(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var serviceRegistry *registry.ServiceRegistry
	if cfg.ServiceRegistry.Enabled {
		serviceRegistry, err = registry.NewServiceRegistry(
			registry.RegistryConfig{
				Endpoints:   cfg.ServiceRegistry.Endpoints,
				DialTimeout: cfg.ServiceRegistry.DialTimeout,
			},
			registry.ServiceConfig{
				ServiceName: cfg.ServiceRegistry.ServiceName,
				ServiceID:   serviceID(cfg),
				TTL:         cfg.ServiceRegistry.TTL,
			},
			registerAddr(cfg),
		)
		if err != nil {
			logger.Fatal(fmt.Sprintf("failed to create service registry error=%v", err))
		}
		if err := serviceRegistry.Register(); err != nil {
			logger.Fatal(fmt.Sprintf("failed to register service error=%v", err))
		}
	}

	go func() {
		logger.Infof("http server started addr=%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("http server error=%v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("shutdown signal received")

	if serviceRegistry != nil {
		_ = serviceRegistry.Deregister()
	}

	// stop intake first so draining slots see a closed queue
	_ = admissionQueue.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http server forced to close error=%v", err)
	}

	task.StopAll()

	logger.Infof("transcode-jobs exited")
}

func serviceID(cfg *config.Config) string {
	if cfg.ServiceRegistry.ServiceID != "" {
		return cfg.ServiceRegistry.ServiceID
	}
	return cfg.Worker.WorkerID
}

func registerAddr(cfg *config.Config) string {
	host := cfg.ServiceRegistry.RegisterHost
	if host == "" {
		host = cfg.Server.Host
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("%s:%d", host, cfg.Server.Port)
}

// resolveConfigPath picks the config file, honoring CONFIG_PATH and
// CONFIG_ENV overrides.
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config.prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
