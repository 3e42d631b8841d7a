package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root service configuration.
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	Log             LogConfig             `mapstructure:"log"`
	Minio           MinioConfig           `mapstructure:"minio"`
	Transcode       TranscodeConfig       `mapstructure:"transcode"`
	Worker          WorkerConfig          `mapstructure:"worker"`
	Fetch           FetchConfig           `mapstructure:"fetch"`
	Retention       RetentionConfig       `mapstructure:"retention"`
	RateLimit       RateLimitConfig       `mapstructure:"rate_limit"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds the MySQL archive settings.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// KafkaConfig holds Kafka settings.
type KafkaConfig struct {
	Enabled          bool              `mapstructure:"enabled"`
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	GroupID          string            `mapstructure:"group_id"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

// KafkaTopicsConfig names the topics used by the service.
type KafkaTopicsConfig struct {
	JobEvents string `mapstructure:"job_events"`
	JobSubmit string `mapstructure:"job_submit"`
}

// MinioConfig holds the artifact object store settings.
type MinioConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ServiceRegistryConfig controls etcd registration.
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoints       []string      `mapstructure:"endpoints"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// TranscodeConfig holds transcoding settings.
type TranscodeConfig struct {
	FFmpeg FFmpegConfig `mapstructure:"ffmpeg"`
}

// FFmpegConfig holds the external tool settings.
//
// Timeout is the per-job deadline ceiling: a job may ask for less, never more.
type FFmpegConfig struct {
	BinaryPath  string        `mapstructure:"binary_path"`
	TempDir     string        `mapstructure:"temp_dir"`
	Timeout     time.Duration `mapstructure:"timeout"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
	VideoPreset string        `mapstructure:"video_preset"`
	Threads     int           `mapstructure:"threads"`
}

// WorkerConfig sizes the execution pool and the admission queue.
type WorkerConfig struct {
	WorkerID            string        `mapstructure:"worker_id"`
	PoolSize            int           `mapstructure:"pool_size"`
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// FetchConfig bounds remote input retrieval.
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxInputSize int64         `mapstructure:"max_input_size"`
}

// RetentionConfig controls eviction of terminal jobs from memory.
type RetentionConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxAge        time.Duration `mapstructure:"max_age"`
}

// RateLimitConfig controls the redis submission limiter.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads and normalizes configuration from the given file.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("kafka.client_id", "transcode-jobs")
	viper.SetDefault("kafka.group_id", "transcode-jobs-group")
	viper.SetDefault("kafka.bootstrap_servers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topics.job_events", "transcode.jobs.events")
	viper.SetDefault("kafka.topics.job_submit", "transcode.jobs.submit")
	viper.SetDefault("service_registry.service_name", "transcode-jobs")

	viper.SetEnvPrefix("GO_TRANSCODE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize fills in defaults for unset fields.
func (c *Config) normalize() {
	if c.Server.Port == 0 {
		c.Server.Port = 8083
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}

	if c.Worker.PoolSize <= 0 {
		c.Worker.PoolSize = 2
	}
	if c.Worker.QueueCapacity <= 0 {
		c.Worker.QueueCapacity = c.Worker.PoolSize * 10
	}
	if c.Worker.WorkerID == "" {
		c.Worker.WorkerID = "transcode-worker"
	}
	if c.Worker.ShutdownGracePeriod == 0 {
		c.Worker.ShutdownGracePeriod = 10 * time.Second
	}

	if c.Transcode.FFmpeg.TempDir == "" {
		c.Transcode.FFmpeg.TempDir = "/tmp/transcode-jobs"
	}
	if c.Transcode.FFmpeg.BinaryPath == "" {
		c.Transcode.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Transcode.FFmpeg.VideoPreset == "" {
		c.Transcode.FFmpeg.VideoPreset = "medium"
	}
	if c.Transcode.FFmpeg.Threads < 0 {
		c.Transcode.FFmpeg.Threads = 0
	}
	// Ceiling observed from the deployment's process manager.
	if c.Transcode.FFmpeg.Timeout == 0 {
		c.Transcode.FFmpeg.Timeout = 1000 * time.Second
	}
	if c.Transcode.FFmpeg.GracePeriod == 0 {
		c.Transcode.FFmpeg.GracePeriod = 10 * time.Second
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 5 * time.Minute
	}
	if c.Fetch.MaxInputSize <= 0 {
		c.Fetch.MaxInputSize = 4 << 30
	}

	if c.Retention.SweepInterval == 0 {
		c.Retention.SweepInterval = 10 * time.Minute
	}
	if c.Retention.MaxAge == 0 {
		c.Retention.MaxAge = 24 * time.Hour
	}

	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 60
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}

	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
	if c.ServiceRegistry.DialTimeout == 0 {
		c.ServiceRegistry.DialTimeout = 5 * time.Second
	}

	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:9092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "transcode-jobs"
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "transcode-artifacts"
	}
}

// GetDSN builds the MySQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// GetRedisAddr builds the Redis address.
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
