package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`
	CORSAllowOrigins   []string      `mapstructure:"cors_allow_origins"`
	LogLevel           string        `mapstructure:"log_level"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 存储配置
	StorageType      string `mapstructure:"storage_type"`
	StorageLocalPath string `mapstructure:"storage_local_path"`

	StorageMinioEndpoint        string `mapstructure:"storage_minio_endpoint"`
	StorageMinioAccessKeyID     string `mapstructure:"storage_minio_access_key_id"`
	StorageMinioSecretAccessKey string `mapstructure:"storage_minio_secret_access_key"`
	StorageMinioBucketName      string `mapstructure:"storage_minio_bucket_name"`
	StorageMinioUseSSL          bool   `mapstructure:"storage_minio_use_ssl"`

	StorageWebDAVURL      string        `mapstructure:"storage_webdav_url"`
	StorageWebDAVUsername string        `mapstructure:"storage_webdav_username"`
	StorageWebDAVPassword string        `mapstructure:"storage_webdav_password"`
	StorageWebDAVRootPath string        `mapstructure:"storage_webdav_root_path"`
	StorageWebDAVTimeout  time.Duration `mapstructure:"storage_webdav_timeout"`

	// 缓存配置
	CacheType          string        `mapstructure:"cache_type"`
	CacheMaxCostMB     int64         `mapstructure:"cache_max_cost_mb"`
	CachePhotoTTL      time.Duration `mapstructure:"cache_photo_ttl"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`

	// 限流配置
	RateLimitApiRPS     float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst   int           `mapstructure:"rate_limit_api_burst"`
	RateLimitMediaRPS   float64       `mapstructure:"rate_limit_media_rps"`
	RateLimitMediaBurst int           `mapstructure:"rate_limit_media_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`
	MaxConcurrency      int64         `mapstructure:"max_concurrency"`

	// 上传与媒体配置
	UploadMaxSizeMB int    `mapstructure:"upload_max_size_mb"`
	UploadDir       string `mapstructure:"upload_dir"`
	MediaURLPrefix  string `mapstructure:"media_url_prefix"`

	// 实时推送配置
	BroadcastBufferSize int           `mapstructure:"broadcast_buffer_size"`
	WSPingInterval      time.Duration `mapstructure:"ws_ping_interval"`
	WSWriteTimeout      time.Duration `mapstructure:"ws_write_timeout"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		loadConfig()
	})
}

func Get() *Config {
	return &globalConfig
}

// loadConfig Core configuration loading
func loadConfig() {
	setDefaults()

	configFile := viper.GetString("config_file_path")
	if configFile == "" {
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")
	} else {
		viper.SetConfigFile(configFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Info: config file not found, using defaults and environment variables")
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", viper.ConfigFileUsed())
	}

	viper.AutomaticEnv()
	for _, key := range viper.AllKeys() {
		_ = viper.BindEnv(key)
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
		os.Exit(1)
	}

	globalConfig.normalize()
}

// setDefaults 设置默认值
func setDefaults() {
	// 服务器配置默认值
	viper.SetDefault("server_host", "127.0.0.1")
	viper.SetDefault("server_port", 8000)
	viper.SetDefault("server_domain", "")
	viper.SetDefault("server_read_timeout", "15s")
	viper.SetDefault("server_write_timeout", "30s")
	viper.SetDefault("server_idle_timeout", "120s")
	viper.SetDefault("cors_allow_origins", []string{"*"})
	viper.SetDefault("log_level", "info")

	// 数据库配置默认值
	viper.SetDefault("db_type", "sqlite")
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_username", "postgres")
	viper.SetDefault("db_password", "")
	viper.SetDefault("db_name", "photo-relay")
	viper.SetDefault("db_file_path", "")
	viper.SetDefault("db_max_open_conns", 20)
	viper.SetDefault("db_max_idle_conns", 5)
	viper.SetDefault("db_conn_max_lifetime", 3600)

	// 存储配置默认值
	viper.SetDefault("storage_type", "local")
	viper.SetDefault("storage_local_path", "")
	viper.SetDefault("storage_minio_bucket_name", "photo-relay")
	viper.SetDefault("storage_minio_use_ssl", false)
	viper.SetDefault("storage_webdav_timeout", "30s")

	// 缓存配置默认值
	viper.SetDefault("cache_type", "memory")
	viper.SetDefault("cache_max_cost_mb", 16)
	viper.SetDefault("cache_photo_ttl", "1h")
	viper.SetDefault("cache_redis_addr", "localhost:6379")
	viper.SetDefault("cache_redis_password", "")
	viper.SetDefault("cache_redis_db", 0)

	// 限流配置默认值
	viper.SetDefault("rate_limit_api_rps", 30.0)
	viper.SetDefault("rate_limit_api_burst", 60)
	viper.SetDefault("rate_limit_media_rps", 100.0)
	viper.SetDefault("rate_limit_media_burst", 200)
	viper.SetDefault("rate_limit_expire_time", "10m")
	viper.SetDefault("max_concurrency", 100)

	// 上传与媒体配置默认值
	viper.SetDefault("upload_max_size_mb", 50)
	viper.SetDefault("upload_dir", "photos")
	viper.SetDefault("media_url_prefix", "/media/")

	// 实时推送配置默认值
	viper.SetDefault("broadcast_buffer_size", 16)
	viper.SetDefault("ws_ping_interval", "30s")
	viper.SetDefault("ws_write_timeout", "10s")
}

// normalize 修正不合法或缺省的配置项
func (c *Config) normalize() {
	c.UploadDir = strings.Trim(c.UploadDir, "/")
	if c.UploadDir == "" {
		c.UploadDir = "photos"
	}
	if !strings.HasPrefix(c.MediaURLPrefix, "/") {
		c.MediaURLPrefix = "/" + c.MediaURLPrefix
	}
	if !strings.HasSuffix(c.MediaURLPrefix, "/") {
		c.MediaURLPrefix += "/"
	}
	if c.BroadcastBufferSize <= 0 {
		c.BroadcastBufferSize = 16
	}
	if c.UploadMaxSizeMB <= 0 {
		c.UploadMaxSizeMB = 50
	}
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8000
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回配置的外部访问地址，未配置时返回空字符串，由请求推导
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.ServerDomain, "/")
}

// MediaRoute 返回 gin 路由使用的媒体路径前缀（不含结尾斜杠）
func (c *Config) MediaRoute() string {
	return strings.TrimSuffix(c.MediaURLPrefix, "/")
}
