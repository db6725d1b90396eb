package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper" // 导入 Viper
)

// Config 结构体包含所有应用的配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"` // `mapstructure` 标签用于Viper绑定结构体
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	AliyunOSS AliyunOSSConfig `mapstructure:"aliyun_oss"`
	S3        S3Config        `mapstructure:"s3"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	Share     ShareConfig     `mapstructure:"share"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`            // gin 运行模式: debug / release / test
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // 单个请求的上下文超时
	MaxUploadSize  int64         `mapstructure:"max_upload_size"` // 上传文件大小上限(字节)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql / postgres / sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

type AliyunOSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"` // 例如: oss-cn-hangzhou.aliyuncs.com
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// S3Config AWS S3 或兼容 S3 协议的对象存储
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // 为空时使用 AWS 默认 endpoint
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// RabbitMQConfig RabbitMQ配置
type RabbitMQConfig struct {
	URL         string `mapstructure:"url"`
	DeleteQueue string `mapstructure:"delete_queue"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
	Issuer    string        `mapstructure:"issuer"`
}

type StorageConfig struct {
	Type       string `mapstructure:"type"` // minio / aliyun_oss / s3
	BucketName string `mapstructure:"bucket_name"`
}

// zap日志配置
type LogConfig struct {
	OutputPath string `mapstructure:"output_path"`
	ErrorPath  string `mapstructure:"error_path"`
	Level      string `mapstructure:"level"`
}

// ShareConfig 分享链接与下载授权相关配置
type ShareConfig struct {
	SignedURLTTL    time.Duration   `mapstructure:"signed_url_ttl"`
	TokenMaxRetries int             `mapstructure:"token_max_retries"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	Burst           BurstConfig     `mapstructure:"burst"`
}

// RateLimitConfig 基于下载尝试流水的滑动窗口限流
type RateLimitConfig struct {
	IPMaxAttempts    int64         `mapstructure:"ip_max_attempts"`
	TokenMaxFailures int64         `mapstructure:"token_max_failures"`
	Window           time.Duration `mapstructure:"window"`
}

// BurstConfig 进程内令牌桶，只用于削峰
type BurstConfig struct {
	FillInterval time.Duration `mapstructure:"fill_interval"`
	Capacity     int64         `mapstructure:"capacity"`
}

var AppConfig *Config // 全局应用配置实例

// SetDefaults 注册所有默认值，LoadConfig 与测试共用
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_size", int64(512<<20))
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("redis.db", 0)
	v.SetDefault("rabbitmq.delete_queue", "file_delete_queue")
	v.SetDefault("jwt.expires_in", 60*time.Minute)
	v.SetDefault("jwt.issuer", "go-sharelink")
	v.SetDefault("storage.type", "minio")
	v.SetDefault("log.output_path", "logs/app.log")
	v.SetDefault("log.error_path", "logs/error.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("share.signed_url_ttl", time.Hour)
	v.SetDefault("share.token_max_retries", 5)
	v.SetDefault("share.rate_limit.ip_max_attempts", 20)
	v.SetDefault("share.rate_limit.token_max_failures", 10)
	v.SetDefault("share.rate_limit.window", time.Hour)
	v.SetDefault("share.burst.fill_interval", 50*time.Millisecond)
	v.SetDefault("share.burst.capacity", 200)
}

// LoadConfig 加载配置
func LoadConfig() (*Config, error) {
	v := viper.GetViper()
	v.SetConfigName("config")             // 配置文件名 (不带扩展名)
	v.SetConfigType("yaml")               // 配置文件类型
	v.AddConfigPath(".")                  // 在当前目录查找配置文件
	v.AddConfigPath("./configs")          // 也可以添加其他路径，例如 ./configs/
	v.AddConfigPath("/etc/go-sharelink/") // 生产环境常见路径

	// 例如：GO_SHARELINK_DATABASE_DSN 对应 database.dsn
	v.SetEnvPrefix("GO_SHARELINK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 1. 设置默认值
	SetDefaults(v)

	// 2. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Fatal error reading config file: %s \n", err)
			return nil, err
		}
		// 配置文件未找到不是致命错误，依赖环境变量和默认值
		log.Println("Warning: config file not found, using environment variables or default values.")
	}

	// 3. 将读取到的配置绑定到结构体
	cfg, err := unmarshal(v)
	if err != nil {
		log.Printf("Fatal error unmarshaling config: %s \n", err)
		return nil, err
	}
	AppConfig = cfg

	log.Println("Configuration loaded successfully with Viper.")
	return AppConfig, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
