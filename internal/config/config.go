package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 主配置结构
type Config struct {
	App         App         `yaml:"app"`
	Server      Server      `yaml:"server"`
	Database    DB          `yaml:"database"`
	Cache       Cache       `yaml:"cache"`
	RateLimit   Limit       `yaml:"rate_limit"`
	Tracking    Tracking    `yaml:"tracking"`
	Aggregation Aggregation `yaml:"aggregation"`
	Grant       Grant       `yaml:"grant"`
	Metadata    Metadata    `yaml:"metadata"`
	QR          QR          `yaml:"qr"`
	Log         Log         `yaml:"log"`
}

// 应用配置
type App struct {
	Name    string `yaml:"name"`
	Mode    string `yaml:"mode"`
	Version string `yaml:"version"`
	// BaseURL 用于拼接短链接，为空时使用请求的 Host
	BaseURL string `yaml:"base_url"`
}

// 服务器配置
type Server struct {
	Port            int `yaml:"port"`
	ReadTimeout     int `yaml:"read_timeout"`
	WriteTimeout    int `yaml:"write_timeout"`
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// 数据库配置
type DB struct {
	Driver       string `yaml:"driver"` // mysql | postgres | sqlite
	DSN          string `yaml:"dsn"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	Charset      string `yaml:"charset"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// 缓存配置（Redis）
type Cache struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// LinkTTLSeconds 为 0 时不缓存解析快照
	LinkTTLSeconds int `yaml:"link_ttl_seconds"`
}

// 限流配置（固定窗口）
type Limit struct {
	Enabled       bool     `yaml:"enabled"`
	Backend       string   `yaml:"backend"` // redis | memory
	Requests      int64    `yaml:"requests"`
	WindowSeconds int64    `yaml:"window_seconds"`
	SkipPaths     []string `yaml:"skip_paths"`
}

// 点击追踪配置
type Tracking struct {
	IPSalt        string `yaml:"ip_salt"`
	QueueSize     int    `yaml:"queue_size"`
	Workers       int    `yaml:"workers"`
	CountryHeader string `yaml:"country_header"`
	CityHeader    string `yaml:"city_header"`
}

// 每日汇总任务配置
type Aggregation struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	ChunkSize     int    `yaml:"chunk_size"`
	CronSecret    string `yaml:"cron_secret"`
	LockTTL       int    `yaml:"lock_ttl_seconds"`
}

// 访问凭证配置
type Grant struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
	Secure   bool   `yaml:"secure"`
}

// 元数据抓取配置
type Metadata struct {
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	CacheTTLHours  int     `yaml:"cache_ttl_hours"`
	FetchPerSecond float64 `yaml:"fetch_per_second"`
	FetchBurst     int     `yaml:"fetch_burst"`
	UserAgent      string  `yaml:"user_agent"`
	MaxBodyBytes   int64   `yaml:"max_body_bytes"`

	// AllowPrivateNetworks 允许抓取内网地址，仅用于内网部署
	AllowPrivateNetworks bool `yaml:"allow_private_networks"`
}

// 二维码配置
type QR struct {
	LogoURL      string  `yaml:"logo_url"`
	LogoFraction float64 `yaml:"logo_fraction"`
	PNGSize      int     `yaml:"png_size"`
}

// 日志配置
type Log struct {
	Level      string `yaml:"level"`
	Encoding   string `yaml:"encoding"` // console | json
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		App:    App{Name: "shortlink-service", Mode: "development", Version: "1.0.0"},
		Server: Server{Port: 8080, ReadTimeout: 10, WriteTimeout: 10, ShutdownTimeout: 30},
		Database: DB{
			Driver: "mysql", Host: "127.0.0.1", Port: 3306, Charset: "utf8mb4",
			MaxOpenConns: 50, MaxIdleConns: 10,
		},
		Cache: Cache{Port: 6379, LinkTTLSeconds: 300},
		RateLimit: Limit{
			Enabled: true, Backend: "redis", Requests: 10, WindowSeconds: 1,
			SkipPaths: []string{"/health", "/metrics", "/swagger/", "/static/"},
		},
		Tracking: Tracking{
			IPSalt: "shlink-salt", QueueSize: 1024, Workers: 4,
			CountryHeader: "CF-IPCountry", CityHeader: "CF-IPCity",
		},
		Aggregation: Aggregation{
			Enabled: true, Schedule: "0 5 0 * * *", RetentionDays: 30, ChunkSize: 50, LockTTL: 600,
		},
		Grant: Grant{TTLHours: 24},
		Metadata: Metadata{
			TimeoutSeconds: 5, CacheTTLHours: 24, FetchPerSecond: 5, FetchBurst: 10,
			UserAgent: "Shlink-Metadata-Bot/1.0", MaxBodyBytes: 1 << 20,
		},
		QR:  QR{LogoFraction: 0.2, PNGSize: 256},
		Log: Log{Level: "info", Encoding: "console", File: "./logs/app.log", MaxSize: 10, MaxBackups: 5, MaxAge: 30},
	}
}

// 加载配置：默认值 -> yaml 文件 -> .env / 环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	// .env 可选，不存在时忽略
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("REDIS_ADDR 端口无效: %q", v)
			}
			c.Cache.Port = p
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Password = v
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		c.Aggregation.CronSecret = v
	}
	if v := os.Getenv("IP_SALT"); v != "" {
		c.Tracking.IPSalt = v
	}
	if v := os.Getenv("GRANT_SECRET"); v != "" {
		c.Grant.Secret = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.App.BaseURL = v
	}
	return nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("无效的端口: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.WindowSeconds <= 0) {
		return errors.New("限流配置无效: requests 和 window_seconds 必须大于 0")
	}
	if c.Aggregation.RetentionDays <= 0 {
		return errors.New("retention_days 必须大于 0")
	}
	if c.Aggregation.ChunkSize <= 0 {
		return errors.New("chunk_size 必须大于 0")
	}
	if c.Tracking.Workers <= 0 || c.Tracking.QueueSize <= 0 {
		return errors.New("tracking.workers 和 tracking.queue_size 必须大于 0")
	}
	if c.QR.LogoFraction <= 0 || c.QR.LogoFraction >= 1 {
		return fmt.Errorf("qr.logo_fraction 必须在 (0,1) 之间: %v", c.QR.LogoFraction)
	}
	return nil
}

// GrantTTL 访问凭证有效期
func (c *Config) GrantTTL() time.Duration {
	return time.Duration(c.Grant.TTLHours) * time.Hour
}

// Retention 原始点击保留时长
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Aggregation.RetentionDays) * 24 * time.Hour
}
