package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
	TLS         bool   `yaml:"tls"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BlobConfig selects the object storage backend. Driver "memory" keeps
// objects in process and is meant for dev mode.
type BlobConfig struct {
	Driver          string `yaml:"driver"`
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

type ImageConfig struct {
	MaxDimension int `yaml:"max_dimension"`
	JPEGQuality  int `yaml:"jpeg_quality"`
}

type NotifyConfig struct {
	Schedule    string            `yaml:"schedule"`
	Timeout     time.Duration     `yaml:"timeout"`
	MaxAttempts int               `yaml:"max_attempts"`
	BatchSize   int               `yaml:"batch_size"`
	Endpoints   map[string]string `yaml:"endpoints"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Server      ServerConfig   `yaml:"server"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
	Auth        AuthConfig     `yaml:"auth"`
	Redis       RedisConfig    `yaml:"redis"`
	Blob        BlobConfig     `yaml:"blob"`
	Images      ImageConfig    `yaml:"images"`
	Notify      NotifyConfig   `yaml:"notify"`
	CORS        CORSConfig     `yaml:"cors"`
}

// Load reads the YAML file at path, overlays secrets from .env / the
// process environment and fills defaults.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(buf)
	if err != nil {
		return nil, err
	}
	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()
	return cfg, nil
}

func Parse(buf []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if cfg.Mode != "dev" && cfg.Mode != "release" {
		return nil, fmt.Errorf("mode must be dev or release, got %q", cfg.Mode)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Auth.JWTSecret, "JWT_SECRET")
	set(&c.DB.Password, "DB_PASSWORD")
	set(&c.Redis.Password, "REDIS_PASSWORD")
	set(&c.Blob.AccessKeyID, "OSS_ACCESS_KEY_ID")
	set(&c.Blob.AccessKeySecret, "OSS_ACCESS_KEY_SECRET")
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8443"
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 10
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Blob.Driver == "" {
		c.Blob.Driver = "memory"
	}
	if c.Images.MaxDimension <= 0 {
		c.Images.MaxDimension = 1600
	}
	if c.Images.JPEGQuality <= 0 || c.Images.JPEGQuality > 100 {
		c.Images.JPEGQuality = 80
	}
	if c.Notify.Schedule == "" {
		c.Notify.Schedule = "@every 15s"
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = 10 * time.Second
	}
	if c.Notify.MaxAttempts <= 0 {
		c.Notify.MaxAttempts = 8
	}
	if c.Notify.BatchSize <= 0 {
		c.Notify.BatchSize = 20
	}
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"http://localhost:3000"}
	}
}

// MaxUploadBytes is the per-request multipart limit.
func (c *Config) MaxUploadBytes() int64 { return c.Server.MaxUploadMB << 20 }
