package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfig marks a fatal configuration problem: the file is missing,
// unparseable or fails validation. No scoring starts after it.
var ErrConfig = errors.New("config error")

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Source     SourceConfig     `yaml:"source"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	ContactLog ContactLogConfig `yaml:"contact_log"`
	Scoring    Scoring          `yaml:",inline"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for the listener.
func (c ServerConfig) Addr() string {
	return c.GetHost() + ":" + strconv.Itoa(c.Port)
}

// LogConfig holds logger settings
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// SourceConfig selects where order rows come from.
type SourceConfig struct {
	Type       string `yaml:"type"` // "file", "sql" or "s3"
	Path       string `yaml:"path"`
	Sheet      string `yaml:"sheet"`
	Driver     string `yaml:"driver"` // "postgres", "mysql" or "snowflake"
	DSN        string `yaml:"dsn"`
	Query      string `yaml:"query"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Key      string `yaml:"s3_key"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"`
}

// StorageConfig holds storage configuration for run outputs
type StorageConfig struct {
	Type          string `yaml:"type"`
	LocalPath     string `yaml:"local_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Prefix      string `yaml:"s3_prefix"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// RedisConfig holds the meta cache and run lock settings
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	MetaTTLHours   int    `yaml:"meta_ttl_hours"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// MetaTTL returns how long cached meta entries live.
func (c RedisConfig) MetaTTL() time.Duration {
	return time.Duration(c.MetaTTLHours) * time.Hour
}

// LockTTL returns the run lock lease.
func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// ContactLogConfig selects the optional contact log.
type ContactLogConfig struct {
	Type           string `yaml:"type"` // "", "file" or "bitable"
	Path           string `yaml:"path"`
	BaseURL        string `yaml:"base_url"`
	AppToken       string `yaml:"app_token"`
	TableID        string `yaml:"table_id"`
	AccessToken    string `yaml:"access_token"`
	PageSize       int    `yaml:"page_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c ContactLogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file. JSON files are accepted
// since JSON is valid YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfig, path, err)
	}

	cfg := Config{Scoring: DefaultScoring()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrConfig, path, err)
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = "file"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./output"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.Source.AWSRegion == "" {
		cfg.Source.AWSRegion = cfg.Storage.AWSRegion
	}
	if cfg.Redis.MetaTTLHours == 0 {
		cfg.Redis.MetaTTLHours = 48
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 300
	}
	if cfg.ContactLog.BaseURL == "" {
		cfg.ContactLog.BaseURL = "https://open.feishu.cn"
	}
	if cfg.ContactLog.PageSize == 0 {
		cfg.ContactLog.PageSize = 500
	}
	if cfg.ContactLog.TimeoutSeconds == 0 {
		cfg.ContactLog.TimeoutSeconds = 30
	}

	cfg.Scoring.Normalize()
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so tokens can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ALERTS_SOURCE_DSN"); v != "" {
		cfg.Source.DSN = v
	}
	if v := os.Getenv("ALERTS_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("ALERTS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := firstEnv("FEISHU_APP_TOKEN", "FEISHU_CONTACT_APP_TOKEN"); v != "" {
		cfg.ContactLog.AppToken = v
	}
	if v := firstEnv("FEISHU_TABLE_ID", "FEISHU_CONTACT_TABLE_ID"); v != "" {
		cfg.ContactLog.TableID = v
	}
	if v := firstEnv("FEISHU_USER_ACCESS_TOKEN", "FEISHU_TENANT_ACCESS_TOKEN"); v != "" {
		cfg.ContactLog.AccessToken = v
	}

	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
