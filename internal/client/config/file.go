package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/taxbox/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the DTO for JSON and YAML config files. Pointers tell an
// absent key from a zero value.
type fileConfig struct {
	ServerEndpointAddr   *string         `json:"server_address" yaml:"server_address"`
	Transport            *string         `json:"transport" yaml:"transport"`
	DatabasePath         *string         `json:"database" yaml:"database"`
	DownloadDir          *string         `json:"download_dir" yaml:"download_dir"`
	RequestTimeout       *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	RequestsPerSecond    *float64        `json:"rate_limit" yaml:"rate_limit"`
	RequestBurst         *int            `json:"rate_burst" yaml:"rate_burst"`
	BreakerFailures      *uint32         `json:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout       *timex.Duration `json:"breaker_timeout" yaml:"breaker_timeout"`
	OnlineCheckInterval  *timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	NotificationLifetime *timex.Duration `json:"notification_lifetime" yaml:"notification_lifetime"`
	NotificationLimit    *int            `json:"notification_limit" yaml:"notification_limit"`
	UploadResetDelay     *timex.Duration `json:"upload_reset_delay" yaml:"upload_reset_delay"`
	LogLevel             *string         `json:"log_level" yaml:"log_level"`
	LogFormat            *string         `json:"log_format" yaml:"log_format"`
	S3                   *fileS3         `json:"s3" yaml:"s3"`
}

type fileS3 struct {
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

func parseFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setIf(&cfg.ServerEndpointAddr, fc.ServerEndpointAddr)
	setIf(&cfg.Transport, fc.Transport)
	setIf(&cfg.DatabasePath, fc.DatabasePath)
	setIf(&cfg.DownloadDir, fc.DownloadDir)
	setIf(&cfg.RequestsPerSecond, fc.RequestsPerSecond)
	setIf(&cfg.RequestBurst, fc.RequestBurst)
	setIf(&cfg.BreakerFailures, fc.BreakerFailures)
	setIf(&cfg.NotificationLimit, fc.NotificationLimit)
	setIf(&cfg.LogLevel, fc.LogLevel)
	setIf(&cfg.LogFormat, fc.LogFormat)

	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.BreakerTimeout != nil {
		cfg.BreakerTimeout = fc.BreakerTimeout.Duration
	}
	if fc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.NotificationLifetime != nil {
		cfg.NotificationLifetime = fc.NotificationLifetime.Duration
	}
	if fc.UploadResetDelay != nil {
		cfg.UploadResetDelay = fc.UploadResetDelay.Duration
	}

	if fc.S3 != nil {
		cfg.S3.Bucket = fc.S3.Bucket
		cfg.S3.Region = fc.S3.Region
		cfg.S3.Endpoint = fc.S3.Endpoint
		cfg.S3.Prefix = fc.S3.Prefix
		cfg.S3.AccessKey = fc.S3.AccessKey
		cfg.S3.SecretKey = fc.S3.SecretKey
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
