package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// envConfig maps TAXBOX_* variables. It is pre-filled from the current
// Config so unset variables keep earlier values.
type envConfig struct {
	ServerEndpointAddr   string        `env:"TAXBOX_SERVER_ADDRESS"`
	Transport            string        `env:"TAXBOX_TRANSPORT"`
	DatabasePath         string        `env:"TAXBOX_DATABASE"`
	DownloadDir          string        `env:"TAXBOX_DOWNLOAD_DIR"`
	RequestTimeout       time.Duration `env:"TAXBOX_REQUEST_TIMEOUT"`
	RequestsPerSecond    float64       `env:"TAXBOX_RATE_LIMIT"`
	RequestBurst         int           `env:"TAXBOX_RATE_BURST"`
	OnlineCheckInterval  time.Duration `env:"TAXBOX_ONLINE_CHECK_INTERVAL"`
	NotificationLifetime time.Duration `env:"TAXBOX_NOTIFICATION_LIFETIME"`
	NotificationLimit    int           `env:"TAXBOX_NOTIFICATION_LIMIT"`
	LogLevel             string        `env:"TAXBOX_LOG_LEVEL"`
	LogFormat            string        `env:"TAXBOX_LOG_FORMAT"`

	S3Bucket    string `env:"TAXBOX_S3_BUCKET"`
	S3Region    string `env:"TAXBOX_S3_REGION"`
	S3Endpoint  string `env:"TAXBOX_S3_ENDPOINT"`
	S3Prefix    string `env:"TAXBOX_S3_PREFIX"`
	S3AccessKey string `env:"TAXBOX_S3_ACCESS_KEY"`
	S3SecretKey string `env:"TAXBOX_S3_SECRET_KEY"`
}

// loadDotEnv reads .env if present. Variables already set win.
func loadDotEnv() {
	_ = godotenv.Load()
}

func parseEnv(cfg *Config, src env.Source) error {
	ec := envConfig{
		ServerEndpointAddr:   cfg.ServerEndpointAddr,
		Transport:            cfg.Transport,
		DatabasePath:         cfg.DatabasePath,
		DownloadDir:          cfg.DownloadDir,
		RequestTimeout:       cfg.RequestTimeout,
		RequestsPerSecond:    cfg.RequestsPerSecond,
		RequestBurst:         cfg.RequestBurst,
		OnlineCheckInterval:  cfg.OnlineCheckInterval,
		NotificationLifetime: cfg.NotificationLifetime,
		NotificationLimit:    cfg.NotificationLimit,
		LogLevel:             cfg.LogLevel,
		LogFormat:            cfg.LogFormat,
		S3Bucket:             cfg.S3.Bucket,
		S3Region:             cfg.S3.Region,
		S3Endpoint:           cfg.S3.Endpoint,
		S3Prefix:             cfg.S3.Prefix,
		S3AccessKey:          cfg.S3.AccessKey,
		S3SecretKey:          cfg.S3.SecretKey,
	}

	if err := env.Load(&ec, &env.Options{Source: src}); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}

	cfg.ServerEndpointAddr = ec.ServerEndpointAddr
	cfg.Transport = ec.Transport
	cfg.DatabasePath = ec.DatabasePath
	cfg.DownloadDir = ec.DownloadDir
	cfg.RequestTimeout = ec.RequestTimeout
	cfg.RequestsPerSecond = ec.RequestsPerSecond
	cfg.RequestBurst = ec.RequestBurst
	cfg.OnlineCheckInterval = ec.OnlineCheckInterval
	cfg.NotificationLifetime = ec.NotificationLifetime
	cfg.NotificationLimit = ec.NotificationLimit
	cfg.LogLevel = ec.LogLevel
	cfg.LogFormat = ec.LogFormat
	cfg.S3.Bucket = ec.S3Bucket
	cfg.S3.Region = ec.S3Region
	cfg.S3.Endpoint = ec.S3Endpoint
	cfg.S3.Prefix = ec.S3Prefix
	cfg.S3.AccessKey = ec.S3AccessKey
	cfg.S3.SecretKey = ec.S3SecretKey
	return nil
}
