package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/taxbox/internal/client/blobstore"
	"github.com/dmitrijs2005/taxbox/internal/common"
	"github.com/dmitrijs2005/taxbox/internal/flagx"
	"go-simpler.org/env"
)

// Config holds runtime settings for the TaxBox CLI.
type Config struct {
	ServerEndpointAddr string
	Transport          string

	DatabasePath string
	DownloadDir  string

	RequestTimeout    time.Duration
	RequestsPerSecond float64
	RequestBurst      int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration

	OnlineCheckInterval time.Duration

	NotificationLifetime time.Duration
	NotificationLimit    int
	UploadResetDelay     time.Duration

	LogLevel  string
	LogFormat string

	S3 blobstore.S3Config
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080/api"
	c.Transport = "http"
	c.DatabasePath = common.AppName + ".db"
	c.DownloadDir = "."
	c.RequestTimeout = 15 * time.Second
	c.RequestsPerSecond = 10
	c.RequestBurst = 5
	c.BreakerFailures = 5
	c.BreakerTimeout = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.NotificationLifetime = 5 * time.Second
	c.UploadResetDelay = time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	switch c.Transport {
	case "http", "grpc":
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	if c.ServerEndpointAddr == "" {
		return fmt.Errorf("config: server address is empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive")
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("config: online check interval must be positive")
	}
	if c.NotificationLimit < 0 {
		return fmt.Errorf("config: notification limit must not be negative")
	}
	return nil
}

// LoadConfig builds a Config from defaults, the environment, the optional
// config file and os.Args, in that order.
func LoadConfig() (*Config, error) {
	loadDotEnv()
	return load(os.Args[1:], env.OS)
}

func load(args []string, src env.Source) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, src); err != nil {
		return nil, err
	}
	if path := flagx.ConfigFile(args); path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
