// Package config reads the gateway's static configuration from flags and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

const (
	AppName    = "SkinOAI"
	AppVersion = "1.0.0"

	// DefaultMaxBodyBytes must stay equal to the max-body-bytes default tag.
	DefaultMaxBodyBytes = 10 << 20
)

// Config holds every setting the gateway reads at startup.
type Config struct {
	BackendURLs     []string      `long:"backend-url" env:"SKINOAI_BACKEND_URLS" env-delim:"," default:"http://192.168.0.140:5000" default:"http://localhost:5000" default:"http://127.0.0.1:5000" description:"backend base URL, tried in the order given"`
	PredictPath     string        `long:"predict-path" env:"SKINOAI_PREDICT_PATH" default:"/predict" description:"path suffix of the predict endpoint"`
	PingPath        string        `long:"ping-path" env:"SKINOAI_PING_PATH" default:"/ping" description:"path suffix of the health probe"`
	Timeout         time.Duration `long:"timeout" env:"SKINOAI_TIMEOUT" default:"30s" description:"per-request timeout against a backend"`
	Listen          string        `long:"listen" env:"SKINOAI_LISTEN" default:":8080" description:"address the gateway listens on"`
	LogLevel        string        `long:"log-level" env:"SKINOAI_LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	ShutdownTimeout time.Duration `long:"shutdown-timeout" env:"SKINOAI_SHUTDOWN_TIMEOUT" default:"15s"`
	MaxBodyBytes    int64         `long:"max-body-bytes" env:"SKINOAI_MAX_BODY_BYTES" default:"10485760" description:"largest accepted analyze request body"`
	AllowedOrigins  []string      `long:"allowed-origin" env:"SKINOAI_ALLOWED_ORIGINS" env-delim:"," default:"*"`
}

// Load parses args (without the program name) on top of environment defaults.
func Load(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	urls := make([]string, 0, len(c.BackendURLs))
	for _, raw := range c.BackendURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid backend url %q: %w", raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid backend url %q: scheme must be http or https", raw)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid backend url %q: missing host", raw)
		}
		urls = append(urls, raw)
	}
	if len(urls) == 0 {
		return errors.New("at least one backend url is required")
	}
	c.BackendURLs = urls

	if !strings.HasPrefix(c.PredictPath, "/") || !strings.HasPrefix(c.PingPath, "/") {
		return errors.New("endpoint paths must start with /")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}
	return nil
}
