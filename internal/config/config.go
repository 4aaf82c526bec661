// Package config loads patentalloy settings from an optional YAML file and
// PATENTALLOY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "PATENTALLOY"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Model     ModelConfig     `mapstructure:"model"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	PDF       PDFConfig       `mapstructure:"pdf"`
	Pathstore PathstoreConfig `mapstructure:"pathstore"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	APIKey         string   `mapstructure:"api_key"` // Bearer key for /api routes; empty disables auth.
	CORSOrigins    []string `mapstructure:"cors_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

type ModelConfig struct {
	Path        string        `mapstructure:"path"` // Empty selects the bundled default.
	ServerBin   string        `mapstructure:"server_bin"`
	Threads     int           `mapstructure:"threads"`
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
}

type ExtractConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
	Overlap   int `mapstructure:"overlap"`
}

// PipelineConfig sizes the async job queue. Each job loads its own model, so
// one worker is the sensible default on a single GPU.
type PipelineConfig struct {
	Workers  int           `mapstructure:"workers"`
	MaxQueue int           `mapstructure:"max_queue"`
	JobTTL   time.Duration `mapstructure:"job_ttl"`
}

type PDFConfig struct {
	FallbackPdftotext bool `mapstructure:"fallback_pdftotext"`
}

// PathstoreConfig enables publishing results when URL is set.
type PathstoreConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

type WatchConfig struct {
	Inbox       string `mapstructure:"inbox"`
	Outbox      string `mapstructure:"outbox"`
	Concurrency int    `mapstructure:"concurrency"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.cors_origins", []string{"http://localhost:4200"})
	v.SetDefault("server.max_upload_bytes", int64(50<<20))

	v.SetDefault("model.path", "")
	v.SetDefault("model.server_bin", "llama-server")
	v.SetDefault("model.threads", runtime.NumCPU())
	v.SetDefault("model.load_timeout", 2*time.Minute)

	v.SetDefault("extract.chunk_size", 2000)
	v.SetDefault("extract.overlap", 0)

	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.max_queue", 20)
	v.SetDefault("pipeline.job_ttl", time.Hour)

	v.SetDefault("pdf.fallback_pdftotext", true)

	v.SetDefault("pathstore.url", "")
	v.SetDefault("pathstore.api_key", "")

	v.SetDefault("watch.inbox", "")
	v.SetDefault("watch.outbox", "")
	v.SetDefault("watch.concurrency", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configPath when non-empty, applies environment overrides and
// defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if c.Model.Threads <= 0 {
		errs = append(errs, errors.New("model.threads must be positive"))
	}
	if c.Model.LoadTimeout <= 0 {
		errs = append(errs, errors.New("model.load_timeout must be positive"))
	}
	if c.Extract.ChunkSize <= 0 {
		errs = append(errs, errors.New("extract.chunk_size must be positive"))
	}
	if c.Extract.Overlap < 0 || c.Extract.Overlap >= c.Extract.ChunkSize {
		errs = append(errs, fmt.Errorf("extract.overlap must be in [0, %d)", c.Extract.ChunkSize))
	}
	if c.Pipeline.Workers <= 0 {
		errs = append(errs, errors.New("pipeline.workers must be positive"))
	}
	if c.Pipeline.MaxQueue <= 0 {
		errs = append(errs, errors.New("pipeline.max_queue must be positive"))
	}
	if c.Pipeline.JobTTL <= 0 {
		errs = append(errs, errors.New("pipeline.job_ttl must be positive"))
	}
	if c.Watch.Concurrency <= 0 {
		errs = append(errs, errors.New("watch.concurrency must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}
