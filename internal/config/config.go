// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
	// FromDefaults is set when no config file was found.
	FromDefaults bool
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	APIKey         string        `yaml:"api_key"`
	APIKeyHeader   string        `yaml:"api_key_header"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type FilesConfig struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
}

type WhisperConfig struct {
	Mode          string        `yaml:"mode"` // local | remote
	Host          string        `yaml:"host"`
	BinaryPath    string        `yaml:"binary_path"`
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	ModelsDir     string        `yaml:"models_dir"`
	DefaultModel  string        `yaml:"default_model"`
	Language      string        `yaml:"language"`
	Threads       int           `yaml:"threads"`
	Timeout       time.Duration `yaml:"timeout"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
}

type OllamaConfig struct {
	URL           string        `yaml:"url"`
	DefaultModel  string        `yaml:"default_model"`
	Timeout       time.Duration `yaml:"timeout"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"` // 0 = no client-side cap
}

type AnalysisConfig struct {
	MaxChunkChars int    `yaml:"max_chunk_chars"`
	DefaultTask   string `yaml:"default_task"`
	TokenEncoding string `yaml:"token_encoding"`
}

type RecapConfig struct {
	DefaultStyle string `yaml:"default_style"`
	ExportDocx   bool   `yaml:"export_docx"`
}

type JobsConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"` // 0 = unbounded
	Retention     time.Duration `yaml:"retention"`      // 0 = keep finished jobs forever
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type WatchConfig struct {
	Dir         string        `yaml:"dir"`
	OutputDir   string        `yaml:"output_dir"`
	Model       string        `yaml:"model"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Files    FilesConfig    `yaml:"files"`
	Whisper  WhisperConfig  `yaml:"whisper"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Recap    RecapConfig    `yaml:"recap"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Watch    WatchConfig    `yaml:"watch"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	DefaultAddr          = "127.0.0.1:8765"
	DefaultMaxSizeBytes  = 1 << 30
	DefaultMaxChunkChars = 25000
)

// LoadConfig reads the YAML file at path and applies defaults and
// environment overrides. A missing file is not an error: defaults are used
// and Runtime.FromDefaults is set.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		cfg.Runtime.FromDefaults = true
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RECAP_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("RECAP_OLLAMA_URL"); v != "" {
		cfg.Ollama.URL = v
	}
	if v := os.Getenv("RECAP_WHISPER_HOST"); v != "" {
		cfg.Whisper.Host = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.APIKeyHeader == "" {
		c.Server.APIKeyHeader = "X-API-Key"
	}
	c.Server.RequestTimeout = orDuration(c.Server.RequestTimeout, 30*time.Second)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Files.MaxSizeBytes <= 0 {
		c.Files.MaxSizeBytes = DefaultMaxSizeBytes
	}

	if c.Whisper.Mode == "" {
		c.Whisper.Mode = "local"
	}
	if c.Whisper.Host == "" {
		c.Whisper.Host = "http://localhost:9000"
	}
	if c.Whisper.BinaryPath == "" {
		c.Whisper.BinaryPath = "whisper-cli"
	}
	if c.Whisper.FFmpegPath == "" {
		c.Whisper.FFmpegPath = "ffmpeg"
	}
	if c.Whisper.ModelsDir == "" {
		c.Whisper.ModelsDir = defaultModelsDir()
	}
	if c.Whisper.DefaultModel == "" {
		c.Whisper.DefaultModel = "medium"
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "en"
	}
	if c.Whisper.Threads <= 0 {
		c.Whisper.Threads = 4
	}
	c.Whisper.Timeout = orDuration(c.Whisper.Timeout, 600*time.Second)
	c.Whisper.HealthTimeout = orDuration(c.Whisper.HealthTimeout, 5*time.Second)

	if c.Ollama.URL == "" {
		c.Ollama.URL = "http://localhost:11434"
	}
	if c.Ollama.DefaultModel == "" {
		c.Ollama.DefaultModel = "gemma3n:latest"
	}
	c.Ollama.Timeout = orDuration(c.Ollama.Timeout, 600*time.Second)
	c.Ollama.HealthTimeout = orDuration(c.Ollama.HealthTimeout, 5*time.Second)

	if c.Analysis.MaxChunkChars <= 0 {
		c.Analysis.MaxChunkChars = DefaultMaxChunkChars
	}
	if c.Analysis.DefaultTask == "" {
		c.Analysis.DefaultTask = "summary"
	}
	if c.Analysis.TokenEncoding == "" {
		c.Analysis.TokenEncoding = "cl100k_base"
	}

	c.Jobs.SweepInterval = orDuration(c.Jobs.SweepInterval, 10*time.Minute)

	if c.Recap.DefaultStyle == "" {
		c.Recap.DefaultStyle = "epic"
	}

	if c.Watch.Model == "" {
		c.Watch.Model = c.Whisper.DefaultModel
	}
	c.Watch.SettleDelay = orDuration(c.Watch.SettleDelay, 500*time.Millisecond)
}

// Validate checks the invariants the binaries rely on.
func (c *Config) Validate() error {
	host, _, err := net.SplitHostPort(c.Server.Addr)
	if err != nil {
		return fmt.Errorf("server.addr: %w", err)
	}
	if !isLoopback(host) {
		return fmt.Errorf("server.addr must bind a loopback address, got %q", host)
	}
	switch c.Whisper.Mode {
	case "local", "remote":
	default:
		return fmt.Errorf("whisper.mode must be local or remote, got %q", c.Whisper.Mode)
	}
	if c.Jobs.MaxConcurrent < 0 {
		return errors.New("jobs.max_concurrent must not be negative")
	}
	if c.Jobs.Retention < 0 {
		return errors.New("jobs.retention must not be negative")
	}
	if c.Ollama.MaxConcurrent < 0 {
		return errors.New("ollama.max_concurrent must not be negative")
	}
	return nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func defaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cache", "whisper")
}
