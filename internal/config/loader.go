package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".seggy.yaml"

// DefaultEnvFile is the dotenv file loaded from the current directory.
const DefaultEnvFile = ".env"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .seggy.yaml configuration file.
// Every section is optional; absent values keep their defaults.
type File struct {
	Backends []BackendConfig `yaml:"backends,omitempty"`
	Tiers    TiersFile       `yaml:"tiers,omitempty"`
	Gate     *GateConfig     `yaml:"gate,omitempty"`
	Limits   LimitsFile      `yaml:"limits,omitempty"`
	Server   ServerFile      `yaml:"server,omitempty"`
	History  HistoryFile     `yaml:"history,omitempty"`
	Network  NetworkFile     `yaml:"network,omitempty"`
	Log      LogFile         `yaml:"log,omitempty"`
}

// TiersFile lists backend names per generation tier.
type TiersFile struct {
	Batch     []string `yaml:"batch,omitempty"`
	Synthesis []string `yaml:"synthesis,omitempty"`
}

// LimitsFile holds batching, extraction and token limits.
type LimitsFile struct {
	BatchSize             int `yaml:"batch_size,omitempty"`
	Concurrency           int `yaml:"concurrency,omitempty"`
	MaxPagesPerDocument   int `yaml:"max_pages_per_document,omitempty"`
	MaxExtractBytes       int `yaml:"max_extract_bytes,omitempty"`
	MaxContentPerFile     int `yaml:"max_content_per_file,omitempty"`
	BatchMaxTokens        int `yaml:"batch_max_tokens,omitempty"`
	SynthesisMaxTokens    int `yaml:"synthesis_max_tokens,omitempty"`
	SynthesisContentLimit int `yaml:"synthesis_content_limit,omitempty"`
}

// ServerFile holds HTTP server settings.
type ServerFile struct {
	Port           int           `yaml:"port,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes,omitempty"`
}

// HistoryFile holds run-history settings.
type HistoryFile struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// NetworkFile holds outbound HTTP settings.
type NetworkFile struct {
	Proxy     string `yaml:"proxy,omitempty"`
	UserAgent string `yaml:"user_agent,omitempty"`
	Referer   string `yaml:"referer,omitempty"`
	Title     string `yaml:"title,omitempty"`
}

// LogFile holds logging settings.
type LogFile struct {
	Format string `yaml:"format,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .seggy.yaml in the current directory
// 3. Look for .seggy.yaml in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply overlays the non-zero values of the file onto c.
func (cf *File) Apply(c *Config) {
	if len(cf.Backends) > 0 {
		c.Backends = append([]BackendConfig(nil), cf.Backends...)
	}
	if len(cf.Tiers.Batch) > 0 {
		c.BatchTier = append([]string(nil), cf.Tiers.Batch...)
	}
	if len(cf.Tiers.Synthesis) > 0 {
		c.SynthesisTier = append([]string(nil), cf.Tiers.Synthesis...)
	}
	if cf.Gate != nil {
		c.Gate = *cf.Gate
	}

	setInt(&c.BatchSize, cf.Limits.BatchSize)
	setInt(&c.Concurrency, cf.Limits.Concurrency)
	setInt(&c.MaxPagesPerDocument, cf.Limits.MaxPagesPerDocument)
	setInt(&c.MaxExtractBytes, cf.Limits.MaxExtractBytes)
	setInt(&c.MaxContentPerFile, cf.Limits.MaxContentPerFile)
	setInt(&c.BatchMaxTokens, cf.Limits.BatchMaxTokens)
	setInt(&c.SynthesisMaxTokens, cf.Limits.SynthesisMaxTokens)
	setInt(&c.SynthesisContentLimit, cf.Limits.SynthesisContentLimit)

	setInt(&c.Port, cf.Server.Port)
	if cf.Server.RequestTimeout != 0 {
		c.RequestTimeout = cf.Server.RequestTimeout
	}
	if cf.Server.MaxUploadBytes != 0 {
		c.MaxUploadBytes = cf.Server.MaxUploadBytes
	}

	if cf.History.Enabled {
		c.SaveHistory = true
	}
	setString(&c.DBDir, cf.History.Dir)

	setString(&c.ProxyAddress, cf.Network.Proxy)
	setString(&c.UserAgent, cf.Network.UserAgent)
	setString(&c.Referer, cf.Network.Referer)
	setString(&c.Title, cf.Network.Title)
	setString(&c.LogFormat, cf.Log.Format)
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Load builds a Config from defaults, the dotenv file, the config file and
// the environment, in that order of increasing precedence. A missing config
// file is an error only when configPath was given explicitly.
func Load(configPath string) (*Config, error) {
	// godotenv.Load never overrides variables that are already set.
	if _, err := os.Stat(DefaultEnvFile); err == nil {
		if err := godotenv.Load(DefaultEnvFile); err != nil {
			return nil, err
		}
	}

	c := NewConfig()
	c.ConfigFilePath = configPath

	path := FindConfigFile(configPath)
	switch {
	case path != "":
		cf, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cf.Apply(c)
		c.ConfigFilePath = path
	case configPath != "":
		return nil, ErrConfigNotFound
	}

	if err := ApplyEnv(c); err != nil {
		return nil, err
	}
	return c, nil
}
