// Package config defines the blockwatch configuration schema and loader.
// Configuration comes from a YAML (or JSON) file with environment variable
// expansion, gets defaults applied, and is validated before use.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Package-level defaults.
const (
	DefaultListenAddress  = "0.0.0.0"
	DefaultPort           = 8080
	DefaultContainer      = "blockdag-testnet-network"
	DefaultTail           = 600
	DefaultStateFile      = ".state.json"
	DefaultDockerBinary   = "docker"
	DefaultCacheTTL       = "2s"
	DefaultPeerStaleness  = "90s"
	DefaultTimezone       = "America/New_York"
	DefaultErrorThreshold = 1
	DefaultMaxPeerItems   = 8
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultMetricsPath    = "/metrics"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"fatal": true,
}

var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Config is the top-level configuration structure.
type Config struct {
	// ListenAddress and Port are where the dashboard HTTP server binds.
	ListenAddress string `json:"listenAddress" yaml:"listenAddress"`
	Port          int    `json:"port" yaml:"port"`

	// Container is the default container name when a request names none.
	Container string `json:"container" yaml:"container"`

	// Tail is the default live-window line cap.
	Tail int `json:"tail" yaml:"tail"`

	// StateFile is the path of the durable counter record.
	StateFile string `json:"stateFile" yaml:"stateFile"`

	// DockerBinary is the container runtime CLI to invoke.
	DockerBinary string `json:"dockerBinary" yaml:"dockerBinary"`

	// CacheTTL is how long a built snapshot is served to all callers.
	CacheTTL string `json:"cacheTTL" yaml:"cacheTTL"`

	// PeerStaleness is how long a cached positive peer count may stand in
	// for a window without a peer signal.
	PeerStaleness string `json:"peerStaleness" yaml:"peerStaleness"`

	// Timezone is the display zone for the localized last-log-time.
	Timezone string `json:"timezone" yaml:"timezone"`

	// ErrorThreshold gates the health classifier's error rule; 1 disables
	// the gate so a single error keyword classifies the window as error.
	ErrorThreshold int `json:"errorThreshold" yaml:"errorThreshold"`

	// MaxPeerItems caps the peer identity list in responses.
	MaxPeerItems int `json:"maxPeerItems" yaml:"maxPeerItems"`

	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"`

	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// ApplyDefaults fills zero-valued fields with package defaults.
func (c *Config) ApplyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Container == "" {
		c.Container = DefaultContainer
	}
	if c.Tail == 0 {
		c.Tail = DefaultTail
	}
	if c.StateFile == "" {
		c.StateFile = DefaultStateFile
	}
	if c.DockerBinary == "" {
		c.DockerBinary = DefaultDockerBinary
	}
	if c.CacheTTL == "" {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.PeerStaleness == "" {
		c.PeerStaleness = DefaultPeerStaleness
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.ErrorThreshold == 0 {
		c.ErrorThreshold = DefaultErrorThreshold
	}
	if c.MaxPeerItems == 0 {
		c.MaxPeerItems = DefaultMaxPeerItems
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks field values and cross-field constraints.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Tail < 1 {
		return fmt.Errorf("tail must be positive, got %d", c.Tail)
	}
	if c.ErrorThreshold < 1 {
		return fmt.Errorf("errorThreshold must be at least 1, got %d", c.ErrorThreshold)
	}
	if c.MaxPeerItems < 1 {
		return fmt.Errorf("maxPeerItems must be positive, got %d", c.MaxPeerItems)
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cacheTTL %q: %w", c.CacheTTL, err)
	}
	if _, err := time.ParseDuration(c.PeerStaleness); err != nil {
		return fmt.Errorf("invalid peerStaleness %q: %w", c.PeerStaleness, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// CacheTTLDuration returns the parsed cache TTL. Validate must have passed.
func (c *Config) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

// PeerStalenessDuration returns the parsed peer staleness window.
func (c *Config) PeerStalenessDuration() time.Duration {
	d, _ := time.ParseDuration(c.PeerStaleness)
	return d
}

// Location returns the parsed display time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ListenAddr returns the host:port bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.Port)
}

// SplitListenAddr parses a host:port bind address into its parts. The host
// may be empty ("all interfaces").
func SplitListenAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}

// Load reads a configuration file (YAML or JSON by extension), expands
// environment variables in the raw bytes, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Expand env vars before parsing so they work in non-string fields.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads the file at path, or returns the default configuration
// when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default()
	}
	return Load(path)
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	var cfg Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("default config validation failed: %w", err)
	}
	return &cfg, nil
}
