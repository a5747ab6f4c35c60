package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if cfg.Container != DefaultContainer {
		t.Errorf("Container = %q, want %q", cfg.Container, DefaultContainer)
	}
	if cfg.Tail != DefaultTail {
		t.Errorf("Tail = %d, want %d", cfg.Tail, DefaultTail)
	}
	if got := cfg.CacheTTLDuration(); got != 2*time.Second {
		t.Errorf("CacheTTLDuration() = %v, want 2s", got)
	}
	if got := cfg.PeerStalenessDuration(); got != 90*time.Second {
		t.Errorf("PeerStalenessDuration() = %v, want 90s", got)
	}
	if cfg.ListenAddr() != "0.0.0.0:8080" {
		t.Errorf("ListenAddr() = %q", cfg.ListenAddr())
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
container: my-node
tail: 200
port: 9090
metrics:
  enabled: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Container != "my-node" {
		t.Errorf("Container = %q, want my-node", cfg.Container)
	}
	if cfg.Tail != 200 {
		t.Errorf("Tail = %d, want 200", cfg.Tail)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want default applied", cfg.Metrics.Path)
	}
	// Defaults fill unspecified fields.
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want default", cfg.LogLevel)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"container": "json-node", "logFormat": "json"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Container != "json-node" || cfg.LogFormat != "json" {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("BLOCKWATCH_CONTAINER", "env-node")
	path := writeConfig(t, "config.yaml", "container: ${BLOCKWATCH_CONTAINER}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Container != "env-node" {
		t.Errorf("Container = %q, want env-node", cfg.Container)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.Container != DefaultContainer {
		t.Errorf("Container = %q, want default", cfg.Container)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"negative tail", func(c *Config) { c.Tail = -1 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"bad cache ttl", func(c *Config) { c.CacheTTL = "soon" }, true},
		{"bad staleness", func(c *Config) { c.PeerStaleness = "90" }, true},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"zero error threshold rejected", func(c *Config) { c.ErrorThreshold = -1 }, true},
		{"utc timezone", func(c *Config) { c.Timezone = "UTC" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitListenAddr(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{addr: "0.0.0.0:8080", wantHost: "0.0.0.0", wantPort: 8080},
		{addr: ":9090", wantHost: "", wantPort: 9090},
		{addr: "localhost:80", wantHost: "localhost", wantPort: 80},
		{addr: "8080", wantErr: true},
		{addr: "host:notaport", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, port, err := SplitListenAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitListenAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("SplitListenAddr(%q) = (%q, %d), want (%q, %d)", tt.addr, host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}
