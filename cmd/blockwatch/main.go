// Blockwatch - container log dashboard for a blockchain node
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/supporttools/blockwatch/pkg/aggregate"
	"github.com/supporttools/blockwatch/pkg/cache"
	"github.com/supporttools/blockwatch/pkg/config"
	"github.com/supporttools/blockwatch/pkg/docker"
	"github.com/supporttools/blockwatch/pkg/logger"
	"github.com/supporttools/blockwatch/pkg/metrics"
	"github.com/supporttools/blockwatch/pkg/server"
	"github.com/supporttools/blockwatch/pkg/snapshot"
	"github.com/supporttools/blockwatch/pkg/state"
)

// Build-time variables set by goreleaser or make
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Command-line flags
var (
	configPath = flag.String("config", "", "Path to configuration file (YAML or JSON)")
	listen     = flag.String("listen", "", "Override listen address (host:port)")
	container  = flag.String("container", "", "Override default container name")
	logLevel   = flag.String("log-level", "", "Override log level (debug, info, warn, error, fatal)")
	logFormat  = flag.String("log-format", "", "Override log format (json, text)")
	version    = flag.Bool("version", false, "Show version information and exit")
)

func main() {
	flag.Parse()

	if *version {
		printVersion()
		os.Exit(0)
	}

	// A .env file next to the binary feeds ${VAR} expansion in the config
	// file. Missing file is fine.
	_ = godotenv.Load()

	cfg, err := loadConfiguration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	log := logger.Get()
	log.Infof("Blockwatch %s starting", Version)
	log.Infof("Container: %s, Listen: %s, State file: %s", cfg.Container, cfg.ListenAddr(), cfg.StateFile)

	m, err := metrics.New("")
	if err != nil {
		logger.Fatalf("Failed to set up metrics: %v", err)
	}

	client := docker.NewClient(docker.NewCommandRunner(), cfg.DockerBinary, m)
	store := state.NewStore(cfg.StateFile)
	aggregator := aggregate.New(client, store, m)
	builder := snapshot.NewBuilder(client, store, m, snapshot.Options{
		PeerStaleness:  cfg.PeerStalenessDuration(),
		Location:       cfg.Location(),
		ErrorThreshold: cfg.ErrorThreshold,
		MaxPeerItems:   cfg.MaxPeerItems,
	})
	snapCache := cache.New(cfg.CacheTTLDuration(), nil)

	handler := server.NewHandler(client, aggregator, builder, snapCache, store, m, cfg.Container, cfg.Tail)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	srv := server.New(cfg.ListenAddr(), handler, m, metricsPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
	log.Info("Shutdown complete")
}

// loadConfiguration reads the config file (or defaults when none is given)
// and applies command-line overrides on top.
func loadConfiguration() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return nil, err
	}

	if *listen != "" {
		host, port, err := config.SplitListenAddr(*listen)
		if err != nil {
			return nil, fmt.Errorf("invalid -listen value: %w", err)
		}
		cfg.ListenAddress = host
		cfg.Port = port
	}
	if *container != "" {
		cfg.Container = *container
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}

	// Overrides can invalidate a previously valid config.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printVersion() {
	fmt.Printf("Blockwatch %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
