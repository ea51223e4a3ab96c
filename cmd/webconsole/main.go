package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"v8console/internal/config"
	"v8console/internal/logger"
	"v8console/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr       = flag.String("addr", "", "listen address (host:port), overrides config")
		assetDir   = flag.String("assets", "", "serve front-end files from this directory instead of the embedded ones")
		configPath = flag.String("config", config.DefaultConfigPath(), "path to config file")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error, none")
		logPath    = flag.String("log-path", "", "log file path (default: stderr)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *addr != "" {
		host, port, err := config.SplitAddr(*addr)
		if err != nil {
			return fmt.Errorf("invalid -addr: %w", err)
		}
		cfg.Host = host
		cfg.Port = port
	}
	if *assetDir != "" {
		cfg.AssetDir = *assetDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logPath != "" {
		cfg.LogPath = *logPath
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Global().Close()

	srv, err := web.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Printf("Console available at %s\n", srv.URL())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	return srv.Stop()
}
