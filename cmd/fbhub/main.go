package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/pkg/config"
	"github.com/NareshPS/FBOpenDCHub/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	port := flag.Int("port", 0, "Override the public client port")
	showConfig := flag.Bool("show-config", false, "Print the effective configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flags win over file and environment
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger.SetLevel(cfg.Logging.Level)
	if cfg.Logging.Output != "stdout" && cfg.Logging.Output != "stderr" {
		f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	if *showConfig {
		dump, err := cfg.Dump()
		if err != nil {
			log.Fatalf("Failed to render configuration: %v", err)
		}
		fmt.Print(dump)
		return
	}

	fmt.Println("FBOpenDCHub - Direct Connect hub")
	logger.Info("Hub name: %s", cfg.Hub.Name)
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Hub is running on port %d. Press Ctrl+C to stop.", cfg.Server.Port)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()
		if err := <-serverDone; err != nil && err != context.Canceled {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil && err != context.Canceled {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
