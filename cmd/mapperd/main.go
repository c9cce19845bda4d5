// Package main is the entry point for the maze mapper daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/robomap/internal/config"
	"github.com/Faultbox/robomap/internal/logger"
	"github.com/Faultbox/robomap/internal/mapper"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if target := config.WriteConfigPath(); target != "" {
		if err := writeConfig(cfg, target); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Robomap ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := mapper.New(ctx, cfg, logger.Log)
	if err != nil {
		logger.Error("failed to start mapper", zap.Error(err))
		os.Exit(1)
	}
	defer m.Close()

	if err := m.Run(ctx); err != nil {
		logger.Error("mapper error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("mapper stopped")
}

func writeConfig(cfg *config.Config, target string) error {
	if target == "user" {
		path, err := cfg.Save()
		if err == nil {
			fmt.Println(path)
		}
		return err
	}
	return cfg.SaveTo(target)
}
