package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"voxgrass/internal/compute"
	"voxgrass/internal/compute/glcompute"
	"voxgrass/internal/compute/software"
	"voxgrass/internal/config"
)

func osArgs() []string { return os.Args[1:] }

// setupLogger applies level and format, and tees output to a rotating file
// when one is configured.
func setupLogger(log *logrus.Logger, cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.File != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}))
	}
	return nil
}

func newDevice(cfg config.ComputeConfig, log logrus.FieldLogger) (compute.Device, error) {
	switch cfg.Backend {
	case software.Name:
		return software.New(software.Options{Workers: cfg.Workers, Logger: log}), nil
	case glcompute.Name:
		d, err := glcompute.New(log)
		if err != nil {
			return nil, fmt.Errorf("opengl backend: %w", err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown compute backend %q", cfg.Backend)
}
