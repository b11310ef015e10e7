package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/proofbyoutput/proofcoach/internal/config"
	"github.com/proofbyoutput/proofcoach/internal/core"
	"github.com/proofbyoutput/proofcoach/internal/diagnose"
	"github.com/proofbyoutput/proofcoach/internal/record"
)

// BenchmarkStartupInitialization measures the cost of preparing core
// proofcoach components for an interactive session without running the
// Bubble Tea loop.
func BenchmarkStartupInitialization(b *testing.B) {
	b.ReportAllocs()

	baseTempDir := b.TempDir()
	homeDir := filepath.Join(baseTempDir, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		b.Fatalf("failed to create temp home: %v", err)
	}

	b.Setenv("HOME", homeDir)

	for i := 0; i < b.N; i++ {
		core.ResetPaths()

		cfg, err := config.Load(core.ConfigFile())
		if err != nil {
			b.Fatalf("failed to load config: %v", err)
		}

		records, err := record.NewManager(outputsDir(cfg), core.HistoryFile(), nil)
		if err != nil {
			b.Fatalf("failed to initialize record manager: %v", err)
		}
		_ = records

		_ = diagnose.New(diagnose.Options{
			Models:      cfg.Models,
			Temperature: cfg.Temperature,
			MinChars:    cfg.MinChars,
		})

		logger, err := initializeLogger(cfg)
		if err != nil {
			b.Fatalf("failed to initialize logger: %v", err)
		}
		_ = logger.Sync()
	}
}
