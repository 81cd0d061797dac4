package app

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"emailanalyser/config"
)

func TestNewWithoutBackends(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.OutputFile = filepath.Join(t.TempDir(), "out.csv")
	cfg.Analysis.Workers = 1

	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.DB != nil || a.Redis != nil || a.Results != nil {
		t.Error("disabled backends should stay nil")
	}
	if a.Pipeline == nil || a.Analyzer == nil {
		t.Fatal("pipeline not built")
	}
	if err := a.Ready(context.Background()); err != nil {
		t.Errorf("Ready without db = %v", err)
	}

	results, err := a.Pipeline.Results(context.Background(), 0)
	if err != nil || len(results) != 0 {
		t.Errorf("results = %v, err = %v", results, err)
	}
}

func TestNewDropsUnreachableRedis(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.OutputFile = filepath.Join(t.TempDir(), "out.csv")
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Redis != nil {
		t.Error("a failed ping should leave Redis nil so callers use their local paths")
	}
}
