package sweepconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.WindowSizes) != 6 || len(cfg.PayloadSizes) != 6 || cfg.RunsPerPoint != 10 {
		t.Fatalf("expected the baseline grid, got %+v", cfg)
	}
}

func TestLoadOverridesGridPartially(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sweep.yaml")
	contents := "window_sizes: [4, 8]\nruns_per_point: 3\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.WindowSizes) != 2 || cfg.WindowSizes[0] != 4 {
		t.Fatalf("expected overridden window sizes, got %+v", cfg.WindowSizes)
	}
	if len(cfg.PayloadSizes) != 6 {
		t.Fatalf("expected payload sizes to fall back to the default grid, got %+v", cfg.PayloadSizes)
	}
	if cfg.RunsPerPoint != 3 {
		t.Fatalf("expected overridden runs_per_point, got %d", cfg.RunsPerPoint)
	}
}

func TestValidateRejectsBadGrid(t *testing.T) {
	cfg := Default()
	cfg.PayloadSizes = []int{4}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for a payload size at or below the transport header")
	}
}

func TestLoadMetricsBlockDefaultsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sweep.yaml")
	contents := "metrics:\n  enabled: true\n  listen: 127.0.0.1:9090\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != "127.0.0.1:9090" {
		t.Fatalf("expected the metrics block to load, got %+v", cfg.Metrics)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Fatalf("expected path to default to /metrics, got %q", cfg.Metrics.Path)
	}
}

func TestValidateRejectsMetricsEnabledWithoutListen(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error when metrics.enabled is true without metrics.listen")
	}
}

func TestResolveParamsOverridesOnlySetFields(t *testing.T) {
	cfg := Default()
	cfg.Channel.PGood = 0
	cfg.Channel.PBad = 0.01

	params := cfg.ResolveParams()
	if params.PBad != 0.01 {
		t.Fatalf("expected PBad override to apply, got %v", params.PBad)
	}
	if params.PGood != 1e-6 {
		t.Fatalf("expected PGood to fall back to the baseline default, got %v", params.PGood)
	}
}
