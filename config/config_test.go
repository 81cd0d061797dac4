package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != ":8501" {
		t.Errorf("expected default port :8501, got %q", cfg.Server.Port)
	}
	if cfg.Analysis.InputDirectory != "data/raw" {
		t.Errorf("unexpected input directory %q", cfg.Analysis.InputDirectory)
	}
	if len(cfg.Analysis.Languages) != 3 {
		t.Errorf("expected 3 default languages, got %v", cfg.Analysis.Languages)
	}
}

func TestLoadFileAndSecrets(t *testing.T) {
	dir := t.TempDir()
	yaml := `
analysis:
  input_directory: /mail/in
  workers: 8
db:
  enabled: true
  password: ${DB_PASS}
jwt:
  enabled: true
  secret: ${JWT_KEY}
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	secrets := "DB_PASS=s3cret\nJWT_KEY='signing-key'\n"
	if err := os.WriteFile(filepath.Join(dir, "secrets.env"), []byte(secrets), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analysis.InputDirectory != "/mail/in" {
		t.Errorf("input directory = %q", cfg.Analysis.InputDirectory)
	}
	if cfg.Analysis.Workers != 8 {
		t.Errorf("workers = %d", cfg.Analysis.Workers)
	}
	// values absent from the file keep their defaults
	if cfg.Analysis.OutputFile != "data/processed/email_analysis.csv" {
		t.Errorf("output file = %q", cfg.Analysis.OutputFile)
	}
	if cfg.DB.Password != "s3cret" {
		t.Errorf("db password = %q", cfg.DB.Password)
	}
	if cfg.JWT.Secret != "signing-key" {
		t.Errorf("jwt secret = %q", cfg.JWT.Secret)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("INPUT_DIRECTORY", "/override")
	t.Setenv("ANALYSIS_WORKERS", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != ":9000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Analysis.InputDirectory != "/override" {
		t.Errorf("input directory = %q", cfg.Analysis.InputDirectory)
	}
	if cfg.Analysis.Workers != 2 {
		t.Errorf("workers = %d", cfg.Analysis.Workers)
	}
}

func TestValidateRequiresJWTSecret(t *testing.T) {
	cfg := Default()
	cfg.JWT.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for enabled jwt without secret")
	}
}

func TestLoadLayersConfigEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("analysis:\n  workers: 2\nserver:\n  port: \":9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "production.yaml"), []byte("analysis:\n  workers: 16\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_ENV", "production")

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analysis.Workers != 16 {
		t.Errorf("workers = %d, want 16 from production.yaml", cfg.Analysis.Workers)
	}
	if cfg.Server.Port != ":9000" {
		t.Errorf("port = %q, want value kept from config.yaml", cfg.Server.Port)
	}
}
