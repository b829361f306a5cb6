package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deckhand/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[paths]
data_dir = "`+t.TempDir()+`"

[text_service]
api_key = "text-key"

[image_service]
api_key = "image-key"
`)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected config file to be found")
	}
	if cfg.ImageService.Concurrency != 5 {
		t.Fatalf("expected default concurrency 5, got %d", cfg.ImageService.Concurrency)
	}
	if cfg.TextService.Attempts != 3 {
		t.Fatalf("expected default attempts 3, got %d", cfg.TextService.Attempts)
	}
	if !strings.HasSuffix(cfg.Paths.ImagesDir, "images") {
		t.Fatalf("expected images dir derived from data dir, got %q", cfg.Paths.ImagesDir)
	}
	if cfg.Paths.APIBind == "" {
		t.Fatal("expected default api bind")
	}
}

func TestLoadRequiresAPIKeys(t *testing.T) {
	path := writeConfig(t, `
[paths]
data_dir = "`+t.TempDir()+`"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for missing api keys")
	}
}

func TestLoadReadsKeysFromEnvironment(t *testing.T) {
	t.Setenv("DECKHAND_TEXT_API_KEY", "env-text")
	t.Setenv("DECKHAND_IMAGE_API_KEY", "env-image")

	path := writeConfig(t, `
[paths]
data_dir = "`+t.TempDir()+`"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TextService.APIKey != "env-text" || cfg.ImageService.APIKey != "env-image" {
		t.Fatalf("expected keys from environment, got %q / %q", cfg.TextService.APIKey, cfg.ImageService.APIKey)
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	path := writeConfig(t, `
[paths]
data_dir = "`+t.TempDir()+`"

[text_service]
api_key = "k"

[image_service]
api_key = "k"

[logging]
format = "yaml"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[image_service]") {
		t.Fatal("sample config missing image_service section")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ImagesDir = filepath.Join(base, "images")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ImagesDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %q", dir)
		}
	}
}
