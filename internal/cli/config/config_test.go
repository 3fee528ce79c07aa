package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server != "localhost:8080" {
		t.Errorf("Server = %q, want localhost:8080", cfg.Server)
	}
	if cfg.Output != "table" {
		t.Errorf("Output = %q, want table", cfg.Output)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Profiles == nil {
		t.Error("Profiles should not be nil")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if !strings.HasSuffix(path, filepath.Join(".shopmate", "cli.yaml")) {
		t.Errorf("DefaultConfigPath() = %q", path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != "localhost:8080" {
		t.Errorf("Server = %q, want default", cfg.Server)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	content := `server: shop.internal:8080
output: json
timeout: 5s
current_profile: staging
profiles:
  staging:
    server: staging.internal:8080
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output != "json" {
		t.Errorf("Output = %q, want json", cfg.Output)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if got, ok := cfg.ServerFor(""); !ok || got != "staging.internal:8080" {
		t.Errorf("ServerFor(\"\") = %q, %v", got, ok)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on invalid YAML")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cli.yaml")

	cfg := Default()
	cfg.Profiles["prod"] = Profile{Server: "https://shop.example.com"}
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, _ := loaded.ServerFor("prod"); got != "https://shop.example.com" {
		t.Errorf("ServerFor(prod) = %q", got)
	}
}

func TestServerFor(t *testing.T) {
	cfg := Default()
	cfg.Profiles["dev"] = Profile{Server: "dev:8080"}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"", "localhost:8080", true},
		{"dev", "dev:8080", true},
		{"missing", "localhost:8080", false},
	}
	for _, tt := range tests {
		got, ok := cfg.ServerFor(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ServerFor(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}
