package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeServerConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shopmate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeServerConfig(t, "cache:\n  driver: memory\ndurable:\n  driver: memory\n")
		stdout, _, err := runCLI(t, "", "config", "validate", "--config", path)
		if err != nil {
			t.Fatalf("config validate: %v", err)
		}
		if !strings.Contains(stdout, "Configuration is valid") {
			t.Errorf("output = %q", stdout)
		}
	})

	t.Run("secret refs noted", func(t *testing.T) {
		path := writeServerConfig(t, "durable:\n  mongo:\n    uri: ssm:/shopmate/mongo-uri\n")
		stdout, _, err := runCLI(t, "", "config", "validate", "--config", path)
		if err != nil {
			t.Fatalf("config validate: %v", err)
		}
		if !strings.Contains(stdout, "ssm: references") {
			t.Errorf("output = %q", stdout)
		}
	})

	t.Run("invalid lists every problem", func(t *testing.T) {
		path := writeServerConfig(t, "cache:\n  driver: etcd\nsession:\n  ttl: 10ms\n")
		stdout, _, err := runCLI(t, "", "config", "validate", "--config", path)
		if err == nil {
			t.Fatal("expected validation failure")
		}
		if strings.Count(stdout, "\n  - ") < 2 {
			t.Errorf("want at least two listed errors:\n%s", stdout)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, _, err := runCLI(t, "", "config", "validate", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		if err == nil {
			t.Error("expected a load error")
		}
	})
}

func TestConfig_ShowMasksSecrets(t *testing.T) {
	path := writeServerConfig(t, `cache:
  redis:
    password: hunter2hunter2
durable:
  mongo:
    uri: mongodb://app:topsecret@db:27017
`)
	stdout, _, err := runCLI(t, "", "-o", "yaml", "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(stdout, "hunter2hunter2") || strings.Contains(stdout, "topsecret") {
		t.Errorf("secrets leaked:\n%s", stdout)
	}

	var got map[string]any
	if err := yaml.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	session, _ := got["session"].(map[string]any)
	if session["ttl"] != "1h0m0s" {
		t.Errorf("session.ttl = %v", session["ttl"])
	}
}

func TestConfig_ShowTable(t *testing.T) {
	stdout, _, err := runCLI(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(stdout, "cache.redis.addr") {
		t.Errorf("table should flatten keys:\n%s", stdout)
	}
}
