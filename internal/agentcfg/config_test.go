package agentcfg

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
agent:
  name: researcher
options:
  temperature: 0.7
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.Name != "researcher" {
		t.Fatalf("expected name override to survive merge, got %q", cfg.Agent.Name)
	}
	if cfg.Agent.MaxIterations != 10 {
		t.Fatalf("expected default max_iterations=10, got %d", cfg.Agent.MaxIterations)
	}
	if !cfg.Agent.TracingEnabled() {
		t.Fatal("expected tracing enabled by default")
	}
	if cfg.Tracing.Kind != "console" {
		t.Fatalf("expected default tracing kind console, got %q", cfg.Tracing.Kind)
	}
	if cfg.Registry.ToolTimeout.Seconds() != 30 {
		t.Fatalf("expected default tool_timeout=30s, got %v", cfg.Registry.ToolTimeout)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_OTEL_ENDPOINT", "collector:4317")
	path := writeTempConfig(t, `
tracing:
  kind: otel
  otel:
    endpoint: "${TEST_OTEL_ENDPOINT}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tracing.OTel.Endpoint != "collector:4317" {
		t.Fatalf("expected env expansion, got %q", cfg.Tracing.OTel.Endpoint)
	}
}

func TestLoadRejectsInvalidTracingKind(t *testing.T) {
	path := writeTempConfig(t, `
tracing:
  kind: carrier-pigeon
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for unknown tracing.kind")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
}

func TestLoadRejectsOutOfRangeTemperature(t *testing.T) {
	path := writeTempConfig(t, `
options:
  temperature: 5
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for out-of-range temperature")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
