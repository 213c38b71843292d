package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Anomaly.LowThreshold != 0.33 || cfg.Anomaly.HighThreshold != 0.66 {
		t.Errorf("default thresholds = %v/%v, want 0.33/0.66",
			cfg.Anomaly.LowThreshold, cfg.Anomaly.HighThreshold)
	}
	if cfg.Alloy.MinAddition != 0.01 || cfg.Alloy.MaxAddition != 5.0 {
		t.Errorf("default addition bounds = %v/%v, want 0.01/5.0",
			cfg.Alloy.MinAddition, cfg.Alloy.MaxAddition)
	}
	if cfg.Policy.AlloyGateSeverity != "HIGH" {
		t.Errorf("default gate = %q, want HIGH", cfg.Policy.AlloyGateSeverity)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metallisense.yaml")
	data := []byte(`
server:
  port: "9090"
anomaly:
  low_threshold: 0.25
  high_threshold: 0.75
policy:
  alloy_gate_severity: MEDIUM
cache:
  ttl: 30s
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Anomaly.LowThreshold != 0.25 || cfg.Anomaly.HighThreshold != 0.75 {
		t.Errorf("thresholds = %v/%v, want 0.25/0.75",
			cfg.Anomaly.LowThreshold, cfg.Anomaly.HighThreshold)
	}
	if cfg.Policy.AlloyGateSeverity != "MEDIUM" {
		t.Errorf("gate = %q, want MEDIUM", cfg.Policy.AlloyGateSeverity)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("cache ttl = %v, want 30s", cfg.Cache.TTL)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metallisense.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("METALLISENSE_PORT", "7070")
	t.Setenv("METALLISENSE_ALLOY_GATE_SEVERITY", "LOW")
	t.Setenv("METALLISENSE_ANOMALY_HIGH_THRESHOLD", "0.9")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want env override 7070", cfg.Server.Port)
	}
	if cfg.Policy.AlloyGateSeverity != "LOW" {
		t.Errorf("gate = %q, want LOW", cfg.Policy.AlloyGateSeverity)
	}
	if cfg.Anomaly.HighThreshold != 0.9 {
		t.Errorf("high threshold = %v, want 0.9", cfg.Anomaly.HighThreshold)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"low threshold zero", func(c *Config) { c.Anomaly.LowThreshold = 0 }},
		{"thresholds not increasing", func(c *Config) {
			c.Anomaly.LowThreshold = 0.7
			c.Anomaly.HighThreshold = 0.3
		}},
		{"high threshold above one", func(c *Config) { c.Anomaly.HighThreshold = 1.5 }},
		{"negative min addition", func(c *Config) { c.Alloy.MinAddition = -0.1 }},
		{"max addition below min", func(c *Config) { c.Alloy.MaxAddition = 0.001 }},
		{"unknown gate severity", func(c *Config) { c.Policy.AlloyGateSeverity = "CRITICAL" }},
		{"error gate severity", func(c *Config) { c.Policy.AlloyGateSeverity = "ERROR" }},
		{"zero breaker failures", func(c *Config) { c.Breaker.MaxFailures = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			if err := validate(&cfg); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}
