// File path: internal/config/config_test.go
package config

import (
	"strings"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("DB_NAME", "notifications")
	t.Setenv("OPENAI_API_KEY", "sk-test-1234")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.ServerAddr != ":5000" {
		t.Fatalf("expected default server addr, got %q", cfg.ServerAddr)
	}
	if cfg.SampleSize != 100 || cfg.ResultLimit != 100 {
		t.Fatalf("expected default sample/result sizes, got %d/%d", cfg.SampleSize, cfg.ResultLimit)
	}
	if cfg.MaxPipelineStages != 8 || cfg.MaxQueryDepth != 10 {
		t.Fatalf("expected default safety bounds, got %d/%d", cfg.MaxPipelineStages, cfg.MaxQueryDepth)
	}
}

func TestValidateListsEveryMissingVariable(t *testing.T) {
	cfg := Default()
	cfg.MongoURI = "mongodb://localhost:27017"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, name := range []string{"DB_NAME", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected %s in error, got %q", name, err.Error())
		}
	}
	if strings.Contains(err.Error(), "MONGO_URI") {
		t.Fatalf("MONGO_URI is set and must not be reported: %q", err.Error())
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "NOT SET" {
		t.Fatalf("empty secret: got %q", got)
	}
	if got := maskSecret("short"); got != "********" {
		t.Fatalf("short secret must be fully masked: got %q", got)
	}
	if got := maskSecret("sk-abcdefghijkl-wxyz"); got != "********wxyz" {
		t.Fatalf("long secret keeps last four: got %q", got)
	}
}
