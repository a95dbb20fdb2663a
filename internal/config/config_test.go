package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing-config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLMModel != "openai/gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", cfg.LLMModel)
	}
	if cfg.PushBudgetPerDay != 10 {
		t.Fatalf("expected default push budget 10, got %d", cfg.PushBudgetPerDay)
	}
	if !cfg.ProactiveEnabled {
		t.Fatal("expected proactive enabled by default")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "pushBudgetPerDay: 5\nproactiveEnabled: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PushBudgetPerDay != 5 {
		t.Fatalf("expected overridden push budget 5, got %d", cfg.PushBudgetPerDay)
	}
	if cfg.ProactiveEnabled {
		t.Fatal("expected proactive disabled via file override")
	}
	if cfg.LLMModel != "openai/gpt-4o-mini" {
		t.Fatalf("expected untouched field to retain default, got %q", cfg.LLMModel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("BETTERCLAW_PUSH_BUDGET_PER_DAY", "20")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing-config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PushBudgetPerDay != 20 {
		t.Fatalf("expected env override to win, got %d", cfg.PushBudgetPerDay)
	}
}
