package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"STKIT_BASE_URL", "STKIT_MODEL", "STKIT_TARGET_LANG", "STKIT_LANG_SLOT",
		"STKIT_BATCH_SIZE", "STKIT_MAX_RETRIES", "STKIT_RETRY_DELAY",
		"STKIT_MIN_REQUEST_INTERVAL", "STKIT_REQUEST_TIMEOUT", "STKIT_LOG_LEVEL",
		"STKIT_INPUT", "STKIT_OUTPUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.BatchSize != 15 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 2*time.Second || cfg.MinRequestInterval != 2*time.Second {
		t.Errorf("delays = %v / %v", cfg.RetryDelay, cfg.MinRequestInterval)
	}
	if cfg.TargetLanguage != "Farsi" || cfg.LanguageSlot != "it" {
		t.Errorf("language = %q slot %q", cfg.TargetLanguage, cfg.LanguageSlot)
	}
	if cfg.OutputDir != "out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate on defaults: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STKIT_BATCH_SIZE", "30")
	t.Setenv("STKIT_TARGET_LANG", "German")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BatchSize != 30 || cfg.TargetLanguage != "German" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := Config{BatchSize: 15, TargetLanguage: "Farsi", LanguageSlot: "it", OutputDir: "out"}
	if err := base.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	bad := base
	bad.BatchSize = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero batch size accepted")
	}

	bad = base
	bad.OutputDir = ""
	if err := bad.Validate(); err == nil {
		t.Error("blank output directory accepted")
	}

	bad = base
	bad.MaxRetries = -1
	if err := bad.Validate(); err == nil {
		t.Error("negative retries accepted")
	}

	bad = base
	bad.TargetLanguage = " "
	if err := bad.Validate(); err == nil {
		t.Error("blank language accepted")
	}
}

func TestValidateProvider(t *testing.T) {
	cfg := Config{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o"}
	if err := cfg.ValidateProvider(); err == nil {
		t.Error("missing API key accepted")
	}
	cfg.APIKey = "sk-test"
	if err := cfg.ValidateProvider(); err != nil {
		t.Errorf("ValidateProvider: %v", err)
	}
}

func TestProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := `input: text/en
output: build
language: German
language_slot: de
glossary: terms.csv
batch_size: 25
min_request_interval_seconds: 0.5
`
	if err := os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	pf, err := LoadProjectFile(dir)
	if err != nil {
		t.Fatalf("LoadProjectFile: %v", err)
	}
	if pf == nil {
		t.Fatal("project file not found")
	}
	if pf.Glossary != filepath.Join(dir, "terms.csv") {
		t.Errorf("Glossary = %q, want resolved relative path", pf.Glossary)
	}
	if pf.Input != filepath.Join(dir, "text", "en") {
		t.Errorf("Input = %q, want resolved relative path", pf.Input)
	}
	if pf.Output != filepath.Join(dir, "build") {
		t.Errorf("Output = %q, want resolved relative path", pf.Output)
	}

	cfg := Config{BatchSize: 15, TargetLanguage: "Farsi", LanguageSlot: "it", Model: "gpt-4o", OutputDir: "out"}
	cfg.MergeProject(pf)
	if cfg.TargetLanguage != "German" || cfg.LanguageSlot != "de" {
		t.Errorf("merge language: %+v", cfg)
	}
	if cfg.InputDir != pf.Input {
		t.Errorf("InputDir = %q, want %q", cfg.InputDir, pf.Input)
	}
	if cfg.OutputDir != pf.Output {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, pf.Output)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if cfg.MinRequestInterval != 500*time.Millisecond {
		t.Errorf("MinRequestInterval = %v", cfg.MinRequestInterval)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model overridden unexpectedly: %q", cfg.Model)
	}
}

func TestLoadProjectFile_Absent(t *testing.T) {
	pf, err := LoadProjectFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if pf != nil {
		t.Fatalf("pf = %+v, want nil", pf)
	}
}
