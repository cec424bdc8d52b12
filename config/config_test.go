/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
)

func validData() *configData {
	return &configData{
		Version: 1,
		BaseDir: "/tmp/sheetpilot",
		LLM: LLM{
			BaseURL:      "https://api.openai.com",
			APIKeyEnv:    "OPENAI_API_KEY",
			DefaultModel: "gpt-4o-mini",
			Models:       []string{"gpt-4o-mini", "gpt-3.5-turbo"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*configData)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(*configData) {},
			wantError: false,
		},
		{
			name:      "invalid version",
			mutate:    func(c *configData) { c.Version = 2 },
			wantError: true,
		},
		{
			name:      "missing base url",
			mutate:    func(c *configData) { c.LLM.BaseURL = "" },
			wantError: true,
		},
		{
			name:      "missing api key env",
			mutate:    func(c *configData) { c.LLM.APIKeyEnv = "" },
			wantError: true,
		},
		{
			name:      "missing default model",
			mutate:    func(c *configData) { c.LLM.DefaultModel = "" },
			wantError: true,
		},
		{
			name:      "default model not in allow-list",
			mutate:    func(c *configData) { c.LLM.DefaultModel = "gpt-5" },
			wantError: true,
		},
		{
			name:      "empty allow-list accepts any default",
			mutate:    func(c *configData) { c.LLM.Models = nil; c.LLM.DefaultModel = "anything" },
			wantError: false,
		},
		{
			name:      "temperature out of range",
			mutate:    func(c *configData) { c.LLM.DefaultTemperature = 1.5 },
			wantError: true,
		},
		{
			name:      "negative concurrency",
			mutate:    func(c *configData) { c.Runner.MaxConcurrency = -1 },
			wantError: true,
		},
		{
			name:      "negative request interval",
			mutate:    func(c *configData) { c.Runner.MinRequestIntervalMS = -5 },
			wantError: true,
		},
		{
			name:      "unknown cache scope",
			mutate:    func(c *configData) { c.Runner.CacheScope = "session" },
			wantError: true,
		},
		{
			name:      "run cache scope",
			mutate:    func(c *configData) { c.Runner.CacheScope = CacheScopeRun },
			wantError: false,
		},
		{
			name:      "unpaired delimiter",
			mutate:    func(c *configData) { c.Template.OpenDelimiter = "#" },
			wantError: true,
		},
		{
			name: "paired hash delimiters",
			mutate: func(c *configData) {
				c.Template.OpenDelimiter = "#"
				c.Template.CloseDelimiter = "#"
			},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := validData()
			tt.mutate(data)
			c := &Config{data: data}
			err := c.validate()
			if tt.wantError && err == nil {
				t.Error("validate() expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("validate() unexpected error: %v", err)
			}
		})
	}
}

func TestAccessorDefaults(t *testing.T) {
	c := &Config{data: validData()}

	if got := c.MaxConcurrency(); got != global.DefaultMaxConcurrency {
		t.Errorf("MaxConcurrency() = %d, want %d", got, global.DefaultMaxConcurrency)
	}
	if got := c.MinRequestInterval(); got != 0 {
		t.Errorf("MinRequestInterval() = %v, want 0", got)
	}
	if got := c.LLMTimeout(); got != 120*time.Second {
		t.Errorf("LLMTimeout() = %v, want 120s", got)
	}
	if got := c.CacheScope(); got != CacheScopeProcess {
		t.Errorf("CacheScope() = %s, want %s", got, CacheScopeProcess)
	}
	if got := c.CacheMaxEntries(); got != 4096 {
		t.Errorf("CacheMaxEntries() = %d, want 4096", got)
	}
	open, closeDelim := c.Delimiters()
	if open != global.DefaultOpenDelimiter || closeDelim != global.DefaultCloseDelimiter {
		t.Errorf("Delimiters() = %q %q, want %q %q",
			open, closeDelim, global.DefaultOpenDelimiter, global.DefaultCloseDelimiter)
	}
	if got := c.LogLevel(); got != global.LogLevelInfo {
		t.Errorf("LogLevel() = %s, want %s", got, global.LogLevelInfo)
	}
}

func TestModelAllowed(t *testing.T) {
	c := &Config{data: validData()}

	if !c.ModelAllowed("gpt-4o-mini") {
		t.Error("ModelAllowed(gpt-4o-mini) = false, want true")
	}
	if c.ModelAllowed("gpt-5") {
		t.Error("ModelAllowed(gpt-5) = true, want false")
	}

	c.data.LLM.Models = nil
	if !c.ModelAllowed("anything") {
		t.Error("ModelAllowed with empty allow-list should accept any model")
	}
}

func TestLoadExplicitPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	content := []byte(`{
		"version": 1,
		"base_dir": "` + tmpDir + `",
		"logging": {"file": "` + filepath.Join(tmpDir, "test.log") + `", "level": "DEBUG"},
		"llm": {
			"base_url": "https://api.openai.com",
			"api_key_env": "OPENAI_API_KEY",
			"default_model": "gpt-4o-mini"
		},
		"runner": {"max_concurrency": 2, "min_request_interval_ms": 250}
	}`)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	c := New(WithConfigPath(configPath))
	if err := c.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if c.IsFirstRun() {
		t.Error("IsFirstRun() = true for pre-existing config")
	}
	if got := c.LogLevel(); got != "DEBUG" {
		t.Errorf("LogLevel() = %s, want DEBUG", got)
	}
	if got := c.MaxConcurrency(); got != 2 {
		t.Errorf("MaxConcurrency() = %d, want 2", got)
	}
	if got := c.MinRequestInterval(); got != 250*time.Millisecond {
		t.Errorf("MinRequestInterval() = %v, want 250ms", got)
	}
	if got := c.FilesDir(); got != filepath.Join(tmpDir, global.DefaultFilesDir) {
		t.Errorf("FilesDir() = %s, want under base dir", got)
	}
	if !global.DirExists(c.FilesDir()) {
		t.Error("FilesDir was not created by Load()")
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	c := New(WithConfigPath(configPath))
	if err := c.Load(); err == nil {
		t.Error("Load() expected error for malformed JSON, got nil")
	}
}
