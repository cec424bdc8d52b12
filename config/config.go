/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package config loads and validates the application configuration from a
// JSON file. The file is checked against an embedded JSON schema first, then
// against semantic rules the schema cannot express.
package config

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
)

const (
	embeddedExamplePath = "docs/config-example.json"
	embeddedSchemaPath  = "docs/config-schema.json"
)

// Cache scope constants
const (
	CacheScopeRun     = "run"     // fresh cache per batch run
	CacheScopeProcess = "process" // shared across runs and sessions, LRU bounded
)

// Config provides access to application configuration
type Config struct {
	configPath string      // resolved path to config file
	data       *configData // parsed configuration
	firstRun   bool        // true if config was just created
	filesDir   string      // resolved files directory (uploads, exports, logs)
	embeddedFS embed.FS    // embedded config example and schema
}

// configData holds the parsed configuration (internal)
type configData struct {
	Version  int      `json:"version"`
	BaseDir  string   `json:"base_dir,omitempty"`
	FilesDir string   `json:"files_dir,omitempty"`
	Logging  Logging  `json:"logging"`
	LLM      LLM      `json:"llm"`
	Runner   Runner   `json:"runner,omitempty"`
	Template Template `json:"template,omitempty"`
}

// Logging represents logging configuration
type Logging struct {
	File  string `json:"file"`
	Level string `json:"level"`
}

// LLM represents the text-generation backend configuration
type LLM struct {
	BaseURL            string   `json:"base_url"`
	APIKeyEnv          string   `json:"api_key_env"`
	SystemPrompt       string   `json:"system_prompt,omitempty"`
	DefaultModel       string   `json:"default_model"`
	Models             []string `json:"models,omitempty"`
	DefaultTemperature float64  `json:"default_temperature,omitempty"`
	TimeoutSeconds     int      `json:"timeout_seconds,omitempty"`
}

// Runner represents batch execution configuration
type Runner struct {
	MaxConcurrency       int       `json:"max_concurrency,omitempty"`
	MinRequestIntervalMS int       `json:"min_request_interval_ms,omitempty"`
	RateLimit            RateLimit `json:"rate_limit,omitempty"`
	CacheScope           string    `json:"cache_scope,omitempty"`
	CacheMaxEntries      int       `json:"cache_max_entries,omitempty"`
}

// RateLimit represents rate limiting configuration
type RateLimit struct {
	MaxRequests   int `json:"max_requests,omitempty"`
	PeriodSeconds int `json:"period_seconds,omitempty"`
}

// Template represents prompt template configuration
type Template struct {
	OpenDelimiter  string `json:"open_delimiter,omitempty"`
	CloseDelimiter string `json:"close_delimiter,omitempty"`
}

// Option is a functional option for configuring Config
type Option func(*Config)

// New creates a new Config instance with optional configuration
func New(opts ...Option) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithConfigPath sets an explicit config file path
func WithConfigPath(path string) Option {
	return func(c *Config) {
		c.configPath = path
	}
}

// WithEmbeddedFS sets the embedded filesystem holding the default config and
// its schema
func WithEmbeddedFS(efs embed.FS) Option {
	return func(c *Config) {
		c.embeddedFS = efs
	}
}

// Load loads and validates configuration from file
// If the base directory or config file doesn't exist, it creates them from
// embedded defaults
func (c *Config) Load() error {
	configPath, err := c.resolveConfigPath()
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	c.configPath = configPath

	baseDir := c.resolveDefaultBaseDir()
	if !global.DirExists(baseDir) {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return fmt.Errorf("failed to create base directory %s: %w", baseDir, err)
		}
	}

	// Create default config if it doesn't exist
	if !global.FileExists(configPath) {
		c.firstRun = true
		if err := c.setupDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to create default config at %s: %w", configPath, err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Structural validation against the embedded JSON schema
	if err := c.validateSchema(data); err != nil {
		return err
	}

	// Detect unknown fields using strict parsing; warn but still load
	var cfg configData
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: config file %s: %v\n", configPath, err)
			if err := json.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		} else {
			return fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	c.data = &cfg

	if err := c.resolveBaseDir(); err != nil {
		return err
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := c.normalizePaths(); err != nil {
		return fmt.Errorf("failed to normalize paths: %w", err)
	}

	return nil
}

// setupDefaultConfig creates a default config file from the embedded example
func (c *Config) setupDefaultConfig(configPath string) error {
	content, err := c.embeddedFS.ReadFile(embeddedExamplePath)
	if err != nil {
		return fmt.Errorf("failed to read embedded config example: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configPath, err)
	}

	return nil
}

// validateSchema validates the raw config bytes against the embedded schema.
// A missing embedded schema is not fatal (tests construct Config without one).
func (c *Config) validateSchema(data []byte) error {
	schemaContent, err := c.embeddedFS.ReadFile(embeddedSchemaPath)
	if err != nil {
		return nil
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaContent)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("config schema validation error: %w", err)
	}

	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("config file %s does not match schema: %s",
			c.configPath, strings.Join(msgs, "; "))
	}

	return nil
}

// resolveConfigPath determines the config file path using precedence rules
func (c *Config) resolveConfigPath() (string, error) {
	// 1. Explicit path (from WithConfigPath option)
	if c.configPath != "" {
		return c.resolveToAbsolute(c.configPath)
	}

	// 2. Environment variable
	if envPath := os.Getenv(global.ConfigEnvVar); envPath != "" {
		return c.resolveToAbsolute(envPath)
	}

	// 3. Default: base_dir/config.json
	baseDir := c.resolveDefaultBaseDir()
	return filepath.Join(baseDir, global.DefaultConfigFileName), nil
}

// resolveDefaultBaseDir returns the resolved default base directory
func (c *Config) resolveDefaultBaseDir() string {
	return expandHomePath(global.DefaultBaseDir)
}

// resolveBaseDir resolves and validates the base_dir from config
func (c *Config) resolveBaseDir() error {
	if c.data.BaseDir == "" {
		c.data.BaseDir = expandHomePath(global.DefaultBaseDir)
		return nil
	}

	resolved := expandHomePath(c.data.BaseDir)

	if !filepath.IsAbs(resolved) {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: base_dir '%s' is not absolute, using default '%s'\n",
			c.data.BaseDir, global.DefaultBaseDir)
		resolved = expandHomePath(global.DefaultBaseDir)
	}

	c.data.BaseDir = resolved
	return nil
}

// resolveToAbsolute converts a path to absolute, expanding ~/ if needed
func (c *Config) resolveToAbsolute(path string) (string, error) {
	expanded := expandHomePath(path)
	if filepath.IsAbs(expanded) {
		return expanded, nil
	}
	return filepath.Abs(expanded)
}

// expandHomePath expands ~/ to the user's home directory
func expandHomePath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}

// validate applies semantic rules the JSON schema cannot express
func (c *Config) validate() error {
	if c.data.Version != 1 {
		if c.data.Version < 1 {
			return fmt.Errorf("config version %d is too old (expected 1)", c.data.Version)
		}
		return fmt.Errorf("config version %d is newer than supported (expected 1)", c.data.Version)
	}

	if c.data.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url cannot be empty")
	}
	if c.data.LLM.APIKeyEnv == "" {
		return fmt.Errorf("llm.api_key_env cannot be empty")
	}
	if c.data.LLM.DefaultModel == "" {
		return fmt.Errorf("llm.default_model cannot be empty")
	}

	if len(c.data.LLM.Models) > 0 {
		found := false
		for _, m := range c.data.LLM.Models {
			if m == c.data.LLM.DefaultModel {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("llm.default_model '%s' not found in llm.models", c.data.LLM.DefaultModel)
		}
	}

	if t := c.data.LLM.DefaultTemperature; t < 0 || t > 1 {
		return fmt.Errorf("llm.default_temperature %v out of range [0,1]", t)
	}

	if c.data.Runner.MaxConcurrency < 0 {
		return fmt.Errorf("runner.max_concurrency cannot be negative")
	}
	if c.data.Runner.MinRequestIntervalMS < 0 {
		return fmt.Errorf("runner.min_request_interval_ms cannot be negative")
	}

	switch c.data.Runner.CacheScope {
	case "", CacheScopeRun, CacheScopeProcess:
	default:
		return fmt.Errorf("runner.cache_scope must be '%s' or '%s'", CacheScopeRun, CacheScopeProcess)
	}

	// Delimiters must come in pairs
	open, close := c.data.Template.OpenDelimiter, c.data.Template.CloseDelimiter
	if (open == "") != (close == "") {
		return fmt.Errorf("template.open_delimiter and template.close_delimiter must be set together")
	}

	// The API key is resolved from the environment at call time; warn early
	// when it is missing so the first run_start does not fail mysteriously
	if os.Getenv(c.data.LLM.APIKeyEnv) == "" {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: environment variable %s is not set - LLM calls will fail until it is\n",
			c.data.LLM.APIKeyEnv)
	}

	return nil
}

// normalizePaths resolves the files directory relative to base_dir and
// creates it
func (c *Config) normalizePaths() error {
	filesDir := c.data.FilesDir
	if filesDir == "" {
		filesDir = global.DefaultFilesDir
	}
	filesDir = expandHomePath(filesDir)
	if !filepath.IsAbs(filesDir) {
		filesDir = filepath.Join(c.data.BaseDir, filesDir)
	}
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return fmt.Errorf("failed to create files directory at %s: %w", filesDir, err)
	}
	c.filesDir = filesDir
	return nil
}

// Accessors

// ConfigPath returns the resolved config file path
func (c *Config) ConfigPath() string { return c.configPath }

// IsFirstRun returns true if the config file was just created
func (c *Config) IsFirstRun() bool { return c.firstRun }

// BaseDir returns the resolved base directory
func (c *Config) BaseDir() string { return c.data.BaseDir }

// FilesDir returns the resolved files directory for uploads and exports
func (c *Config) FilesDir() string { return c.filesDir }

// LogFile returns the log file path, defaulting under base_dir
func (c *Config) LogFile() string {
	if c.data.Logging.File == "" {
		return filepath.Join(c.data.BaseDir, "sheetpilot.log")
	}
	return c.data.Logging.File
}

// LogLevel returns the configured log level
func (c *Config) LogLevel() string {
	if c.data.Logging.Level == "" {
		return global.LogLevelInfo
	}
	return c.data.Logging.Level
}

// LLMBaseURL returns the collaborator endpoint base URL
func (c *Config) LLMBaseURL() string { return c.data.LLM.BaseURL }

// APIKey resolves the API key from the configured environment variable
func (c *Config) APIKey() string { return os.Getenv(c.data.LLM.APIKeyEnv) }

// SystemPrompt returns the system prompt prepended to every call
func (c *Config) SystemPrompt() string { return c.data.LLM.SystemPrompt }

// DefaultModel returns the default model variant
func (c *Config) DefaultModel() string { return c.data.LLM.DefaultModel }

// Models returns the configured model allow-list. An empty list means any
// model name is accepted.
func (c *Config) Models() []string { return c.data.LLM.Models }

// ModelAllowed reports whether the given model may be used
func (c *Config) ModelAllowed(model string) bool {
	if len(c.data.LLM.Models) == 0 {
		return true
	}
	for _, m := range c.data.LLM.Models {
		if m == model {
			return true
		}
	}
	return false
}

// DefaultTemperature returns the default sampling temperature
func (c *Config) DefaultTemperature() float64 { return c.data.LLM.DefaultTemperature }

// LLMTimeout returns the per-call timeout for the collaborator
func (c *Config) LLMTimeout() time.Duration {
	if c.data.LLM.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.data.LLM.TimeoutSeconds) * time.Second
}

// MaxConcurrency returns the default worker pool size
func (c *Config) MaxConcurrency() int {
	if c.data.Runner.MaxConcurrency <= 0 {
		return global.DefaultMaxConcurrency
	}
	return c.data.Runner.MaxConcurrency
}

// MinRequestInterval returns the default pacing between dispatches
func (c *Config) MinRequestInterval() time.Duration {
	return time.Duration(c.data.Runner.MinRequestIntervalMS) * time.Millisecond
}

// RateLimit returns the sliding-window rate limit settings. Zero values
// disable rate limiting.
func (c *Config) RateLimit() (maxRequests, periodSeconds int) {
	return c.data.Runner.RateLimit.MaxRequests, c.data.Runner.RateLimit.PeriodSeconds
}

// CacheScope returns the result cache scope ("run" or "process")
func (c *Config) CacheScope() string {
	if c.data.Runner.CacheScope == "" {
		return CacheScopeProcess
	}
	return c.data.Runner.CacheScope
}

// CacheMaxEntries returns the LRU bound for the process-scoped cache
func (c *Config) CacheMaxEntries() int {
	if c.data.Runner.CacheMaxEntries <= 0 {
		return 4096
	}
	return c.data.Runner.CacheMaxEntries
}

// Delimiters returns the active template delimiter pair
func (c *Config) Delimiters() (open, close string) {
	if c.data.Template.OpenDelimiter == "" {
		return global.DefaultOpenDelimiter, global.DefaultCloseDelimiter
	}
	return c.data.Template.OpenDelimiter, c.data.Template.CloseDelimiter
}
