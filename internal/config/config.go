// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/Strikerman10/gptAPI/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete gptapi configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Worker endpoint
	Worker WorkerConfig `toml:"worker" json:"worker"`

	// Conversation defaults
	Chat ChatConfig `toml:"chat" json:"chat"`

	// HTTP retry policy
	Retry RetryConfig `toml:"retry" json:"retry"`

	// Cloud write pacing
	Sync SyncConfig `toml:"sync" json:"sync"`

	// Local cache
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui"`
}

// WorkerConfig points the client at the Worker API.
type WorkerConfig struct {
	URL         string `toml:"url" json:"url"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
}

// ChatConfig holds the defaults applied to new turns.
type ChatConfig struct {
	// Model is used until the user picks another one.
	Model string `toml:"model" json:"model"`

	// ContextWindow is how many prior messages accompany each request.
	ContextWindow int `toml:"context_window" json:"context_window"`

	// TitleLength caps derived conversation titles, ellipsis included.
	TitleLength int `toml:"title_length" json:"title_length"`
}

// RetryConfig controls the exponential backoff of Worker calls.
type RetryConfig struct {
	MaxAttempts int `toml:"max_attempts" json:"max_attempts"`
	BaseDelayMs int `toml:"base_delay_ms" json:"base_delay_ms"`
	JitterMs    int `toml:"jitter_ms" json:"jitter_ms"`
	MaxDelayMs  int `toml:"max_delay_ms" json:"max_delay_ms"`
}

// SyncConfig controls how the full conversation list is pushed to the cloud.
type SyncConfig struct {
	// Disabled keeps everything local; nothing is saved or loaded remotely.
	Disabled bool `toml:"disabled" json:"disabled"`

	DebounceMs      int `toml:"debounce_ms" json:"debounce_ms"`
	MinIntervalMs   int `toml:"min_interval_ms" json:"min_interval_ms"`
	SaveTimeoutSecs int `toml:"save_timeout_secs" json:"save_timeout_secs"`
}

// StorageConfig selects the local cache backend.
type StorageConfig struct {
	Backend string `toml:"backend" json:"backend"` // "sqlite" or "file"
	Dir     string `toml:"dir" json:"dir"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level string `toml:"level" json:"level"` // debug, info, warn, error
	File  string `toml:"file" json:"file"`
}

// UIConfig holds presentation defaults. A palette or mode chosen inside the
// TUI is remembered in the local cache and wins over these values.
type UIConfig struct {
	Palette     string `toml:"palette" json:"palette"`
	Mode        string `toml:"mode" json:"mode"` // light, dark, or empty to detect
	ShowSidebar bool   `toml:"show_sidebar" json:"show_sidebar"`
	Markdown    bool   `toml:"markdown" json:"markdown"`
	WatchConfig bool   `toml:"watch_config" json:"watch_config"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Worker: WorkerConfig{
			URL:         "https://gptapiv2.barney-willis2.workers.dev",
			TimeoutSecs: 120,
		},

		Chat: ChatConfig{
			Model:         "gpt-5-chat-latest",
			ContextWindow: 10,
			TitleLength:   40,
		},

		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelayMs: 250,
			JitterMs:    100,
			MaxDelayMs:  8000,
		},

		Sync: SyncConfig{
			DebounceMs:      750,
			MinIntervalMs:   1000,
			SaveTimeoutSecs: 30,
		},

		Storage: StorageConfig{
			Backend: "sqlite",
			Dir:     "", // resolved to ConfigDir()/data
		},

		Log: LogConfig{
			Level: "info",
			File:  "", // resolved to ConfigDir()/gptapi.log
		},

		UI: UIConfig{
			Palette:     "Red",
			Mode:        "light",
			ShowSidebar: true,
			Markdown:    true,
			WatchConfig: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the gptapi configuration directory path.
// GPTAPI_HOME replaces ~/.gptapi when set.
func ConfigDir() (string, error) {
	if dir := os.Getenv("GPTAPI_HOME"); dir != "" {
		return util.ExpandHome(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".gptapi"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// DataDir returns the directory holding the local conversation cache.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return util.ExpandHome(c.Storage.Dir)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// LogPath returns the log file path.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return util.ExpandHome(c.Log.File)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gptapi.log"), nil
}

// SECURITY: the cache holds conversation text, keep the config owner-only too.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
//
// When a file exists but cannot be decoded, the defaults are returned together
// with the decode error so callers can warn and carry on.
func Load() (*Config, error) {
	var loadErr error

	for _, candidate := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := candidate()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		if errors.As(err, new(ValidateErrors)) {
			return nil, err
		}
		loadErr = err
		break
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full validation.
// Keys missing from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish applies environment overrides, fills zero values and validates.
func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# gptapi configuration file\n")
	b.WriteString("# Generated by gptapi - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg to path as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Worker
	if u, err := url.Parse(c.Worker.URL); err != nil || u.Host == "" {
		add("worker.url", "invalid URL '%s'", c.Worker.URL)
	} else if u.Scheme != "https" && u.Scheme != "http" {
		add("worker.url", "unsupported scheme '%s', must be http or https", u.Scheme)
	}
	if c.Worker.TimeoutSecs < 1 || c.Worker.TimeoutSecs > 600 {
		add("worker.timeout_secs", "must be between 1 and 600, got %d", c.Worker.TimeoutSecs)
	}

	// Chat
	if strings.TrimSpace(c.Chat.Model) == "" {
		add("chat.model", "must not be empty")
	}
	if c.Chat.ContextWindow < 1 || c.Chat.ContextWindow > 200 {
		add("chat.context_window", "must be between 1 and 200, got %d", c.Chat.ContextWindow)
	}
	if c.Chat.TitleLength < 2 || c.Chat.TitleLength > 200 {
		add("chat.title_length", "must be between 2 and 200, got %d", c.Chat.TitleLength)
	}

	// Retry
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		add("retry.max_attempts", "must be between 1 and 10, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelayMs < 0 {
		add("retry.base_delay_ms", "must not be negative")
	}
	if c.Retry.JitterMs < 0 {
		add("retry.jitter_ms", "must not be negative")
	}
	if c.Retry.MaxDelayMs < 0 {
		add("retry.max_delay_ms", "must not be negative")
	}

	// Sync
	if c.Sync.DebounceMs < 0 {
		add("sync.debounce_ms", "must not be negative")
	}
	if c.Sync.SaveTimeoutSecs < 1 {
		add("sync.save_timeout_secs", "must be at least 1, got %d", c.Sync.SaveTimeoutSecs)
	}

	// Storage
	switch strings.ToLower(c.Storage.Backend) {
	case "sqlite", "file":
	default:
		add("storage.backend", "invalid backend '%s', must be one of: sqlite, file", c.Storage.Backend)
	}

	// Log
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		add("log.level", "%v", err)
	}

	// UI
	switch strings.ToLower(c.UI.Mode) {
	case "", "light", "dark":
	default:
		add("ui.mode", "invalid mode '%s', must be one of: light, dark", c.UI.Mode)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values that a partial file or override left behind.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Worker.URL == "" {
		c.Worker.URL = d.Worker.URL
	}
	if c.Worker.TimeoutSecs == 0 {
		c.Worker.TimeoutSecs = d.Worker.TimeoutSecs
	}
	if c.Chat.Model == "" {
		c.Chat.Model = d.Chat.Model
	}
	if c.Chat.ContextWindow == 0 {
		c.Chat.ContextWindow = d.Chat.ContextWindow
	}
	if c.Chat.TitleLength == 0 {
		c.Chat.TitleLength = d.Chat.TitleLength
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Sync.SaveTimeoutSecs == 0 {
		c.Sync.SaveTimeoutSecs = d.Sync.SaveTimeoutSecs
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Palette == "" {
		c.UI.Palette = d.UI.Palette
	}
	c.UI.Mode = strings.ToLower(c.UI.Mode)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - GPTAPI_WORKER_URL: overrides worker.url
//   - GPTAPI_MODEL: overrides chat.model
//   - GPTAPI_DATA_DIR: overrides storage.dir
//   - GPTAPI_STORAGE_BACKEND: overrides storage.backend
//   - GPTAPI_LOG_LEVEL: overrides log.level
//   - GPTAPI_LOG_FILE: overrides log.file
//   - GPTAPI_OFFLINE: sets sync.disabled
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GPTAPI_WORKER_URL"); v != "" {
		c.Worker.URL = v
	}
	if v := os.Getenv("GPTAPI_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("GPTAPI_DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("GPTAPI_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("GPTAPI_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GPTAPI_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("GPTAPI_OFFLINE"); v != "" {
		c.Sync.Disabled = parseBool(v)
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "chat.model").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g. "ui.palette").
// String values are converted to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field
// equivalent ("timeout_secs" -> "TimeoutSecs"). "url" stays comparable to
// "URL" because lookups are case-insensitive.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(s))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String && field.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation, in declaration order.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		name := tomlName(section)
		if section.Type.Kind() != reflect.Struct {
			keys = append(keys, name)
			continue
		}
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, name+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

func tomlName(f reflect.StructField) string {
	if tag := f.Tag.Get("toml"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return strings.ToLower(f.Name)
}

// Clone returns a copy of c. Config holds no reference types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the config as TOML.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig   *Config
	globalConfigMu sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalConfigMu.RLock()
	cfg := globalConfig
	globalConfigMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	if globalConfig == nil {
		loaded, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if loaded == nil {
			loaded = Default()
		}
		globalConfig = loaded
	}
	return globalConfig
}

// SetGlobal replaces the process-wide configuration. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the process-wide configuration.
func ResetGlobalForTesting() {
	SetGlobal(nil)
}
