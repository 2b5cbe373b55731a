// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// ollama-chat.
//
// Supports TOML, JSON and YAML configuration files, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - $OLLAMA_CHAT_CONFIG
//   - ~/.ollama-chat/config.toml
//   - ~/.ollama-chat/config.json
//   - ~/.ollama-chat/config.yaml
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/ollama-chat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ollama-chat configuration.
type Config struct {
	// Ollama server connection
	Ollama OllamaConfig `toml:"ollama" json:"ollama" yaml:"ollama"`

	// Web server
	Server ServerConfig `toml:"server" json:"server" yaml:"server"`

	// Front end appearance
	UI UIConfig `toml:"ui" json:"ui" yaml:"ui"`

	// Logging
	Log LogConfig `toml:"log" json:"log" yaml:"log"`
}

// OllamaConfig contains the model server settings.
type OllamaConfig struct {
	BaseURL      string   `toml:"base_url" json:"base_url" yaml:"base_url"`
	Timeout      Duration `toml:"timeout" json:"timeout" yaml:"timeout"`
	ProbeTimeout Duration `toml:"probe_timeout" json:"probe_timeout" yaml:"probe_timeout"`
	ProbePrompt  string   `toml:"probe_prompt" json:"probe_prompt" yaml:"probe_prompt"`
}

// ServerConfig contains the browser front end settings.
type ServerConfig struct {
	Addr       string   `toml:"addr" json:"addr" yaml:"addr"`
	SessionTTL Duration `toml:"session_ttl" json:"session_ttl" yaml:"session_ttl"`

	// RateLimit is requests per second per client address; 0 disables it.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst" yaml:"rate_burst"`

	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// UIConfig contains appearance settings shared by all front ends.
type UIConfig struct {
	Language  string `toml:"language" json:"language" yaml:"language"`
	Theme     string `toml:"theme" json:"theme" yaml:"theme"`
	CodeStyle string `toml:"code_style" json:"code_style" yaml:"code_style"`

	// ProbeOnRender runs the readiness probe for the status bar on every
	// page render. Each probe is a full inference on the server.
	ProbeOnRender bool `toml:"probe_on_render" json:"probe_on_render" yaml:"probe_on_render"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
}

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as "90s" or "5m" in config files.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns d formatted like time.Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. A bare number is read
// as seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if secs, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			BaseURL:      "http://localhost:11434",
			Timeout:      Duration(5 * time.Minute),
			ProbeTimeout: Duration(60 * time.Second),
			ProbePrompt:  "Hi",
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:8501",
			SessionTTL: Duration(2 * time.Hour),
			RateLimit:  5,
			RateBurst:  20,
			Metrics:    true,
		},
		UI: UIConfig{
			Language:      "de",
			Theme:         "auto",
			CodeStyle:     "github",
			ProbeOnRender: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// fillDefaults fills in any missing values with defaults. Booleans are left
// alone because false is a valid choice.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = defaults.Ollama.BaseURL
	}
	if cfg.Ollama.Timeout == 0 {
		cfg.Ollama.Timeout = defaults.Ollama.Timeout
	}
	if cfg.Ollama.ProbeTimeout == 0 {
		cfg.Ollama.ProbeTimeout = defaults.Ollama.ProbeTimeout
	}
	if cfg.Ollama.ProbePrompt == "" {
		cfg.Ollama.ProbePrompt = defaults.Ollama.ProbePrompt
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = defaults.Server.SessionTTL
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = defaults.Server.RateBurst
	}

	if cfg.UI.Language == "" {
		cfg.UI.Language = defaults.UI.Language
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.CodeStyle == "" {
		cfg.UI.CodeStyle = defaults.UI.CodeStyle
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// EnvConfigPath names the variable that points at an explicit config file.
const EnvConfigPath = "OLLAMA_CHAT_CONFIG"

// ConfigDir returns the ollama-chat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollama-chat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return configPath("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	return configPath("config.json")
}

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) {
	return configPath("config.yaml")
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// FindConfigFile returns the config file Load would read, or "" when none
// exists.
func FindConfigFile() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	for _, fn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON, ConfigPathYAML} {
		p, err := fn()
		if err != nil {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the environment. Missing files are ignored and variables that are
// already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from the first config file found (see
// FindConfigFile), applies environment overrides and validates the result.
// Without a config file the defaults are used.
func Load() (*Config, error) {
	if path := FindConfigFile(); path != "" {
		return LoadFromPath(path)
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format follows the extension; anything that is not .json
// or .yaml/.yml is read as TOML. Keys missing from the file keep their
// defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadYAML loads configuration from a YAML file.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	fillDefaults(cfg)
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

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# ollama-chat configuration file\n")
	buf.WriteString("# Environment variables (OLLAMA_CHAT_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeConfig(path, buf.Bytes())
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeConfig(path, data)
}

// SaveYAML saves the configuration to a YAML file.
func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeConfig(path, data)
}

// writeConfig writes atomically with owner-only permissions.
func writeConfig(path string, data []byte) error {
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
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

var (
	validLanguages = map[string]bool{"de": true, "en": true}
	validThemes    = map[string]bool{
		"auto": true, "dark": true, "light": true, "notty": true,
		"ascii": true, "dracula": true, "pink": true, "tokyo-night": true,
	}
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}
)

// Validate validates the configuration and returns a ValidateErrors listing
// every problem, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Ollama
	if u, err := url.Parse(c.Ollama.BaseURL); err != nil {
		add("ollama.base_url", "invalid URL: %v", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("ollama.base_url", "scheme must be http or https, got %q", u.Scheme)
	} else if u.Host == "" {
		add("ollama.base_url", "missing host")
	}
	if c.Ollama.Timeout <= 0 {
		add("ollama.timeout", "must be positive")
	}
	if c.Ollama.ProbeTimeout <= 0 {
		add("ollama.probe_timeout", "must be positive")
	}
	if strings.TrimSpace(c.Ollama.ProbePrompt) == "" {
		add("ollama.probe_prompt", "must not be empty")
	}

	// Server
	if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", "must be host:port: %v", err)
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		add("server.addr", "invalid port %q", port)
	}
	if c.Server.SessionTTL < Duration(time.Minute) {
		add("server.session_ttl", "must be at least 1m, got %s", c.Server.SessionTTL)
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		add("server.rate_burst", "must be at least 1 when rate_limit is set")
	}

	// UI
	if !validLanguages[strings.ToLower(c.UI.Language)] {
		add("ui.language", "unsupported language %q, must be one of: de, en", c.UI.Language)
	}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "unknown theme %q", c.UI.Theme)
	}

	// Log
	if !validLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		add("log.format", "invalid format %q, must be text or json", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported variables:
//   - OLLAMA_CHAT_BASE_URL, OLLAMA_BASE_URL, OLLAMA_HOST: ollama.base_url (first set wins)
//   - OLLAMA_CHAT_TIMEOUT: ollama.timeout
//   - OLLAMA_CHAT_ADDR: server.addr
//   - OLLAMA_CHAT_SESSION_TTL: server.session_ttl
//   - OLLAMA_CHAT_LANGUAGE: ui.language
//   - OLLAMA_CHAT_LOG_LEVEL: log.level
//   - OLLAMA_CHAT_LOG_FORMAT: log.format
//
// Unparseable durations are ignored.
func (c *Config) ApplyEnvOverrides() {
	for _, key := range []string{"OLLAMA_CHAT_BASE_URL", "OLLAMA_BASE_URL", "OLLAMA_HOST"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			c.Ollama.BaseURL = normalizeBaseURL(v)
			break
		}
	}

	if v := os.Getenv("OLLAMA_CHAT_TIMEOUT"); v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err == nil {
			c.Ollama.Timeout = d
		}
	}

	if v := os.Getenv("OLLAMA_CHAT_ADDR"); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv("OLLAMA_CHAT_SESSION_TTL"); v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err == nil {
			c.Server.SessionTTL = d
		}
	}

	if v := os.Getenv("OLLAMA_CHAT_LANGUAGE"); v != "" {
		c.UI.Language = strings.ToLower(v)
	}

	if v := os.Getenv("OLLAMA_CHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	if v := os.Getenv("OLLAMA_CHAT_LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
}

// normalizeBaseURL accepts the bare host:port form OLLAMA_HOST commonly
// uses and turns it into a URL.
func normalizeBaseURL(v string) string {
	if !strings.Contains(v, "://") {
		v = "http://" + v
	}
	return strings.TrimRight(v, "/")
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ollama.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
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
	if strings.TrimSpace(key) == "" {
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
// equivalent ("base_url" -> "Baseurl", matched case-insensitively).
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(strVal))
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"ollama.base_url",
		"ollama.timeout",
		"ollama.probe_timeout",
		"ollama.probe_prompt",
		"server.addr",
		"server.session_ttl",
		"server.rate_limit",
		"server.rate_burst",
		"server.metrics",
		"ui.language",
		"ui.theme",
		"ui.code_style",
		"ui.probe_on_render",
		"log.level",
		"log.format",
	}
}

// String returns the config as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
