/*
Package config manages TOML config for qacbox.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/qacbox/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
)

// Lookup transports.
const (
	TransportHTTP = "http"
	TransportIPC  = "ipc"
)

// Config holds the entire config structure
type Config struct {
	Lookup LookupConfig `toml:"lookup"`
	Widget WidgetConfig `toml:"widget"`
	Server ServerConfig `toml:"server"`
	Index  IndexConfig  `toml:"index"`
}

// LookupConfig tells the widget where completions come from.
type LookupConfig struct {
	Transport  string   `toml:"transport"`
	Endpoint   string   `toml:"endpoint"`
	IPCCommand []string `toml:"ipc_command"`
	TimeoutMs  int      `toml:"timeout_ms"`
	Limit      int      `toml:"limit"`
}

// WidgetConfig holds composer options.
type WidgetConfig struct {
	MaxQueryLen int `toml:"max_query_len"`
	DebounceMs  int `toml:"debounce_ms"`
}

// ServerConfig has server related options, shared by the HTTP API and IPC.
type ServerConfig struct {
	Listen     string  `toml:"listen"`
	MaxLimit   int     `toml:"max_limit"`
	MinPrefix  int     `toml:"min_prefix"`
	MaxPrefix  int     `toml:"max_prefix"`
	RatePerSec float64 `toml:"rate_per_sec"`
	Burst      int     `toml:"burst"`
}

// IndexConfig holds the local completion index options.
// Relative file names are resolved against the data directory.
type IndexConfig struct {
	Aliases   string `toml:"aliases"`
	Entities  string `toml:"entities"`
	CacheSize int    `toml:"cache_size"`
	Fuzzy     bool   `toml:"fuzzy"`
}

// Timeout returns the lookup timeout as a duration.
func (l LookupConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutMs) * time.Millisecond
}

// Debounce returns the widget debounce as a duration.
func (w WidgetConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "qacbox")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "qacbox")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/qacbox/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Lookup: LookupConfig{
			Transport:  TransportHTTP,
			Endpoint:   "http://localhost:8181",
			IPCCommand: []string{"qacbox", "ipc"},
			TimeoutMs:  2000,
			Limit:      10,
		},
		Widget: WidgetConfig{
			MaxQueryLen: 60,
			DebounceMs:  0,
		},
		Server: ServerConfig{
			Listen:     ":8181",
			MaxLimit:   64,
			MinPrefix:  1,
			MaxPrefix:  60,
			RatePerSec: 50,
			Burst:      100,
		},
		Index: IndexConfig{
			Aliases:   "aliases.tsv",
			Entities:  "entities.tsv",
			CacheSize: 2048,
			Fuzzy:     true,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. Invalid values are reported and
// replaced by their defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		if !utils.FileExists(configPath) {
			return nil, err
		}
		config = tryPartialParse(configPath)
	}
	if err := config.Validate(); err != nil {
		log.Warnf("Config %s: %v", configPath, err)
		config.fixInvalid()
	}
	for _, w := range config.Warnings() {
		log.Warnf("Config %s: %s", configPath, w)
	}
	return config, nil
}

// tryPartialParse keeps every section that still parses.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if section, ok := utils.ExtractSection(tempConfig, "lookup"); ok {
		extractLookupConfig(section, &config.Lookup)
	}
	if section, ok := utils.ExtractSection(tempConfig, "widget"); ok {
		extractWidgetConfig(section, &config.Widget)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "index"); ok {
		extractIndexConfig(section, &config.Index)
	}
	return config
}

func extractLookupConfig(data map[string]any, lookup *LookupConfig) {
	if val, ok := utils.ExtractString(data, "transport"); ok {
		lookup.Transport = val
	}
	if val, ok := utils.ExtractString(data, "endpoint"); ok {
		lookup.Endpoint = val
	}
	if val, ok := utils.ExtractStrings(data, "ipc_command"); ok {
		lookup.IPCCommand = val
	}
	if val, ok := utils.ExtractInt64(data, "timeout_ms"); ok {
		lookup.TimeoutMs = val
	}
	if val, ok := utils.ExtractInt64(data, "limit"); ok {
		lookup.Limit = val
	}
}

func extractWidgetConfig(data map[string]any, widget *WidgetConfig) {
	if val, ok := utils.ExtractInt64(data, "max_query_len"); ok {
		widget.MaxQueryLen = val
	}
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		widget.DebounceMs = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "listen"); ok {
		server.Listen = val
	}
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractFloat(data, "rate_per_sec"); ok {
		server.RatePerSec = val
	}
	if val, ok := utils.ExtractInt64(data, "burst"); ok {
		server.Burst = val
	}
}

func extractIndexConfig(data map[string]any, index *IndexConfig) {
	if val, ok := utils.ExtractString(data, "aliases"); ok {
		index.Aliases = val
	}
	if val, ok := utils.ExtractString(data, "entities"); ok {
		index.Entities = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_size"); ok {
		index.CacheSize = val
	}
	if val, ok := utils.ExtractBool(data, "fuzzy"); ok {
		index.Fuzzy = val
	}
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if c.Lookup.Transport != TransportHTTP && c.Lookup.Transport != TransportIPC {
		errs = multierror.Append(errs, fmt.Errorf("lookup.transport must be %q or %q, got %q", TransportHTTP, TransportIPC, c.Lookup.Transport))
	}
	if c.Lookup.Transport == TransportIPC && len(c.Lookup.IPCCommand) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("lookup.ipc_command is empty"))
	}
	if c.Lookup.TimeoutMs <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("lookup.timeout_ms must be positive, got %d", c.Lookup.TimeoutMs))
	}
	if c.Lookup.Limit < 1 {
		errs = multierror.Append(errs, fmt.Errorf("lookup.limit must be at least 1, got %d", c.Lookup.Limit))
	}
	if c.Widget.MaxQueryLen < 0 {
		errs = multierror.Append(errs, fmt.Errorf("widget.max_query_len must not be negative, got %d", c.Widget.MaxQueryLen))
	}
	if c.Widget.DebounceMs < 0 {
		errs = multierror.Append(errs, fmt.Errorf("widget.debounce_ms must not be negative, got %d", c.Widget.DebounceMs))
	}
	if c.Server.MaxLimit < 1 {
		errs = multierror.Append(errs, fmt.Errorf("server.max_limit must be at least 1, got %d", c.Server.MaxLimit))
	}
	if c.Server.MinPrefix < 0 {
		errs = multierror.Append(errs, fmt.Errorf("server.min_prefix must not be negative, got %d", c.Server.MinPrefix))
	}
	if c.Server.MaxPrefix < c.Server.MinPrefix {
		errs = multierror.Append(errs, fmt.Errorf("server.max_prefix (%d) is below min_prefix (%d)", c.Server.MaxPrefix, c.Server.MinPrefix))
	}
	if c.Server.RatePerSec < 0 {
		errs = multierror.Append(errs, fmt.Errorf("server.rate_per_sec must not be negative, got %g", c.Server.RatePerSec))
	}
	if c.Index.Aliases == "" {
		errs = multierror.Append(errs, fmt.Errorf("index.aliases is empty"))
	}
	if c.Index.CacheSize < 0 {
		errs = multierror.Append(errs, fmt.Errorf("index.cache_size must not be negative, got %d", c.Index.CacheSize))
	}
	return errs.ErrorOrNil()
}

// Warnings lists settings that are valid on their own but disagree with each
// other. They are logged, not fixed: the widget may talk to a remote server.
func (c *Config) Warnings() []string {
	var warns []string
	if c.Widget.MaxQueryLen > c.Server.MaxPrefix {
		warns = append(warns, fmt.Sprintf(
			"widget.max_query_len (%d) is above server.max_prefix (%d); longer queries get no suggestions from the bundled server",
			c.Widget.MaxQueryLen, c.Server.MaxPrefix))
	}
	return warns
}

// fixInvalid resets the sections that fail validation to their defaults.
func (c *Config) fixInvalid() {
	def := DefaultConfig()
	if (&Config{Lookup: c.Lookup, Widget: def.Widget, Server: def.Server, Index: def.Index}).Validate() != nil {
		c.Lookup = def.Lookup
	}
	if (&Config{Lookup: def.Lookup, Widget: c.Widget, Server: def.Server, Index: def.Index}).Validate() != nil {
		c.Widget = def.Widget
	}
	if (&Config{Lookup: def.Lookup, Widget: def.Widget, Server: c.Server, Index: def.Index}).Validate() != nil {
		c.Server = def.Server
	}
	if (&Config{Lookup: def.Lookup, Widget: def.Widget, Server: def.Server, Index: c.Index}).Validate() != nil {
		c.Index = def.Index
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// IndexPaths resolves the index files against dataDir.
func (c *Config) IndexPaths(dataDir string) (aliases, entities string) {
	resolve := func(name string) string {
		if name == "" || filepath.IsAbs(name) || dataDir == "" {
			return name
		}
		return filepath.Join(dataDir, name)
	}
	return resolve(c.Index.Aliases), resolve(c.Index.Entities)
}
