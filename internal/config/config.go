package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/consts"
)

const appName = "exprcalc"

// Environment variables that override file values
const (
	EnvLogLevel    = "EXPRCALC_LOG_LEVEL"
	EnvLogPath     = "EXPRCALC_LOG_PATH"
	EnvHistoryPath = "EXPRCALC_HISTORY_PATH"
	EnvServerAddr  = "EXPRCALC_ADDR"
	EnvUnaryPlus   = "EXPRCALC_UNARY_PLUS"
)

// ServerConfig holds settings for the HTTP/websocket API
type ServerConfig struct {
	Addr           string   `json:"addr" validate:"required"`
	RateLimit      float64  `json:"rate_limit" validate:"gte=0"` // requests per second per client, 0 disables
	Burst          int      `json:"burst" validate:"gte=0"`
	MaxBodyBytes   int64    `json:"max_body_bytes" validate:"gt=0"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // websocket origins; empty allows same host only
}

// Config represents application configuration
type Config struct {
	LogLevel            string       `json:"log_level" validate:"omitempty,oneof=debug info warn warning error none off"`
	LogPath             string       `json:"log_path,omitempty"`
	HistoryPath         string       `json:"history_path,omitempty"`
	HistoryEnabled      bool         `json:"history_enabled"`
	AllowUnaryPlus      bool         `json:"allow_unary_plus"`
	MaxExpressionLength int          `json:"max_expression_length" validate:"gte=0"`
	Precision           int          `json:"precision" validate:"gte=-1,lte=17"` // digits after the point, -1 for shortest
	SuiteDir            string       `json:"suite_dir,omitempty"`
	SuiteWorkers        int          `json:"suite_workers" validate:"gte=1,lte=64"`
	Server              ServerConfig `json:"server"`
}

var validate = validator.New()

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", appName)
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", appName)
	default:
		return defaultConfigDir()
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	stateDir := defaultStateDir()

	return &Config{
		LogLevel:            "info",
		LogPath:             filepath.Join(stateDir, appName+".log"),
		HistoryPath:         filepath.Join(stateDir, "history.db"),
		HistoryEnabled:      true,
		AllowUnaryPlus:      false,
		MaxExpressionLength: consts.MaxExpressionLength,
		Precision:           -1,
		SuiteWorkers:        consts.DefaultSuiteWorkers,
		Server: ServerConfig{
			Addr:         consts.DefaultServerAddr,
			RateLimit:    consts.DefaultRateLimit,
			Burst:        consts.DefaultRateBurst,
			MaxBodyBytes: consts.MaxRequestBodyBytes,
		},
	}
}

// Load loads configuration from file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	// Unmarshal into default config (overrides only provided fields)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	config.fillDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// fillDefaults restores defaults for fields a file blanked out
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogPath == "" {
		c.LogPath = def.LogPath
	}
	if c.HistoryPath == "" {
		c.HistoryPath = def.HistoryPath
	}
	if c.SuiteWorkers == 0 {
		c.SuiteWorkers = def.SuiteWorkers
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = def.Server.MaxBodyBytes
	}
}

// Validate checks field ranges
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables. getenv is usually
// os.Getenv. It returns the names of the variables that were applied.
func (c *Config) ApplyEnv(getenv func(string) string) []string {
	var applied []string

	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
		applied = append(applied, EnvLogLevel)
	}
	if v := strings.TrimSpace(getenv(EnvLogPath)); v != "" {
		c.LogPath = v
		applied = append(applied, EnvLogPath)
	}
	if v := strings.TrimSpace(getenv(EnvHistoryPath)); v != "" {
		c.HistoryPath = v
		applied = append(applied, EnvHistoryPath)
	}
	if v := strings.TrimSpace(getenv(EnvServerAddr)); v != "" {
		c.Server.Addr = v
		applied = append(applied, EnvServerAddr)
	}
	if v := strings.TrimSpace(getenv(EnvUnaryPlus)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AllowUnaryPlus = b
			applied = append(applied, EnvUnaryPlus)
		}
	}

	return applied
}

// EvaluatorOptions returns the calc options described by the config
func (c *Config) EvaluatorOptions() calc.Options {
	return calc.Options{
		AllowUnaryPlus: c.AllowUnaryPlus,
		MaxLength:      c.MaxExpressionLength,
	}
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}
