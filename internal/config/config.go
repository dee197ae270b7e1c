package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for minibot.
type Config struct {
	General   GeneralConfig             `yaml:"general"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Channels  ChannelsConfig            `yaml:"channels"`
	Session   SessionConfig             `yaml:"session"`
	Tools     ToolsConfig               `yaml:"tools"`
}

type GeneralConfig struct {
	Workspace       string  `yaml:"workspace"`
	LogLevel        string  `yaml:"logLevel"`
	MaxIterations   int     `yaml:"maxIterations"`
	HistoryLimit    int     `yaml:"historyLimit"`
	DefaultProvider string  `yaml:"defaultProvider"`
	MaxSpendDollars float64 `yaml:"maxSpendDollars"` // 0 = unconstrained
}

type ProviderConfig struct {
	Enabled      bool    `yaml:"enabled"`
	APIKey       string  `yaml:"apiKey,omitempty"`
	APIBase      string  `yaml:"apiBase,omitempty"`
	DefaultModel string  `yaml:"defaultModel,omitempty"`
	// Per-million-token prices used for budget accounting.
	InputPricePerM  float64 `yaml:"inputPricePerMillion,omitempty"`
	OutputPricePerM float64 `yaml:"outputPricePerMillion,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	CLI      CLIConfig      `yaml:"cli"`
}

type TelegramConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Token     string   `yaml:"token"`
	AllowFrom []string `yaml:"allowFrom,omitempty"`
	ParseMode string   `yaml:"parseMode,omitempty"`
}

type CLIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SessionConfig selects and configures the conversation store. When the
// remote backend is enabled but unreachable, the local sqlite store is used.
type SessionConfig struct {
	DBPath string       `yaml:"dbPath"`
	Remote RemoteConfig `yaml:"remote"`
}

// RemoteConfig points at a personalization service that stores sessions and
// can answer questions about the user.
type RemoteConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BaseURL  string `yaml:"baseUrl,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
	Prefetch bool   `yaml:"prefetch"`
}

type ToolsConfig struct {
	Shell               ShellToolConfig `yaml:"shell"`
	RestrictToWorkspace bool            `yaml:"restrictToWorkspace"`
}

type ShellToolConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds"`
	MaxOutputBytes int `yaml:"maxOutputBytes"`
}

// DefaultConfigDir returns ~/.minibot.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".minibot"
	}
	return filepath.Join(home, ".minibot")
}

// DefaultConfigPath returns ~/.minibot/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.Workspace = ExpandPath(cfg.General.Workspace)
	cfg.Session.DBPath = ExpandPath(cfg.Session.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has usable values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxIterations < 1 || cfg.General.MaxIterations > 200 {
		errs = append(errs, "general.maxIterations must be between 1 and 200")
	}
	if cfg.General.HistoryLimit < 1 {
		errs = append(errs, "general.historyLimit must be >= 1")
	}
	if cfg.General.MaxSpendDollars < 0 {
		errs = append(errs, "general.maxSpendDollars must be >= 0")
	}
	if cfg.Tools.Shell.TimeoutSeconds < 1 {
		errs = append(errs, "tools.shell.timeoutSeconds must be >= 1")
	}
	if cfg.Session.Remote.Enabled && cfg.Session.Remote.BaseURL == "" {
		errs = append(errs, "session.remote.baseUrl is required when remote is enabled")
	}
	for name, pc := range cfg.Providers {
		if pc.Enabled && name != "ollama" && pc.APIKey == "" {
			errs = append(errs, fmt.Sprintf("providers.%s: apiKey is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// ExpandPath resolves a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
