// Package config handles Aria configuration loading and management.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".aria")

	return &Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:8742",
			AllowOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		},
		Auth: AuthConfig{
			SecretEnv: "ARIA_JWT_SECRET",
			TokenTTL:  "24h",
		},
		Providers: ProvidersConfig{
			DeepSeek: ProviderConfig{
				BaseURL: "https://api.deepseek.com/v1",
				Model:   "deepseek-chat",
				KeyEnv:  "DEEPSEEK_API_KEY",
			},
			OpenAI: ProviderConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4",
				KeyEnv:  "OPENAI_API_KEY",
			},
			Anthropic: ProviderConfig{
				BaseURL: "https://api.anthropic.com/v1",
				Model:   "claude-2.1",
				KeyEnv:  "ANTHROPIC_API_KEY",
			},
			Llama: LocalConfig{
				ModelPath: filepath.Join(dataDir, "models", "llama-7b.gguf"),
			},
		},
		Voice: VoiceConfig{
			Language:        "english",
			SpeechRate:      150,
			Volume:          0.8,
			WakeWordEnabled: true,
		},
		Automation: AutomationConfig{
			AllowedCommands: []string{"ls", "pwd", "dir", "echo", "date"},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogsDir: filepath.Join(dataDir, "logs"),
			Console: true,
		},
		Paths: PathsConfig{
			DataDir: dataDir,
			DB:      filepath.Join(dataDir, "aria.db"),
		},
	}
}

// Load loads the configuration from the given path.
// If the file doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file doesn't exist, return defaults
			return cfg, nil
		}
		return nil, err
	}

	// Parse TOML
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg = expandPaths(cfg)

	return cfg, nil
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}

// expandPaths expands ~ in paths.
func expandPaths(cfg *Config) *Config {
	homeDir, _ := os.UserHomeDir()

	expand := func(p string) string {
		if len(p) > 0 && p[0] == '~' {
			return filepath.Join(homeDir, p[1:])
		}
		return p
	}

	cfg.Paths.DataDir = expand(cfg.Paths.DataDir)
	cfg.Paths.DB = expand(cfg.Paths.DB)
	cfg.Logging.LogsDir = expand(cfg.Logging.LogsDir)
	cfg.Providers.Llama.ModelPath = expand(cfg.Providers.Llama.ModelPath)

	return cfg
}
