// Package config handles Aria configuration loading and management.
package config

// Config is the root configuration for the Aria backend.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Auth       AuthConfig       `toml:"auth"`
	Providers  ProvidersConfig  `toml:"providers"`
	Voice      VoiceConfig      `toml:"voice"`
	Automation AutomationConfig `toml:"automation"`
	Logging    LoggingConfig    `toml:"logging"`
	Paths      PathsConfig      `toml:"paths"`
}

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	AllowOrigins []string `toml:"allow_origins"`
}

// AuthConfig configures token authentication.
type AuthConfig struct {
	// SecretEnv names the environment variable holding the JWT secret.
	SecretEnv string `toml:"secret_env"`
	TokenTTL  string `toml:"token_ttl"`
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	DeepSeek  ProviderConfig `toml:"deepseek"`
	OpenAI    ProviderConfig `toml:"openai"`
	Anthropic ProviderConfig `toml:"anthropic"`
	Llama     LocalConfig    `toml:"llama"`
}

// ProviderConfig configures one cloud provider.
type ProviderConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	// KeyEnv names the environment variable holding the API key.
	KeyEnv string `toml:"key_env"`
}

// LocalConfig configures the local model.
type LocalConfig struct {
	ModelPath string `toml:"model_path"`
}

// VoiceConfig configures the voice engines.
type VoiceConfig struct {
	Language        string  `toml:"language"`
	SpeechRate      int     `toml:"speech_rate"`
	Volume          float64 `toml:"volume"`
	WakeWordEnabled bool    `toml:"wake_word_enabled"`
}

// AutomationConfig configures the automation engine.
type AutomationConfig struct {
	AllowedCommands []string `toml:"allowed_commands"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level   string `toml:"level"`
	LogsDir string `toml:"logs_dir"`
	Console bool   `toml:"console"`
}

// PathsConfig holds filesystem paths.
type PathsConfig struct {
	DataDir string `toml:"data_dir"`
	DB      string `toml:"db"`
}
