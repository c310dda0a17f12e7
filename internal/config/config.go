package config

import (
	"fmt"
	"strings"
)

const (
	secretService     = "askd"
	adminTokenAccount = "admin_token"
	apiKeyAccount     = "api_key"
)

type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Index   IndexConfig
	Corpus  CorpusConfig
	Prompts PromptsConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host       string
	Port       int
	AdminToken string
}

type EngineConfig struct {
	Kind       string
	BaseURL    string
	Model      string
	EmbedModel string
	APIKey     string
}

type IndexConfig struct {
	Dir       string
	TopK      int
	Threshold float64
}

type CorpusConfig struct {
	Dir     string
	Refresh string // duration string; "0" disables polling
}

type PromptsConfig struct {
	Path string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8643,
		},
		Engine: EngineConfig{
			Kind:       "ollama",
			BaseURL:    "http://localhost:11434",
			Model:      "llama3.2",
			EmbedModel: "nomic-embed-text",
		},
		Index: IndexConfig{
			Dir:       dataDir,
			TopK:      5,
			Threshold: 0.5,
		},
		Corpus: CorpusConfig{
			Dir:     defaultCorpusDir(dataDir),
			Refresh: "0",
		},
		Prompts: PromptsConfig{
			Path: defaultPromptsPath(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.askd.app) and secrets
// live in the Keychain. Elsewhere the backend is a JSON file at
// $XDG_CONFIG_HOME/askd/config.json and secrets in
// $XDG_DATA_HOME/askd/secrets.json.
//
// Environment variables (ASKD_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), platformSecrets{})
}

// secretStore abstracts platform secret access for testing.
type secretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

func loadWith(b ConfigBackend, sec secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Secrets never live in the plain config backend.
	if cfg.Server.AdminToken == "" {
		if tok, err := sec.Get(secretService, adminTokenAccount); err == nil && tok != "" {
			cfg.Server.AdminToken = tok
		}
	}
	if cfg.Engine.APIKey == "" {
		if key, err := sec.Get(secretService, apiKeyAccount); err == nil && key != "" {
			cfg.Engine.APIKey = key
		}
	}

	if cfg.Engine.Kind == "openai" && cfg.Engine.APIKey == "" {
		msg := "missing required config: API key for the openai engine. " +
			"Set it via environment variable ASKD_ENGINE_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// platformSecrets reads and writes the platform secret store.
type platformSecrets struct{}

func (platformSecrets) Get(service, account string) (string, error) {
	out, err := secretGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformSecrets) Set(service, account, value string) error {
	return secretSet(service, account, value)
}
