package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RemoteConfig holds connection details for an OpenAI-style HTTP oracle.
type RemoteConfig struct {
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	TimeoutSecs int     `yaml:"timeout_secs,omitempty"`
	MaxRetries  int     `yaml:"max_retries,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// Timeout returns the configured timeout, or zero to let the client choose.
func (r *RemoteConfig) Timeout() time.Duration {
	if r == nil {
		return 0
	}
	return time.Duration(r.TimeoutSecs) * time.Second
}

// HashingConfig configures the offline hashing embedder.
type HashingConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
// Type is one of hashing, openai, compat.
type EmbedderConfig struct {
	Type    string        `yaml:"type"`
	Hashing HashingConfig `yaml:"hashing"`
	OpenAI  *RemoteConfig `yaml:"openai,omitempty"`
	Compat  *RemoteConfig `yaml:"compat,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// VectorStoreConfig selects the index backend. Type is bolt or memory.
type VectorStoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path,omitempty"`
}

// ChatConfig selects the chat oracle. Type is one of extractive, openai, compat.
type ChatConfig struct {
	Type         string        `yaml:"type"`
	MaxSentences int           `yaml:"max_sentences"`
	OpenAI       *RemoteConfig `yaml:"openai,omitempty"`
	Compat       *RemoteConfig `yaml:"compat,omitempty"`
}

type RetrievalConfig struct {
	TopK        int `yaml:"top_k"`
	Concurrency int `yaml:"concurrency"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chat        ChatConfig        `yaml:"chat"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve loads explicit when it is set and falls back to LoadDefault otherwise.
func Resolve(explicit string) (*AppConfig, string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, "", err
		}
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	return LoadDefault()
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown implementation names and inconsistent chunk sizes.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "hashing", "openai", "compat":
	default:
		return fmt.Errorf("unknown embedder type %q", c.Embedder.Type)
	}
	switch c.VectorStore.Type {
	case "bolt", "memory":
	default:
		return fmt.Errorf("unknown vector store type %q", c.VectorStore.Type)
	}
	switch c.Chat.Type {
	case "extractive", "openai", "compat":
	default:
		return fmt.Errorf("unknown chat type %q", c.Chat.Type)
	}
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Chunker.ChunkOverlap, c.Chunker.ChunkSize)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

func defaultIndexPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rag-index.db"
	}
	return filepath.Join(home, ".config", "rag", "index.db")
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 500
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 100
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Hashing.Dimension == 0 {
		cfg.Embedder.Hashing.Dimension = 256
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &RemoteConfig{}
	}
	if cfg.Embedder.Type == "compat" && cfg.Embedder.Compat == nil {
		cfg.Embedder.Compat = &RemoteConfig{}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "bolt"
	}
	if cfg.VectorStore.Type == "bolt" && cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = defaultIndexPath()
	}
	if cfg.Chat.Type == "" {
		cfg.Chat.Type = "extractive"
	}
	if cfg.Chat.MaxSentences == 0 {
		cfg.Chat.MaxSentences = 3
	}
	if cfg.Chat.Type == "openai" && cfg.Chat.OpenAI == nil {
		cfg.Chat.OpenAI = &RemoteConfig{}
	}
	if cfg.Chat.Type == "compat" && cfg.Chat.Compat == nil {
		cfg.Chat.Compat = &RemoteConfig{}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.Concurrency == 0 {
		cfg.Retrieval.Concurrency = 8
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
