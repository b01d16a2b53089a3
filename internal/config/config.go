// Package config loads the optional YAML configuration file and the
// environment overrides that take precedence over it.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Rules struct {
		StylePath          string `yaml:"style_path"`
		ProsePath          string `yaml:"prose_path"`
		ProtectedTermsPath string `yaml:"protected_terms_path"`
	} `yaml:"rules"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`
	Vale struct {
		Binary     string `yaml:"binary"`
		ConfigPath string `yaml:"config_path"`
	} `yaml:"vale"`
	Redline struct {
		Backend       string `yaml:"backend"`
		CompareBinary string `yaml:"compare_binary"`
		Author        string `yaml:"author"`
	} `yaml:"redline"`
	History struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"history"`
	Pipeline struct {
		ChunkStrategy string `yaml:"chunk_strategy"`
		Concurrency   int    `yaml:"concurrency"`
		AutoAccept    bool   `yaml:"auto_accept"`
		FeedbackRetry bool   `yaml:"feedback_retry"`
	} `yaml:"pipeline"`
}

// LoadConfig reads the YAML file, then applies .env and process environment
// overrides. A missing config file is not an error; overrides alone can carry
// a run.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	var cfg Config

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// 3. Override with Environment Variables if present
	if apiKey := os.Getenv("REDPEN_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if provider := os.Getenv("REDPEN_LLM_PROVIDER"); provider != "" {
		cfg.LLM.Provider = provider
	}
	if model := os.Getenv("REDPEN_LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if bin := os.Getenv("REDPEN_VALE_BIN"); bin != "" {
		cfg.Vale.Binary = bin
	}
	if db := os.Getenv("REDPEN_HISTORY_DB"); db != "" {
		cfg.History.DBPath = db
	}

	return &cfg, nil
}
