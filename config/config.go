package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	setDefaults(viperConfig)
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.storage_path", "./.linkindex")
	v.SetDefault("database.kvdb_path", "snapshot.db")
	v.SetDefault("database.autosave_interval", time.Duration(0))
	v.SetDefault("search.default_page_size", 20)
	v.SetDefault("search.max_page_width", 1000)
	v.SetDefault("search.default_algorithm", "BM25(1.2,0.75)")
	v.SetDefault("tokenizer.backend", "bleve")
	v.SetDefault("tokenizer.analyzer", "linkindex")
	v.SetDefault("tokenizer.sudachi_command", "sudachi")
	v.SetDefault("tokenizer.sudachi_mode", "A")
	v.SetDefault("tokenizer.chunk_size", 2000)
	v.SetDefault("tokenizer.timeout", 10*time.Second)
	v.SetDefault("tokenizer.cache_size", 1024)
	v.SetDefault("enrichment.timeout", 5*time.Second)
	v.SetDefault("ingest.max_title_length", 100)
	v.SetDefault("ingest.max_description_length", 100)
	v.SetDefault("log.level", "info")
}

// getString prefers the environment variable over the config file key.
func (c *Config) getString(envKey string, fileKey string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(fileKey)
	}

	return value
}

func (c *Config) getDuration(envKey string, fileKey string) time.Duration {
	if c.config.IsSet(envKey) {
		return c.config.GetDuration(envKey)
	}

	return c.config.GetDuration(fileKey)
}

func (c *Config) GetPort() string {
	return c.getString("PORT", "server.port")
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return c.config.GetDuration("server.shutdown_timeout")
}

func (c *Config) GetStoragePath() string {
	return c.getString("STORAGE_PATH", "database.storage_path")
}

func (c *Config) GetKVDBPath() string {
	kvdbPath := c.getString("KVDB_PATH", "database.kvdb_path")
	if filepath.IsAbs(kvdbPath) {
		return kvdbPath
	}

	return filepath.Join(c.GetStoragePath(), kvdbPath)
}

func (c *Config) GetAutosaveInterval() time.Duration {
	return c.getDuration("AUTOSAVE_INTERVAL", "database.autosave_interval")
}

func (c *Config) GetDefaultPageSize() int {
	return c.config.GetInt("search.default_page_size")
}

func (c *Config) GetMaxPageWidth() int {
	return c.config.GetInt("search.max_page_width")
}

func (c *Config) GetDefaultAlgorithm() string {
	return c.config.GetString("search.default_algorithm")
}

func (c *Config) GetTokenizerBackend() string {
	return c.getString("TOKENIZER_BACKEND", "tokenizer.backend")
}

func (c *Config) GetTokenizerAnalyzer() string {
	return c.config.GetString("tokenizer.analyzer")
}

func (c *Config) GetSudachiCommand() string {
	return c.getString("SUDACHI_COMMAND", "tokenizer.sudachi_command")
}

func (c *Config) GetSudachiMode() string {
	return c.config.GetString("tokenizer.sudachi_mode")
}

func (c *Config) GetTokenizerChunkSize() int {
	return c.config.GetInt("tokenizer.chunk_size")
}

func (c *Config) GetTokenizerTimeout() time.Duration {
	return c.config.GetDuration("tokenizer.timeout")
}

func (c *Config) GetTokenizerCacheSize() int {
	return c.config.GetInt("tokenizer.cache_size")
}

func (c *Config) GetEnrichmentURL() string {
	return c.getString("ENRICHMENT_URL", "enrichment.url")
}

func (c *Config) GetEnrichmentTimeout() time.Duration {
	return c.config.GetDuration("enrichment.timeout")
}

func (c *Config) GetMaxTitleLength() int {
	return c.config.GetInt("ingest.max_title_length")
}

func (c *Config) GetMaxDescriptionLength() int {
	return c.config.GetInt("ingest.max_description_length")
}

func (c *Config) GetLogLevel() string {
	return c.getString("LOG_LEVEL", "log.level")
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
