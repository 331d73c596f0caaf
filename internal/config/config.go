package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFeatures are the audio-feature columns normalized, averaged and clustered.
var DefaultFeatures = []string{"danceability", "popularity", "speechiness", "acousticness", "instrumentalness", "liveness"}

// Global configuration structure.
type Global struct {
	// APIKey is only ever held in memory; it is never written by Save.
	APIKey string `mapstructure:"api_key" yaml:"-"`

	DatasetPath     string   `mapstructure:"dataset_path" yaml:"dataset_path"`
	GenreColumn     string   `mapstructure:"genre_column" yaml:"genre_column"`
	Features        []string `mapstructure:"features" yaml:"features"`
	Seed            int64    `mapstructure:"seed" yaml:"seed"`
	DefaultClusters int      `mapstructure:"default_clusters" yaml:"default_clusters"`
	SearchLimit     int      `mapstructure:"search_limit" yaml:"search_limit"`

	// Chat runtime
	Provider     string `mapstructure:"provider" yaml:"provider"`
	Model        string `mapstructure:"model" yaml:"model"`
	MaxTokens    int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	StopSequence string `mapstructure:"stop_sequence" yaml:"stop_sequence"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Dashboard server
	ListenAddr   string `mapstructure:"listen_addr" yaml:"listen_addr"`
	WatchDataset bool   `mapstructure:"watch_dataset" yaml:"watch_dataset"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultPath returns ~/.musicmax/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".musicmax", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.musicmax/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("MUSICMAX")
	v.AutomaticEnv()
	_ = v.BindEnv("api_key")

	v.SetDefault("dataset_path", filepath.Join("data", "dataset.csv"))
	v.SetDefault("genre_column", "track_genre")
	v.SetDefault("features", DefaultFeatures)
	v.SetDefault("seed", 42)
	v.SetDefault("default_clusters", 3)
	v.SetDefault("search_limit", 3)
	v.SetDefault("provider", "anthropic")
	v.SetDefault("model", "claude-2.1")
	v.SetDefault("max_tokens", 300)
	v.SetDefault("stop_sequence", "\n\nHuman:")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("listen_addr", "127.0.0.1:8501")
	v.SetDefault("watch_dataset", true)
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(c.Features) == 0 {
		c.Features = append([]string(nil), DefaultFeatures...)
	}
	return &c, nil
}
