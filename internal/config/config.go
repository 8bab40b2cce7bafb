package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Store    StoreConfig    `mapstructure:"store"`
	Generate GenerateConfig `mapstructure:"generate"`
}

// PipelineConfig tunes the extraction worker pool
type PipelineConfig struct {
	Workers     int  `mapstructure:"workers"`      // 0 means GOMAXPROCS
	FileTimeout int  `mapstructure:"file_timeout"` // seconds, 0 disables
	Validate    bool `mapstructure:"validate"`
}

// LoaderConfig controls repository scanning
type LoaderConfig struct {
	Languages   []string `mapstructure:"languages"`
	MaxFileSize int64    `mapstructure:"max_file_size"` // bytes, 0 means no cap
}

// StoreConfig selects and locates the block store
type StoreConfig struct {
	Type string `mapstructure:"type"` // sqlite, memory
	Path string `mapstructure:"path"`
}

// GenerateConfig controls source regeneration
type GenerateConfig struct {
	GroupImports bool `mapstructure:"group_imports"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Workers:     0,
			FileTimeout: 30,
			Validate:    true,
		},
		Loader: LoaderConfig{
			Languages:   []string{"python", "javascript", "typescript", "tsx", "rust"},
			MaxFileSize: 2 << 20,
		},
		Store: StoreConfig{
			Type: "sqlite",
			Path: "srcmirror.db",
		},
		Generate: GenerateConfig{
			GroupImports: false,
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".srcmirror"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("srcmirror")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SRCMIRROR")
	viper.AutomaticEnv()

	viper.BindEnv("pipeline.workers", "SRCMIRROR_WORKERS")
	viper.BindEnv("pipeline.file_timeout", "SRCMIRROR_FILE_TIMEOUT")
	viper.BindEnv("pipeline.validate", "SRCMIRROR_VALIDATE")
	viper.BindEnv("loader.max_file_size", "SRCMIRROR_MAX_FILE_SIZE")
	viper.BindEnv("store.type", "SRCMIRROR_STORE_TYPE")
	viper.BindEnv("store.path", "SRCMIRROR_STORE_PATH")
	viper.BindEnv("generate.group_imports", "SRCMIRROR_GROUP_IMPORTS")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
