// Package config provides configuration management for Dot.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/robinstudios/dot/internal/common/logger"
)

// Config holds all configuration sections for Dot.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Models     ModelsConfig     `mapstructure:"models"`
	Generation GenerationConfig `mapstructure:"generation"`
	Export     ExportConfig     `mapstructure:"export"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// DatabaseConfig holds export job store configuration.
// Driver "memory" keeps jobs in process; "sqlite" and "postgres" persist them.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"` // sqlite file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
	SSLMode  string `mapstructure:"sslMode"`
	MaxConns int    `mapstructure:"maxConns"`
	MinConns int    `mapstructure:"minConns"`
}

// NATSConfig holds NATS messaging configuration.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// ModelsConfig holds credentials and limits for the model invocation service.
type ModelsConfig struct {
	OpenAI       OpenAIConfig    `mapstructure:"openai"`
	Anthropic    AnthropicConfig `mapstructure:"anthropic"`
	DefaultModel string          `mapstructure:"defaultModel"`
	StageTimeout int             `mapstructure:"stageTimeout"` // in seconds
	MaxTokens    int             `mapstructure:"maxTokens"`
}

// OpenAIConfig holds OpenAI client settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"apiKey"`
	BaseURL string `mapstructure:"baseUrl"`
}

// AnthropicConfig holds Anthropic client settings.
type AnthropicConfig struct {
	APIKey  string `mapstructure:"apiKey"`
	BaseURL string `mapstructure:"baseUrl"`
}

// GenerationConfig controls candidate fan-out.
type GenerationConfig struct {
	Candidates  int `mapstructure:"candidates"`
	Concurrency int `mapstructure:"concurrency"`
}

// ExportConfig controls the export job engine.
type ExportConfig struct {
	Workers           int `mapstructure:"workers"`
	MaxConcurrentJobs int `mapstructure:"maxConcurrentJobs"`
	RetainJobs        int `mapstructure:"retainJobs"`
}

// CatalogConfig points at the agent/pack catalog.
// An empty path uses the built-in catalog.
type CatalogConfig struct {
	Path           string   `mapstructure:"path"`
	InstalledPacks []string `mapstructure:"installedPacks"`
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// StageTimeoutDuration returns the per-invocation model timeout.
func (m *ModelsConfig) StageTimeoutDuration() time.Duration {
	return time.Duration(m.StageTimeout) * time.Second
}

// ToLoggerConfig converts the logging section to the logger package form.
func (l LoggingConfig) ToLoggerConfig() logger.LoggingConfig {
	return logger.LoggingConfig{
		Level:      l.Level,
		Format:     l.Format,
		OutputPath: l.OutputPath,
	}
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)

	// Database defaults - memory keeps export jobs in process
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.path", "./dot.db")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dot")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbName", "dot")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.minConns", 1)

	// NATS defaults - empty URL means use in-memory event bus
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "dot")
	v.SetDefault("nats.maxReconnects", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logger.DetectFormat())
	v.SetDefault("logging.outputPath", "stdout")

	// Model defaults
	v.SetDefault("models.openai.apiKey", "")
	v.SetDefault("models.openai.baseUrl", "")
	v.SetDefault("models.anthropic.apiKey", "")
	v.SetDefault("models.anthropic.baseUrl", "")
	v.SetDefault("models.defaultModel", "gpt-4o")
	v.SetDefault("models.stageTimeout", 60)
	v.SetDefault("models.maxTokens", 4096)

	// Generation defaults
	v.SetDefault("generation.candidates", 3)
	v.SetDefault("generation.concurrency", 3)

	// Export defaults
	v.SetDefault("export.workers", 4)
	v.SetDefault("export.maxConcurrentJobs", 2)
	v.SetDefault("export.retainJobs", 256)

	// Catalog defaults
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.installedPacks", []string{})
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix DOT_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory or /etc/dot/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("DOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider keys are usually exported under their vendor names.
	_ = v.BindEnv("models.openai.apiKey", "DOT_MODELS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("models.openai.baseUrl", "DOT_MODELS_OPENAI_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("models.anthropic.apiKey", "DOT_MODELS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("models.defaultModel", "DOT_MODELS_DEFAULT_MODEL")
	_ = v.BindEnv("models.stageTimeout", "DOT_MODELS_STAGE_TIMEOUT")
	_ = v.BindEnv("export.maxConcurrentJobs", "DOT_EXPORT_MAX_CONCURRENT_JOBS")
	_ = v.BindEnv("export.retainJobs", "DOT_EXPORT_RETAIN_JOBS")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/dot/")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	switch cfg.Database.Driver {
	case "memory":
	case "sqlite":
		if cfg.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Database.Host == "" {
			errs = append(errs, "database.host is required for the postgres driver")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errs = append(errs, "database.port must be between 1 and 65535")
		}
		if cfg.Database.DBName == "" {
			errs = append(errs, "database.dbName is required for the postgres driver")
		}
	default:
		errs = append(errs, "database.driver must be one of: memory, sqlite, postgres")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if cfg.Models.StageTimeout <= 0 {
		errs = append(errs, "models.stageTimeout must be positive")
	}
	if cfg.Models.MaxTokens <= 0 {
		errs = append(errs, "models.maxTokens must be positive")
	}
	if cfg.Generation.Candidates <= 0 {
		errs = append(errs, "generation.candidates must be positive")
	}
	if cfg.Generation.Concurrency <= 0 {
		errs = append(errs, "generation.concurrency must be positive")
	}
	if cfg.Export.Workers <= 0 {
		errs = append(errs, "export.workers must be positive")
	}
	if cfg.Export.MaxConcurrentJobs <= 0 {
		errs = append(errs, "export.maxConcurrentJobs must be positive")
	}
	if cfg.Export.RetainJobs <= 0 {
		errs = append(errs, "export.retainJobs must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}
