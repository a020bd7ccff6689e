// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Corpus  CorpusConfig   `yaml:"corpus" mapstructure:"corpus"`
	Sources []SourceConfig `yaml:"sources" mapstructure:"sources"`
	Fetch   FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Log     LogConfig      `yaml:"log" mapstructure:"log"`
}

// CorpusConfig configures the output corpus and the record filter.
type CorpusConfig struct {
	OutputPath  string `yaml:"output_path" mapstructure:"output_path"`
	TargetBytes int64  `yaml:"target_bytes" mapstructure:"target_bytes"`
	MinChars    int    `yaml:"min_chars" mapstructure:"min_chars"`
	MaxChars    int    `yaml:"max_chars" mapstructure:"max_chars"`
}

// SourceConfig describes one streaming text source.
// Type is one of "huggingface", "jsonl", "csv", "xlsx".
type SourceConfig struct {
	Name     string  `yaml:"name" mapstructure:"name"`
	Type     string  `yaml:"type" mapstructure:"type"`
	Location string  `yaml:"location" mapstructure:"location"`
	Config   string  `yaml:"config,omitempty" mapstructure:"config"`
	Split    string  `yaml:"split,omitempty" mapstructure:"split"`
	Field    string  `yaml:"field" mapstructure:"field"`
	Fraction float64 `yaml:"fraction" mapstructure:"fraction"`
	Sheet    string  `yaml:"sheet,omitempty" mapstructure:"sheet"`
}

// FetchConfig configures the HTTP/FTP acquisition layer.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
	RowsBaseURL string `yaml:"rows_base_url" mapstructure:"rows_base_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultSources returns the built-in source trio: two slices of The
// Stack plus English Wikipedia, with the 30/30/40 budget split.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:     "stack-python",
			Type:     "huggingface",
			Location: "bigcode/the-stack",
			Config:   "data/python",
			Split:    "train",
			Field:    "content",
			Fraction: 0.3,
		},
		{
			Name:     "stack-javascript",
			Type:     "huggingface",
			Location: "bigcode/the-stack",
			Config:   "data/javascript",
			Split:    "train",
			Field:    "content",
			Fraction: 0.3,
		},
		{
			Name:     "wikipedia-en",
			Type:     "huggingface",
			Location: "wikimedia/wikipedia",
			Config:   "20231101.en",
			Split:    "train",
			Field:    "text",
			Fraction: 0.4,
		},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CORPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("corpus.output_path", "training_corpus.txt")
	v.SetDefault("corpus.target_bytes", int64(1_000_000_000))
	v.SetDefault("corpus.min_chars", 50)
	v.SetDefault("corpus.max_chars", 50000)
	v.SetDefault("fetch.user_agent", "corpus-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.page_size", 100)
	v.SetDefault("fetch.rows_base_url", "https://datasets-server.huggingface.co/rows")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field consistency of the loaded configuration.
func (c *Config) Validate() error {
	if c.Corpus.TargetBytes < 0 {
		return eris.Errorf("config: target_bytes must be non-negative, got %d", c.Corpus.TargetBytes)
	}
	if c.Corpus.MinChars > c.Corpus.MaxChars {
		return eris.Errorf("config: min_chars %d exceeds max_chars %d", c.Corpus.MinChars, c.Corpus.MaxChars)
	}
	var total float64
	for i, s := range c.Sources {
		if s.Name == "" {
			return eris.Errorf("config: source %d has no name", i)
		}
		if s.Field == "" {
			return eris.Errorf("config: source %q has no field", s.Name)
		}
		if s.Fraction < 0 {
			return eris.Errorf("config: source %q has negative fraction", s.Name)
		}
		total += s.Fraction
	}
	if total > 1.0+1e-9 {
		return eris.Errorf("config: source fractions sum to %.3f (must not exceed 1.0)", total)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
