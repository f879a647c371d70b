package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Inference  InferenceConfig  `mapstructure:"inference"`
	Context    ContextConfig    `mapstructure:"context"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Filter     FilterConfig     `mapstructure:"filter"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token          string        `mapstructure:"token"`
	Webhook        WebhookConfig `mapstructure:"webhook"`
	UpdateTimeout  int           `mapstructure:"update_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Port    int    `mapstructure:"port"`
}

type InferenceConfig struct {
	URL            string           `mapstructure:"url"`
	Token          string           `mapstructure:"token"`
	Timeout        time.Duration    `mapstructure:"timeout"`
	ProbeTimeout   time.Duration    `mapstructure:"probe_timeout"`
	MaxRetries     int              `mapstructure:"max_retries"`
	ColdStartDelay time.Duration    `mapstructure:"cold_start_delay"`
	RateLimitDelay time.Duration    `mapstructure:"rate_limit_delay"`
	RetryDelay     time.Duration    `mapstructure:"retry_delay"`
	HistoryWindow  int              `mapstructure:"history_window"`
	Parameters     GenerationParams `mapstructure:"parameters"`
}

// GenerationParams are forwarded verbatim to the inference endpoint.
type GenerationParams struct {
	MaxLength          int     `mapstructure:"max_length" json:"max_length"`
	MinLength          int     `mapstructure:"min_length" json:"min_length"`
	Temperature        float64 `mapstructure:"temperature" json:"temperature"`
	TopP               float64 `mapstructure:"top_p" json:"top_p"`
	RepetitionPenalty  float64 `mapstructure:"repetition_penalty" json:"repetition_penalty"`
	DoSample           bool    `mapstructure:"do_sample" json:"do_sample"`
	ReturnFullText     bool    `mapstructure:"return_full_text" json:"return_full_text"`
	NumReturnSequences int     `mapstructure:"num_return_sequences" json:"num_return_sequences"`
}

type ContextConfig struct {
	MaxLength      int           `mapstructure:"max_length"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type FilterConfig struct {
	BadWords       []string `mapstructure:"bad_words"`
	MaxMessageLen  int      `mapstructure:"max_message_len"`
	CharRunLimit   int      `mapstructure:"char_run_limit"`
	UppercaseRatio float64  `mapstructure:"uppercase_ratio"`
	WordRepeatMax  int      `mapstructure:"word_repeat_max"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Directory       string   `mapstructure:"directory"`
	Languages       []string `mapstructure:"languages"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variable overrides for secrets
	viper.BindEnv("bot.token", "BOT_TOKEN")
	viper.BindEnv("inference.url", "HF_API_URL")
	viper.BindEnv("inference.token", "HF_API_TOKEN")
	viper.BindEnv("bot.webhook.url", "WEBHOOK_URL")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Inference.Timeout == 0 {
		cfg.Inference.Timeout = 30 * time.Second
	}
	if cfg.Inference.ProbeTimeout == 0 {
		cfg.Inference.ProbeTimeout = 10 * time.Second
	}
	if cfg.Inference.MaxRetries == 0 {
		cfg.Inference.MaxRetries = 3
	}
	if cfg.Inference.ColdStartDelay == 0 {
		cfg.Inference.ColdStartDelay = 5 * time.Second
	}
	if cfg.Inference.RateLimitDelay == 0 {
		cfg.Inference.RateLimitDelay = 10 * time.Second
	}
	if cfg.Inference.RetryDelay == 0 {
		cfg.Inference.RetryDelay = 2 * time.Second
	}
	if cfg.Inference.HistoryWindow == 0 {
		cfg.Inference.HistoryWindow = 6
	}
	if cfg.Context.MaxLength == 0 {
		cfg.Context.MaxLength = 10
	}
	if cfg.Context.SessionTimeout == 0 {
		cfg.Context.SessionTimeout = time.Hour
	}
	if cfg.Context.SweepInterval == 0 {
		cfg.Context.SweepInterval = 5 * time.Minute
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
	if cfg.Cache.MaxSize == 0 {
		cfg.Cache.MaxSize = 100
	}
	if cfg.Filter.MaxMessageLen == 0 {
		cfg.Filter.MaxMessageLen = 1000
	}
	if cfg.Filter.CharRunLimit == 0 {
		cfg.Filter.CharRunLimit = 10
	}
	if cfg.Filter.UppercaseRatio == 0 {
		cfg.Filter.UppercaseRatio = 0.7
	}
	if cfg.Filter.WordRepeatMax == 0 {
		cfg.Filter.WordRepeatMax = 5
	}
	if cfg.Bot.RequestTimeout == 0 {
		cfg.Bot.RequestTimeout = 2 * time.Minute
	}
	if cfg.I18n.Directory == "" {
		cfg.I18n.Directory = "configs/i18n"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Inference.URL == "" {
		return fmt.Errorf("inference endpoint URL is required")
	}
	return nil
}
