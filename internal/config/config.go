// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures every knob the scrape pipeline reads. All values come
// through Viper so they can be set from a config file, environment
// variables (BOLETIN_ prefix), or defaults.
type Config struct {
	Gazette    GazetteConfig    `mapstructure:"gazette"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Artifact   ArtifactConfig   `mapstructure:"artifact"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// GazetteConfig points the fetcher at the bulletin site.
type GazetteConfig struct {
	HomeURL    string `mapstructure:"home_url"`
	NormasURL  string `mapstructure:"normas_url"`
	UserAgent  string `mapstructure:"user_agent"`
	MaxNotices int    `mapstructure:"max_notices"`
}

// HTTPConfig configures fetch timeouts and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// Timeout converts the HTTP timeout into a duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffInitial is the first retry delay.
func (c HTTPConfig) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMs) * time.Millisecond
}

// BackoffMax caps the retry delay.
func (c HTTPConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// SummarizerConfig configures the AI summarization endpoint.
type SummarizerConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	CallDelayMs    int    `mapstructure:"call_delay_ms"`
	MaxInputChars  int    `mapstructure:"max_input_chars"`
}

// CallDelay is the minimum gap between consecutive provider calls.
func (c SummarizerConfig) CallDelay() time.Duration {
	return time.Duration(c.CallDelayMs) * time.Millisecond
}

// Timeout converts the provider timeout into a duration.
func (c SummarizerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ArtifactConfig sets where the dataset JSON lives.
type ArtifactConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig controls the node-exporter textfile export. Empty path
// disables it.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. A .env file next to the
// binary is folded into the environment first so local runs can keep
// the API key out of the shell history.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BOLETIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gazette.home_url", "https://boletinoficial.gba.gob.ar")
	v.SetDefault("gazette.normas_url", "https://normas.gba.gob.ar")
	v.SetDefault("gazette.user_agent", "boletin-crawler/1.0 (+https://github.com/transparencia-pba/boletin-crawler)")
	v.SetDefault("gazette.max_notices", 50)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("summarizer.endpoint", "")
	v.SetDefault("summarizer.model", "gpt-oss-120b")
	v.SetDefault("summarizer.timeout_seconds", 60)
	v.SetDefault("summarizer.call_delay_ms", 500)
	v.SetDefault("summarizer.max_input_chars", 600)
	v.SetDefault("artifact.path", "docs/data.json")
	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Gazette.HomeURL == "" {
		return fmt.Errorf("gazette.home_url must be set")
	}
	if c.Gazette.NormasURL == "" {
		return fmt.Errorf("gazette.normas_url must be set")
	}
	if c.Gazette.UserAgent == "" {
		return fmt.Errorf("gazette.user_agent must be set")
	}
	if c.Gazette.MaxNotices <= 0 {
		return fmt.Errorf("gazette.max_notices must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffInitialMs <= 0 {
		return fmt.Errorf("http.backoff_initial_ms must be > 0")
	}
	if c.HTTP.BackoffMaxMs < c.HTTP.BackoffInitialMs {
		return fmt.Errorf("http.backoff_max_ms must be >= http.backoff_initial_ms")
	}
	if c.Summarizer.TimeoutSeconds <= 0 {
		return fmt.Errorf("summarizer.timeout_seconds must be > 0")
	}
	if c.Summarizer.CallDelayMs < 0 {
		return fmt.Errorf("summarizer.call_delay_ms must be >= 0")
	}
	if c.Summarizer.MaxInputChars <= 0 {
		return fmt.Errorf("summarizer.max_input_chars must be > 0")
	}
	if c.Artifact.Path == "" {
		return fmt.Errorf("artifact.path must be set")
	}
	return nil
}
