package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"reddigest/pkg/digest"
)

// Config is the root configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Reddit     RedditConfig     `yaml:"reddit"`
	Fetch      FetchConfig      `yaml:"fetch"`
	TimeWindow TimeWindowConfig `yaml:"time_window"`
	Scoring    digest.Weights   `yaml:"scoring"`
	Formatting FormattingConfig `yaml:"formatting"`
	Digest     DigestConfig     `yaml:"digest"`
	LLM        LLMConfig        `yaml:"llm"`
	Server     ServerConfig     `yaml:"server"`
	Output     OutputConfig     `yaml:"output"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures the periodic digest run.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// RedditConfig holds API credentials and the monitored subreddits.
type RedditConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	UserAgent    string   `yaml:"user_agent"`
	Subreddits   []string `yaml:"subreddits"`
}

// FetchConfig bounds what the fetcher pulls per run.
type FetchConfig struct {
	MaxPostsPerSubreddit int    `yaml:"max_posts_per_subreddit"`
	MaxCommentsPerPost   int    `yaml:"max_comments_per_post"`
	MinScore             int    `yaml:"min_score"`
	RateLimitDelay       string `yaml:"rate_limit_delay"`
}

// ParseRateLimitDelay returns the delay between API calls as time.Duration.
func (f FetchConfig) ParseRateLimitDelay() time.Duration {
	d, err := time.ParseDuration(f.RateLimitDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// TimeWindowConfig sets the default fetch window.
type TimeWindowConfig struct {
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
	DefaultDays int    `yaml:"default_days"`
}

// FormattingConfig caps how much text each selected post carries downstream.
type FormattingConfig struct {
	MaxSelftextLength    int `yaml:"max_selftext_length"`
	MaxCommentBodyLength int `yaml:"max_comment_body_length"`
	MaxTopComments       int `yaml:"max_top_comments"`
}

// DigestConfig configures selection.
type DigestConfig struct {
	MaxPosts int `yaml:"max_posts"`
}

// LLMConfig configures the external summarization consumer.
type LLMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"` // "openai" or "anthropic"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"` // custom endpoint (optional)
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// OutputConfig configures where run artifacts are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns a Config with every fallback value enumerated in one place.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./reddigest.db"},
		Schedule: ScheduleConfig{
			Enabled: true,
			Cron:    "0 8 * * *",
		},
		Reddit: RedditConfig{
			UserAgent: "reddigest/1.0",
			Subreddits: []string{
				"MachineLearning", "LocalLLaMA", "ChatGPT", "OpenAI",
			},
		},
		Fetch: FetchConfig{
			MaxPostsPerSubreddit: 50,
			MaxCommentsPerPost:   20,
			MinScore:             5,
			RateLimitDelay:       "2s",
		},
		TimeWindow: TimeWindowConfig{DefaultDays: 7},
		Scoring:    digest.DefaultWeights(),
		Formatting: FormattingConfig{
			MaxSelftextLength:    500,
			MaxCommentBodyLength: 300,
			MaxTopComments:       5,
		},
		Digest: DigestConfig{MaxPosts: 50},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Server: ServerConfig{Port: 8080},
		Output: OutputConfig{Dir: "./output"},
	}
}

// Load reads configuration from a YAML file, applies env var overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SelectorOptions maps the configuration onto the scoring value object.
func (c *Config) SelectorOptions() digest.Options {
	return digest.Options{
		Weights:        c.Scoring,
		MaxPosts:       c.Digest.MaxPosts,
		MaxSelftext:    c.Formatting.MaxSelftextLength,
		MaxCommentBody: c.Formatting.MaxCommentBodyLength,
		TopComments:    c.Formatting.MaxTopComments,
	}
}

// Validate fails fast on configuration defects that would invalidate an
// entire run.
func (c *Config) Validate() error {
	if err := c.SelectorOptions().Validate(); err != nil {
		return err
	}
	if c.Fetch.MaxPostsPerSubreddit < 0 {
		return fmt.Errorf("fetch max posts must not be negative, got %d", c.Fetch.MaxPostsPerSubreddit)
	}
	if c.Fetch.MaxCommentsPerPost < 0 {
		return fmt.Errorf("fetch max comments must not be negative, got %d", c.Fetch.MaxCommentsPerPost)
	}
	if c.TimeWindow.DefaultDays < 0 {
		return fmt.Errorf("default window days must not be negative, got %d", c.TimeWindow.DefaultDays)
	}
	if len(c.Reddit.Subreddits) == 0 {
		return fmt.Errorf("at least one subreddit must be configured")
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REDDIGEST_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REDDIGEST_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Reddit.ClientSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
		cfg.LLM.Enabled = true
		cfg.LLM.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
		cfg.LLM.Enabled = true
		cfg.LLM.Provider = "anthropic"
	}
}
