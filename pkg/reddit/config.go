package reddit

import (
	"time"

	"github.com/spf13/viper"

	"github.com/jingkaihe/skillz/pkg/utils"
)

const (
	// DefaultBaseURL is the authenticated Reddit API host.
	DefaultBaseURL = "https://oauth.reddit.com"
	// DefaultTokenURL issues application-only access tokens.
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	// DefaultTimeout bounds every HTTP request made by the client.
	DefaultTimeout = 30 * time.Second
)

// RetryConfig controls how transient failures are retried.
type RetryConfig struct {
	Attempts     int    `mapstructure:"attempts" json:"attempts"`
	InitialDelay int    `mapstructure:"initial_delay" json:"initial_delay"` // milliseconds
	MaxDelay     int    `mapstructure:"max_delay" json:"max_delay"`         // milliseconds
	BackoffType  string `mapstructure:"backoff_type" json:"backoff_type"`   // "fixed" or "exponential"
}

// DefaultRetryConfig is used when no retry settings are configured.
var DefaultRetryConfig = RetryConfig{
	Attempts:     3,
	InitialDelay: 1000,
	MaxDelay:     10000,
	BackoffType:  "exponential",
}

// Config holds credentials and endpoints for the Reddit client.
type Config struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	UserAgent    string        `mapstructure:"user_agent"`
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retry        RetryConfig   `mapstructure:"retry"`
}

// SetDefaults registers the reddit.* defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("reddit.base_url", DefaultBaseURL)
	v.SetDefault("reddit.token_url", DefaultTokenURL)
	v.SetDefault("reddit.timeout", DefaultTimeout)
	v.SetDefault("reddit.retry.attempts", DefaultRetryConfig.Attempts)
	v.SetDefault("reddit.retry.initial_delay", DefaultRetryConfig.InitialDelay)
	v.SetDefault("reddit.retry.max_delay", DefaultRetryConfig.MaxDelay)
	v.SetDefault("reddit.retry.backoff_type", DefaultRetryConfig.BackoffType)

	_ = v.BindEnv("reddit.client_id", "REDDIT_CLIENT_ID")
	_ = v.BindEnv("reddit.client_secret", "REDDIT_CLIENT_SECRET")
	_ = v.BindEnv("reddit.user_agent", "REDDIT_USER_AGENT")
}

// ConfigFromViper decodes the reddit.* keys from v.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := utils.DecodeSection(v, "reddit", &cfg); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retry.Attempts <= 0 {
		c.Retry = DefaultRetryConfig
	}
	return c
}
