package web

import (
	"time"

	"github.com/spf13/viper"

	"github.com/jingkaihe/skillz/pkg/utils"
)

const (
	// DefaultTimeout bounds page fetches and searches.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (compatible; skillz/1.0)"
	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize int64 = 10 << 20
)

// Config holds settings shared by the fetcher and the searcher.
type Config struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	UserAgent          string        `mapstructure:"user_agent"`
	AllowInsecureHTTP  bool          `mapstructure:"allow_insecure_http"`
	AllowedDomainsFile string        `mapstructure:"allowed_domains_file"`
	MaxBodySize        int64         `mapstructure:"max_body_size"`
	Search             SearchConfig  `mapstructure:"search"`
}

// SearchConfig controls DuckDuckGo queries.
type SearchConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Region     string `mapstructure:"region"`
	SafeSearch string `mapstructure:"safesearch"`
	MaxResults int    `mapstructure:"max_results"`
}

// SetDefaults registers the web.* defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("web.timeout", DefaultTimeout)
	v.SetDefault("web.user_agent", DefaultUserAgent)
	v.SetDefault("web.allow_insecure_http", false)
	v.SetDefault("web.allowed_domains_file", "")
	v.SetDefault("web.max_body_size", DefaultMaxBodySize)
	v.SetDefault("web.search.endpoint", DefaultSearchEndpoint)
	v.SetDefault("web.search.region", DefaultRegion)
	v.SetDefault("web.search.safesearch", DefaultSafeSearch)
	v.SetDefault("web.search.max_results", MaxResults)
}

// ConfigFromViper decodes the web.* keys from v.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := utils.DecodeSection(v, "web", &cfg); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.Search.Endpoint == "" {
		c.Search.Endpoint = DefaultSearchEndpoint
	}
	if c.Search.Region == "" {
		c.Search.Region = DefaultRegion
	}
	if c.Search.SafeSearch == "" {
		c.Search.SafeSearch = DefaultSafeSearch
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = MaxResults
	}
	return c
}
