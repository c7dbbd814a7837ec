package ingest

import (
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillz/pkg/utils"
)

// DefaultMaxFileSize caps the size of a single ingested file.
const DefaultMaxFileSize int64 = 5 << 20

// Config holds the ingest.* settings.
type Config struct {
	MaxFileSize    int64  `mapstructure:"max_file_size"`
	ChunkDelimiter string `mapstructure:"chunk_delimiter"`
	LearnIgnores   bool   `mapstructure:"learn_ignores"`
}

// SetDefaults registers the ingest.* defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ingest.max_file_size", DefaultMaxFileSize)
	v.SetDefault("ingest.chunk_delimiter", DefaultChunkDelimiter)
	v.SetDefault("ingest.learn_ignores", true)
}

// ConfigFromViper decodes the ingest.* keys from v. Keys that were never
// registered keep the package defaults.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	cfg := Config{MaxFileSize: DefaultMaxFileSize, ChunkDelimiter: DefaultChunkDelimiter, LearnIgnores: true}
	if err := utils.DecodeSection(v, "ingest", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Options converts the config into walk options. A non-positive
// MaxFileSize disables the limit.
func (c Config) Options() []Option {
	opts := []Option{WithLearnIgnores(c.LearnIgnores)}
	if c.MaxFileSize > 0 {
		opts = append(opts, WithMaxFileSize(c.MaxFileSize))
	}
	if c.ChunkDelimiter != "" {
		opts = append(opts, WithChunkDelimiter(c.ChunkDelimiter))
	}
	return opts
}
