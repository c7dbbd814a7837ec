package utils

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sectionConfig struct {
	Name    string        `mapstructure:"name"`
	Timeout time.Duration `mapstructure:"timeout"`
	Nested  struct {
		Count int `mapstructure:"count"`
	} `mapstructure:"nested"`
}

func TestDecodeSection(t *testing.T) {
	v := viper.New()
	v.SetDefault("svc.name", "default")
	v.SetDefault("svc.timeout", 2*time.Second)
	v.Set("svc.nested.count", "7")

	var cfg sectionConfig
	require.NoError(t, DecodeSection(v, "svc", &cfg))
	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 7, cfg.Nested.Count)
}

func TestDecodeSectionBoundEnv(t *testing.T) {
	v := viper.New()
	require.NoError(t, v.BindEnv("svc.name", "SVC_NAME"))
	t.Setenv("SVC_NAME", "from-env")

	var cfg sectionConfig
	require.NoError(t, DecodeSection(v, "svc", &cfg))
	assert.Equal(t, "from-env", cfg.Name)
}

func TestDecodeSectionMissing(t *testing.T) {
	cfg := sectionConfig{Name: "unchanged"}
	require.NoError(t, DecodeSection(viper.New(), "svc", &cfg))
	assert.Equal(t, "unchanged", cfg.Name)
}

func TestDecodeSectionInvalidDuration(t *testing.T) {
	v := viper.New()
	v.Set("svc.timeout", "later")

	var cfg sectionConfig
	assert.Error(t, DecodeSection(v, "svc", &cfg))
}
