package utils

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DecodeSection decodes the settings under key into out using the
// mapstructure tags on out. Environment overrides and defaults registered on
// v are included; durations may be given as strings such as "30s".
func DecodeSection(v *viper.Viper, key string, out any) error {
	section, _ := v.AllSettings()[key].(map[string]any)
	if section == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create %s config decoder", key)
	}

	if err := decoder.Decode(section); err != nil {
		return errors.Wrapf(err, "failed to decode %s configuration", key)
	}
	return nil
}
