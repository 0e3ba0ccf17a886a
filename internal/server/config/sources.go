package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read into Config.
// Nested keys use a double underscore: GOPHAUTH_PASSWORD_POLICY__MIN_LENGTH.
const EnvPrefix = "GOPHAUTH_"

// envKey maps GOPHAUTH_ARGON2__MEMORY_KIB to argon2.memory_kib.
func envKey(k string) string {
	k = strings.TrimPrefix(k, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(k), "__", ".")
}

// parseSources overlays the YAML file at path (if any) and the environment
// onto config. Keys absent from both leave the existing values untouched.
func parseSources(config *Config, path string) error {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(k, v string) (string, any) {
		return envKey(k), v
	}), nil); err != nil {
		return fmt.Errorf("load env variables: %w", err)
	}

	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           config,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}
