package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "GOPHAUTH_CLI_"

// Config holds runtime settings for the authctl CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the account service.
//   - RequestTimeout: deadline applied to every call.
//   - SessionDB: SQLite file that keeps the login state between runs.
type Config struct {
	ServerEndpointAddr string        `koanf:"server_endpoint_addr"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	SessionDB          string        `koanf:"session_db"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 5 * time.Second
	c.SessionDB = "authctl.db"
}

// LoadConfig builds a Config from defaults, the environment and os.Args.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.ServerEndpointAddr == "" {
		return nil, errors.New("server endpoint address must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("request timeout must be positive")
	}
	return cfg, nil
}

func parseEnv(cfg *Config) error {
	k := koanf.New(".")
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(k, v string) (string, any) {
		return strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), v
	}), nil); err != nil {
		return fmt.Errorf("load env variables: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
