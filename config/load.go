package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by [Load],
// e.g. MEMFS_DEFAULT_USER or MEMFS_STORE_TYPE.
const EnvPrefix = "MEMFS"

var envKeys = []string{
	"log_level",
	"default_user",
	"root_owner",
	"admin_password",
	"auth_scheme",
	"bcrypt_cost",
	"snapshot_format",
	"store.type",
}

// LoadOverride reads configPath (if not empty) and MEMFS_* environment
// variables into a ConfigOverride. Environment values win over the file.
func LoadOverride(configPath string) (*ConfigOverride, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var override ConfigOverride
	if err := v.Unmarshal(&override); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &override, nil
}

// Load builds a validated Config from defaults, the optional config file,
// the environment and finally the given overrides (e.g. command line flags),
// in increasing precedence.
func Load(configPath string, overrides ...*ConfigOverride) (*Config, error) {
	override, err := LoadOverride(configPath)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig(override)
	for _, o := range overrides {
		if o != nil {
			cfg.Merge(o)
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
