package config

import (
	"maps"

	"github.com/brettbedarf/memfs/internal/util"
)

// Config contains runtime configuration values for the memfs shell.
type Config struct {
	LogLvl         util.LogLevel // Internal log level (Default info)
	DefaultUser    string        `validate:"required"`                   // User a fresh session starts as (Default "default_user")
	RootOwner      string        `validate:"required"`                   // Owner of the root directory of a fresh tree (Default DefaultUser)
	AdminPassword  string        `validate:"required"`                   // Password of the bootstrapped admin account (Default "admin123")
	AuthScheme     string        `validate:"oneof=plaintext bcrypt"`     // How credentials are stored (Default plaintext)
	BcryptCost     int           `validate:"gte=4,lte=31"`               // bcrypt work factor, used when AuthScheme is bcrypt (Default 10)
	SnapshotFormat string        `validate:"oneof=json yaml"`            // Snapshot encoding (Default json)
	Store          StoreConfig
}

// StoreConfig selects the snapshot store backend. Options are decoded by
// the backend itself.
type StoreConfig struct {
	Type    string         `validate:"oneof=file badger s3 memory"`
	Options map[string]any // Backend specific settings such as path, bucket, key
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a verbosity between 1 (error) and 5 (trace), not a util.LogLevel
	LogLvl         *int           `yaml:"log_level,omitempty" json:"log_level,omitempty" mapstructure:"log_level"`
	DefaultUser    *string        `yaml:"default_user,omitempty" json:"default_user,omitempty" mapstructure:"default_user"`
	RootOwner      *string        `yaml:"root_owner,omitempty" json:"root_owner,omitempty" mapstructure:"root_owner"`
	AdminPassword  *string        `yaml:"admin_password,omitempty" json:"admin_password,omitempty" mapstructure:"admin_password"`
	AuthScheme     *string        `yaml:"auth_scheme,omitempty" json:"auth_scheme,omitempty" mapstructure:"auth_scheme"`
	BcryptCost     *int           `yaml:"bcrypt_cost,omitempty" json:"bcrypt_cost,omitempty" mapstructure:"bcrypt_cost"`
	SnapshotFormat *string        `yaml:"snapshot_format,omitempty" json:"snapshot_format,omitempty" mapstructure:"snapshot_format"`
	Store          *StoreOverride `yaml:"store,omitempty" json:"store,omitempty" mapstructure:"store"`
}

type StoreOverride struct {
	Type    *string        `yaml:"type,omitempty" json:"type,omitempty" mapstructure:"type"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty" mapstructure:"options"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLvl:         DefaultLogLvl,
		DefaultUser:    DefaultUser,
		RootOwner:      DefaultUser,
		AdminPassword:  DefaultAdminPassword,
		AuthScheme:     DefaultAuthScheme,
		BcryptCost:     DefaultBcryptCost,
		SnapshotFormat: DefaultSnapshotFormat,
		Store: StoreConfig{
			Type:    DefaultStoreType,
			Options: map[string]any{"path": DefaultStatePath},
		},
	}
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
// A DefaultUser override also moves RootOwner unless RootOwner is set too.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLogLvl(*override.LogLvl)
	}
	if override.DefaultUser != nil {
		if c.RootOwner == c.DefaultUser {
			c.RootOwner = *override.DefaultUser
		}
		c.DefaultUser = *override.DefaultUser
	}
	if override.RootOwner != nil {
		c.RootOwner = *override.RootOwner
	}
	if override.AdminPassword != nil {
		c.AdminPassword = *override.AdminPassword
	}
	if override.AuthScheme != nil {
		c.AuthScheme = *override.AuthScheme
	}
	if override.BcryptCost != nil {
		c.BcryptCost = *override.BcryptCost
	}
	if override.SnapshotFormat != nil {
		c.SnapshotFormat = *override.SnapshotFormat
	}
	if s := override.Store; s != nil {
		if s.Type != nil && *s.Type != c.Store.Type {
			c.Store.Type = *s.Type
			// options of the previous backend no longer apply
			c.Store.Options = map[string]any{}
		}
		if c.Store.Options == nil {
			c.Store.Options = map[string]any{}
		}
		maps.Copy(c.Store.Options, s.Options)
	}
}
