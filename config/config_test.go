package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/memfs/internal/util"
)

// TestNewConfig_WithNilOverride tests that NewConfig creates a config with all default values
// when no override is provided.
func TestNewConfig_WithNilOverride(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(nil)

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values when no config provided")
	assert.NoError(t, Validate(cfg), "defaults must validate")
}

func TestNewConfig_WithAllOverride(t *testing.T) {
	t.Parallel()

	override := createOverride()
	cfg := NewConfig(override)

	expCfg := &Config{
		LogLvl:         util.TraceLevel,
		DefaultUser:    "alice",
		RootOwner:      "root",
		AdminPassword:  "s3cret",
		AuthScheme:     "bcrypt",
		BcryptCost:     4,
		SnapshotFormat: "yaml",
		Store: StoreConfig{
			Type:    "badger",
			Options: map[string]any{"path": "/tmp/db", "key": "k"},
		},
	}
	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields")
}

func TestConfig_Merge_LogLvlConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		verboseValue  int
		expectedLevel util.LogLevel
	}{
		{"verbose_1_error", 1, util.ErrorLevel},
		{"verbose_2_warn", 2, util.WarnLevel},
		{"verbose_3_info", 3, util.InfoLevel},
		{"verbose_4_debug", 4, util.DebugLevel},
		{"verbose_5_trace", 5, util.TraceLevel},
		{"verbose_0_clamped_to_1", 0, util.ErrorLevel},     // clamped to 1
		{"verbose_100_clamped_to_5", 100, util.TraceLevel}, // clamped to 5
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			override := &ConfigOverride{
				LogLvl: &tt.verboseValue,
			}

			cfg := NewConfig(override)

			assert.Equal(t, tt.expectedLevel, cfg.LogLvl,
				"CLI verbose %d should map to util.LogLevel %v", tt.verboseValue, tt.expectedLevel)
		})
	}
}

func TestConfig_Merge_NilOverrideVals(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{})

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values for nil override fields")
}

func TestConfig_Merge_PartialOverride(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{
		DefaultUser: util.Pointer("alice"),
		Store:       &StoreOverride{Options: map[string]any{"path": "state.yaml"}},
	})

	expCfg := createDefaultCfg()
	expCfg.DefaultUser = "alice"
	expCfg.RootOwner = "alice" // follows the default user
	expCfg.Store.Options["path"] = "state.yaml"

	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields and leave rest default")
}

func TestConfig_Merge_StoreTypeResetsOptions(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{Store: &StoreOverride{Type: util.Pointer("memory")}})

	assert.Equal(t, StoreConfig{Type: "memory", Options: map[string]any{}}, cfg.Store)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty default user", mutate: func(c *Config) { c.DefaultUser = "" }, wantErr: "DefaultUser"},
		{name: "empty admin password", mutate: func(c *Config) { c.AdminPassword = "" }, wantErr: "AdminPassword"},
		{name: "unknown auth scheme", mutate: func(c *Config) { c.AuthScheme = "md5" }, wantErr: "oneof"},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.BcryptCost = 2 }, wantErr: "BcryptCost"},
		{name: "unknown snapshot format", mutate: func(c *Config) { c.SnapshotFormat = "xml" }, wantErr: "SnapshotFormat"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Type = "ftp" }, wantErr: "Store.Type"},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Store = StoreConfig{Type: "s3", Options: map[string]any{"region": "x"}} },
			wantErr: "bucket",
		},
		{
			name:   "s3 with bucket",
			mutate: func(c *Config) { c.Store = StoreConfig{Type: "s3", Options: map[string]any{"bucket": "b"}} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadOverride_FileFormats(t *testing.T) {
	t.Parallel()

	type tc struct {
		ext   string
		build func() (*ConfigOverride, []byte)
	}

	cases := []tc{
		{
			ext: ".yaml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".yml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".json",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := json.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
	}

	for _, c := range cases {
		name := "valid" + c.ext
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			override, data := c.build()
			dir := t.TempDir()
			path := filepath.Join(dir, "override"+c.ext)
			require.NoError(t, os.WriteFile(path, data, 0o600))

			loaded, err := LoadOverride(path)

			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, NewConfig(override), NewConfig(loaded))
		})
	}
}

// TestLoadOverride_NonExistentFile tests that an explicitly named config
// file must exist.
func TestLoadOverride_NonExistentFile(t *testing.T) {
	t.Parallel()

	_, err := LoadOverride(filepath.Join(t.TempDir(), "does_not_exist.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// TestLoadOverride_UnsupportedExtension tests error handling
// for file extensions viper cannot parse.
func TestLoadOverride_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.txt")
	require.NoError(t, os.WriteFile(path, []byte("default_user: x"), 0o600))

	_, err := LoadOverride(path)
	require.Error(t, err)
}

// Load reads the environment, so these tests do not run in parallel.
func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memfs.yaml")
	data := []byte(`
default_user: alice
snapshot_format: yaml
log_level: 4
store:
  type: badger
  options:
    path: /tmp/memfs-db
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("MEMFS_ADMIN_PASSWORD", "from-env")
	t.Setenv("MEMFS_DEFAULT_USER", "carol")

	cfg, err := Load(path, &ConfigOverride{SnapshotFormat: util.Pointer("json")})
	require.NoError(t, err)

	assert.Equal(t, "carol", cfg.DefaultUser, "env must win over file")
	assert.Equal(t, "carol", cfg.RootOwner)
	assert.Equal(t, "from-env", cfg.AdminPassword)
	assert.Equal(t, "json", cfg.SnapshotFormat, "explicit override must win over file")
	assert.Equal(t, util.DebugLevel, cfg.LogLvl)
	assert.Equal(t, "badger", cfg.Store.Type)
	assert.Equal(t, "/tmp/memfs-db", cfg.Store.Options["path"])
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, createDefaultCfg(), cfg)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MEMFS_AUTH_SCHEME", "rot13")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func createDefaultCfg() *Config {
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

// createOverride makes a ConfigOverride with all non-default values
func createOverride() *ConfigOverride {
	return &ConfigOverride{
		LogLvl:         util.Pointer(TraceVerbose),
		DefaultUser:    util.Pointer("alice"),
		RootOwner:      util.Pointer("root"),
		AdminPassword:  util.Pointer("s3cret"),
		AuthScheme:     util.Pointer("bcrypt"),
		BcryptCost:     util.Pointer(4),
		SnapshotFormat: util.Pointer("yaml"),
		Store: &StoreOverride{
			Type:    util.Pointer("badger"),
			Options: map[string]any{"path": "/tmp/db", "key": "k"},
		},
	}
}
