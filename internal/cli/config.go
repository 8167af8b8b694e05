package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/formprefill/internal/paths"
	"github.com/mesh-intelligence/formprefill/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// envPrefix prefixes environment overrides: FORMPREFILL_PREFIX,
	// FORMPREFILL_REDIS_ADDR, ...
	envPrefix = "FORMPREFILL"
)

// configHeader is written above the defaults in a new config.yaml.
const configHeader = `# formprefill configuration
# Every key can be overridden with a FORMPREFILL_<KEY> environment variable
# (nested keys joined with "_", e.g. FORMPREFILL_REDIS_ADDR).

`

// cliDefaults returns the configuration the CLI starts from. Unlike a page,
// a command line run keeps nothing in a fresh session, so local storage is
// included.
func cliDefaults() types.Config {
	cfg := types.DefaultConfig()
	cfg.Stores = []string{types.StoreSession, types.StoreLocal}
	return cfg
}

// loadConfig reads config.yaml from configDir using Viper, writing a
// default file on first run. A missing config.yaml is not an error.
func loadConfig(configDir string) (types.Config, error) {
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return types.Config{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v, cliDefaults())
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides are seen by
// Unmarshal.
func setDefaults(v *viper.Viper, cfg types.Config) {
	v.SetDefault("prefix", cfg.Prefix)
	v.SetDefault("string_prefix", cfg.StringPrefix)
	v.SetDefault("list_prefix", cfg.ListPrefix)
	v.SetDefault("stores", cfg.Stores)
	v.SetDefault("cookie_domain", cfg.CookieDomain)
	v.SetDefault("cookie_max_age", cfg.CookieMaxAge)
	v.SetDefault("cookie_secure", cfg.CookieSecure)
	v.SetDefault("exclude", cfg.Exclude)
	v.SetDefault("include", cfg.Include)
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("session_id", cfg.SessionID)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.ttl", cfg.Redis.TTL)
}

// ensureDefaultConfigFile creates the config directory and a default
// config.yaml if the file does not exist.
func ensureDefaultConfigFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(configDir, paths.ConfigFileName)

	_, err := os.Stat(path)
	if err == nil {
		// File already exists.
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cliDefaults()); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// settings resolves directories and configuration for a command. Flags win
// over config.yaml, which wins over the environment defaults.
func (a *app) settings() (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return types.Config{}, sysError("resolve config dir: %v", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, sysError("%v", err)
	}
	cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return types.Config{}, sysError("resolve data dir: %v", err)
	}
	if a.flags.session != "" {
		cfg.SessionID = a.flags.session
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, userError("invalid configuration: %v", err)
	}
	return cfg, nil
}
