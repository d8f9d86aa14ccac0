// Package config loads, defaults and validates the ircfs configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, applied by the command layer)
//  2. Environment variables (IRCFS_*), for keys present in the file
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the ircfs configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains the Prometheus metrics listener configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// IRC configures the network session the mount is bridged to
	IRC IRCConfig `mapstructure:"irc" yaml:"irc"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	// Level is the minimum log level (DEBUG, INFO, WARN, ERROR)
	Level string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR" yaml:"level"`

	// Format selects text or json output
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json" yaml:"format"`

	// Output is stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig contains the Prometheus metrics listener configuration.
// Metrics are disabled by default; the mount works identically without
// them.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ListenAddress is the host:port the /metrics endpoint binds to
	ListenAddress string `mapstructure:"listen_address" validate:"omitempty,hostname_port" yaml:"listen_address"`
}

// IRCConfig describes the network target, the identity presented to the
// server, and the session-library knobs that are forwarded verbatim.
type IRCConfig struct {
	// Nickname is required; it is the identity used for login and for
	// recognizing direct messages addressed to this client.
	Nickname string `mapstructure:"nickname" validate:"required" yaml:"nickname"`

	// Username defaults to the nickname
	Username string `mapstructure:"username" yaml:"username,omitempty"`

	// Realname defaults to the nickname
	Realname string `mapstructure:"realname" yaml:"realname,omitempty"`

	// Server is the IRC server host
	Server string `mapstructure:"server" validate:"required" yaml:"server"`

	// Port defaults to 6667, or 6697 when use_ssl is set
	Port uint16 `mapstructure:"port" yaml:"port,omitempty"`

	// UseSSL enables TLS for the connection
	UseSSL bool `mapstructure:"use_ssl" yaml:"use_ssl"`

	// Password is the server password. Prefer PasswordEnv so the
	// password never lands in a file.
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// PasswordEnv names an environment variable to read the password
	// from. Takes precedence over Password when the variable is set.
	PasswordEnv string `mapstructure:"password_env" yaml:"password_env,omitempty"`

	// Channels are joined at startup and their directories are
	// materialized before any server event arrives.
	Channels []string `mapstructure:"channels" yaml:"channels,omitempty"`

	// ChannelKeys maps channel name to join key
	ChannelKeys map[string]string `mapstructure:"channel_keys" yaml:"channel_keys,omitempty"`

	// PingTime and PingTimeout are forwarded to the session library
	PingTime    time.Duration `mapstructure:"ping_time" yaml:"ping_time,omitempty"`
	PingTimeout time.Duration `mapstructure:"ping_timeout" yaml:"ping_timeout,omitempty"`

	// BurstWindow and MaxMessagesInBurst bound outbound flooding;
	// forwarded to the session library's rate limiter
	BurstWindow        time.Duration `mapstructure:"burst_window_length" yaml:"burst_window_length,omitempty"`
	MaxMessagesInBurst int           `mapstructure:"max_messages_in_burst" validate:"omitempty,gte=1" yaml:"max_messages_in_burst,omitempty"`

	// UserInfo, Version and Source answer the corresponding CTCP
	// queries
	UserInfo string `mapstructure:"user_info" yaml:"user_info,omitempty"`
	Version  string `mapstructure:"version" yaml:"version,omitempty"`
	Source   string `mapstructure:"source" yaml:"source,omitempty"`
}

// Addr returns the host:port dial target.
func (c *IRCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

// Load reads, defaults and validates the configuration at configPath.
// A missing file yields the defaults (useful with flag/env-only setups);
// a malformed file is an error. Overrides run after unmarshalling and
// before defaulting, so CLI flags take precedence over the file.
func Load(configPath string, overrides ...func(*Config)) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if found {
		if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	for _, override := range overrides {
		override(&cfg)
	}

	ApplyDefaults(&cfg)

	if err := resolvePassword(&cfg.IRC); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when an
// explicitly named config file does not exist.
func MustLoad(configPath string, overrides ...func(*Config)) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Create one first:\n  ircfs init --config %s", configPath, configPath)
		}
	} else if DefaultConfigExists() {
		configPath = GetDefaultConfigPath()
	}
	return Load(configPath, overrides...)
}

// Validate checks the configuration against its struct tags.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// SaveConfig writes the configuration to path in YAML form. The file is
// written with owner-only permissions since it may contain a password.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPath returns $XDG_CONFIG_HOME/ircfs/config.yaml,
// falling back to ~/.config.
func GetDefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "ircfs", "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("IRCFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Dir(GetDefaultConfigPath()))
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// resolvePassword replaces the password with the contents of the
// environment variable named by password_env, when set.
func resolvePassword(cfg *IRCConfig) error {
	if cfg.PasswordEnv == "" {
		return nil
	}
	value, ok := os.LookupEnv(cfg.PasswordEnv)
	if !ok {
		return fmt.Errorf("password environment variable %q is not set", cfg.PasswordEnv)
	}
	cfg.Password = value
	return nil
}

// configDecodeHooks returns the combined decode hook for custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "90s" or "3m" into
// time.Duration values.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}
