package config

import (
	"strings"
	"time"
)

// Default ports for plaintext and TLS connections.
const (
	defaultPort    = 6667
	defaultTLSPort = 6697
)

// GetDefaultConfig returns a configuration with every default applied
// and placeholder connection values, used by `ircfs init`.
func GetDefaultConfig() *Config {
	cfg := &Config{
		IRC: IRCConfig{
			Nickname: "mynick",
			Server:   "irc.libera.chat",
			UseSSL:   true,
			Channels: []string{"#ircfs"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyIRCDefaults(&cfg.IRC)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = "localhost:9090"
	}
}

func applyIRCDefaults(cfg *IRCConfig) {
	if cfg.Port == 0 {
		if cfg.UseSSL {
			cfg.Port = defaultTLSPort
		} else {
			cfg.Port = defaultPort
		}
	}
	if cfg.Username == "" {
		cfg.Username = cfg.Nickname
	}
	if cfg.Realname == "" {
		cfg.Realname = cfg.Nickname
	}
	if cfg.PingTime == 0 {
		cfg.PingTime = 3 * time.Minute
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = 10 * time.Second
	}
	if cfg.BurstWindow == 0 {
		cfg.BurstWindow = 8 * time.Second
	}
	if cfg.MaxMessagesInBurst == 0 {
		cfg.MaxMessagesInBurst = 4
	}
	if cfg.Version == "" {
		cfg.Version = "ircfs"
	}
}
