// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads node configuration from YAML with DUORPC_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration of a node.
type Config struct {
	Node      NodeConfig      `mapstructure:"node"`
	Log       LogConfig       `mapstructure:"log"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Primary   PrimaryConfig   `mapstructure:"primary"`
	HighSpeed HighSpeedConfig `mapstructure:"highspeed"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

type NodeConfig struct {
	// Role: server or client
	Role string `mapstructure:"role"`
	// Name labels logs and metrics.
	Name string `mapstructure:"name"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type DispatchConfig struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	MaxTimeout     time.Duration `mapstructure:"max_timeout"`
	MaxMessageSize int           `mapstructure:"max_message_size"`
	// Codec: cbor, json or binary
	Codec string `mapstructure:"codec"`
}

type PrimaryConfig struct {
	// Transport: ws, grpc or mem
	Transport string `mapstructure:"transport"`
	// Listen is used by servers, Dial by clients.
	Listen string `mapstructure:"listen"`
	Dial   string `mapstructure:"dial"`
}

type HighSpeedConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Listen           string        `mapstructure:"listen"`
	Port             uint16        `mapstructure:"port"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Node: NodeConfig{Role: "server", Name: "duorpc"},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: false,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/duorpc.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Dispatch: DispatchConfig{
			DefaultTimeout: 5 * time.Second,
			MaxTimeout:     600 * time.Second,
			MaxMessageSize: 16 * 1024 * 1024,
			Codec:          "cbor",
		},
		Primary: PrimaryConfig{
			Transport: "ws",
			Listen:    ":7300",
			Dial:      "127.0.0.1:7300",
		},
		HighSpeed: HighSpeedConfig{
			Enabled:          true,
			Listen:           ":7301",
			HandshakeTimeout: 10 * time.Second,
		},
		Admin: AdminConfig{
			Enabled: true,
			Listen:  "127.0.0.1:7302",
		},
	}
}

// Load reads configuration from path (if non-empty), otherwise from
// DUORPC_CONFIG or duorpc.yaml in common locations. Environment variables use
// the prefix DUORPC with `.` and `-` replaced by `_`, e.g. DUORPC_LOG_LEVEL.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DUORPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults so env-only configs work
	v.SetDefault("node.role", cfg.Node.Role)
	v.SetDefault("node.name", cfg.Node.Name)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("dispatch.default_timeout", cfg.Dispatch.DefaultTimeout)
	v.SetDefault("dispatch.max_timeout", cfg.Dispatch.MaxTimeout)
	v.SetDefault("dispatch.max_message_size", cfg.Dispatch.MaxMessageSize)
	v.SetDefault("dispatch.codec", cfg.Dispatch.Codec)
	v.SetDefault("primary.transport", cfg.Primary.Transport)
	v.SetDefault("primary.listen", cfg.Primary.Listen)
	v.SetDefault("primary.dial", cfg.Primary.Dial)
	v.SetDefault("highspeed.enabled", cfg.HighSpeed.Enabled)
	v.SetDefault("highspeed.listen", cfg.HighSpeed.Listen)
	v.SetDefault("highspeed.port", cfg.HighSpeed.Port)
	v.SetDefault("highspeed.handshake_timeout", cfg.HighSpeed.HandshakeTimeout)
	v.SetDefault("admin.enabled", cfg.Admin.Enabled)
	v.SetDefault("admin.listen", cfg.Admin.Listen)

	if path == "" {
		if envPath := os.Getenv("DUORPC_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("duorpc")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".duorpc"))
		}
	}

	// A missing file is fine; defaults and env still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}

	c.Node.Role = strings.ToLower(strings.TrimSpace(c.Node.Role))
	if c.Node.Role != "server" && c.Node.Role != "client" {
		return fmt.Errorf("invalid node.role: %q", c.Node.Role)
	}
	if strings.TrimSpace(c.Node.Name) == "" {
		c.Node.Name = c.Node.Role
	}

	if c.Dispatch.DefaultTimeout <= 0 {
		return fmt.Errorf("invalid dispatch.default_timeout: %s", c.Dispatch.DefaultTimeout)
	}
	if c.Dispatch.MaxTimeout < c.Dispatch.DefaultTimeout {
		return fmt.Errorf("dispatch.max_timeout %s is below dispatch.default_timeout %s",
			c.Dispatch.MaxTimeout, c.Dispatch.DefaultTimeout)
	}
	if c.Dispatch.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid dispatch.max_message_size: %d", c.Dispatch.MaxMessageSize)
	}
	switch c.Dispatch.Codec {
	case "cbor", "json", "binary":
	default:
		return fmt.Errorf("invalid dispatch.codec: %q", c.Dispatch.Codec)
	}

	c.Primary.Transport = strings.ToLower(strings.TrimSpace(c.Primary.Transport))
	switch c.Primary.Transport {
	case "ws", "grpc", "mem":
	default:
		return fmt.Errorf("invalid primary.transport: %q", c.Primary.Transport)
	}
	if c.Node.Role == "server" && c.Primary.Listen == "" {
		return errors.New("primary.listen is required for the server role")
	}
	if c.Node.Role == "client" && c.Primary.Dial == "" {
		return errors.New("primary.dial is required for the client role")
	}

	if c.HighSpeed.Enabled && c.Node.Role == "server" && c.HighSpeed.Listen == "" {
		return errors.New("highspeed.listen is required when highspeed is enabled")
	}
	if c.HighSpeed.HandshakeTimeout <= 0 {
		c.HighSpeed.HandshakeTimeout = 10 * time.Second
	}
	if c.Admin.Enabled && c.Admin.Listen == "" {
		return errors.New("admin.listen is required when admin is enabled")
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
