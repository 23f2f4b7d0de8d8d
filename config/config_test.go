// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duorpc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DUORPC_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
node:
  role: Client
  name: edge-1
log:
  level: debug
  format: json
dispatch:
  default_timeout: 250ms
  max_timeout: 30s
  codec: json
primary:
  transport: grpc
  dial: 10.0.0.5:7300
highspeed:
  port: 7400
  handshake_timeout: 3s
admin:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "client", cfg.Node.Role)
	assert.Equal(t, "edge-1", cfg.Node.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Dispatch.DefaultTimeout)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.MaxTimeout)
	assert.Equal(t, "json", cfg.Dispatch.Codec)
	assert.Equal(t, "grpc", cfg.Primary.Transport)
	assert.Equal(t, "10.0.0.5:7300", cfg.Primary.Dial)
	assert.Equal(t, uint16(7400), cfg.HighSpeed.Port)
	assert.Equal(t, 3*time.Second, cfg.HighSpeed.HandshakeTimeout)
	assert.False(t, cfg.Admin.Enabled)
	// Untouched keys keep their defaults.
	assert.Equal(t, 16*1024*1024, cfg.Dispatch.MaxMessageSize)
	assert.True(t, cfg.HighSpeed.Enabled)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	t.Setenv("DUORPC_LOG_LEVEL", "warn")
	t.Setenv("DUORPC_DISPATCH_CODEC", "binary")
	t.Setenv("DUORPC_NODE_NAME", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "binary", cfg.Dispatch.Codec)
	assert.Equal(t, "from-env", cfg.Node.Name)
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv("DUORPC_CONFIG", writeConfig(t, "node:\n  name: via-env\n"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "via-env", cfg.Node.Name)
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]string{
		"role":        "node:\n  role: peer\n",
		"level":       "log:\n  level: loud\n",
		"codec":       "dispatch:\n  codec: xml\n",
		"timeouts":    "dispatch:\n  default_timeout: 10s\n  max_timeout: 1s\n",
		"message":     "dispatch:\n  max_message_size: 0\n",
		"transport":   "primary:\n  transport: smoke\n",
		"listen":      "primary:\n  listen: \"\"\n",
		"dial":        "node:\n  role: client\nprimary:\n  dial: \"\"\n",
		"highspeed":   "highspeed:\n  listen: \"\"\n",
		"admin":       "admin:\n  listen: \"\"\n",
		"unparseable": "node: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestMissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNameDefaultsToRole(t *testing.T) {
	cfg, err := Load(writeConfig(t, "node:\n  name: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "server", cfg.Node.Name)
}
