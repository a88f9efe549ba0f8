package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("RFID_SCANNER_CAPACITY", "7")
	t.Setenv("RFID_SERVER_PORT", "9999")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, InitConfig(""))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scanner.Capacity)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Scanner.FlushInterval)
	assert.Equal(t, "rfid/+/scan", cfg.MQTT.ScanTopic)
	assert.Equal(t, "rfid-scans", cfg.ServiceBus.QueueName)
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scanner:\n  capacity: 3\n  flushinterval: 1m\n"), 0o600))

	require.NoError(t, InitConfig(path))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Scanner.Capacity)
	assert.Equal(t, time.Minute, cfg.Scanner.FlushInterval)
}

func TestLoad_RejectsZeroCapacity(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scanner:\n  capacity: 0\n"), 0o600))

	require.NoError(t, InitConfig(path))
	_, err := Load()
	assert.Error(t, err)
}
