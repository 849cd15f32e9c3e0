package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

const validINI = `
[UTIM]
utimname = deadbeef
uhostname = uhost-01
messaging_protocol = mqtt

[mqtt]
hostname = broker.example.com
username = utim
password = secret
reconnect_time = 30
`

func TestLoadReadsAllFields(t *testing.T) {
	path := writeTempConfig(t, validINI)
	t.Setenv("UTIM_CONFIG", path)
	t.Setenv("UTIM_MASTER_KEY", "0102030405060708090a0b0c0d0e0f10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "deadbeef", cfg.UtimName)
	assert.Equal(t, "uhost-01", cfg.UhostName)
	assert.Equal(t, ProtocolMQTT, cfg.MessagingProtocol)
	assert.Equal(t, "broker.example.com", cfg.Broker.Hostname)
	assert.Equal(t, "utim", cfg.Broker.Username)
	assert.Equal(t, "secret", cfg.Broker.Password)
	assert.Equal(t, 30, cfg.Broker.ReconnectTime)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}, cfg.MasterKey)
}

func TestLoadFailsOnMissingBrokerSection(t *testing.T) {
	path := writeTempConfig(t, `
[UTIM]
utimname = deadbeef
uhostname = uhost-01
messaging_protocol = amqp
`)
	t.Setenv("UTIM_CONFIG", path)
	t.Setenv("UTIM_MASTER_KEY", "00")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFailsOnMissingUtimSection(t *testing.T) {
	path := writeTempConfig(t, `
[mqtt]
hostname = broker.example.com
username = utim
password = secret
reconnect_time = 30
`)
	t.Setenv("UTIM_CONFIG", path)
	t.Setenv("UTIM_MASTER_KEY", "00")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFailsOnInvalidMasterKeyHex(t *testing.T) {
	path := writeTempConfig(t, validINI)
	t.Setenv("UTIM_CONFIG", path)
	t.Setenv("UTIM_MASTER_KEY", "not-hex")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFailsOnMissingMasterKey(t *testing.T) {
	path := writeTempConfig(t, validINI)
	t.Setenv("UTIM_CONFIG", path)
	os.Unsetenv("UTIM_MASTER_KEY")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFailsOnNonIntegerReconnectTime(t *testing.T) {
	path := writeTempConfig(t, `
[UTIM]
utimname = deadbeef
uhostname = uhost-01
messaging_protocol = mqtt

[mqtt]
hostname = broker.example.com
username = utim
password = secret
reconnect_time = soon
`)
	t.Setenv("UTIM_CONFIG", path)
	t.Setenv("UTIM_MASTER_KEY", "00")

	_, err := Load()
	assert.Error(t, err)
}
