package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "dosetrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestFile(t *testing.T) {
	path := writeConfigFile(t, `
badger_path: /tmp/dosetrack
pushover_api_token: secret
timezone: America/Detroit
`)

	cfg, err := NewFile(path)
	require.NoError(t, err)

	badgerPath, err := cfg.BadgerPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dosetrack", badgerPath)

	token, err := cfg.PushoverAPIToken()
	require.NoError(t, err)
	assert.Equal(t, "secret", token)

	timezone, err := cfg.Timezone()
	require.NoError(t, err)
	assert.Equal(t, "America/Detroit", timezone)
}

func TestFileMissingValues(t *testing.T) {
	path := writeConfigFile(t, `
badger_path: /tmp/dosetrack
`)

	cfg, err := NewFile(path)
	require.NoError(t, err)

	_, err = cfg.PushoverAPIToken()
	assert.ErrorIs(t, err, ErrConfigValueNotSet)

	// timezone defaults rather than erroring
	timezone, err := cfg.Timezone()
	require.NoError(t, err)
	assert.Equal(t, "Local", timezone)
}

func TestFileMissingFile(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
