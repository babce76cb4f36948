package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv(t *testing.T) {
	t.Setenv(BadgerPathEnv, "/tmp/dosetrack")
	t.Setenv(PushoverAPITokenEnv, "secret")
	t.Setenv(TimezoneEnv, "America/Detroit")

	env := &Env{}

	path, err := env.BadgerPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dosetrack", path)

	token, err := env.PushoverAPIToken()
	require.NoError(t, err)
	assert.Equal(t, "secret", token)

	timezone, err := env.Timezone()
	require.NoError(t, err)
	assert.Equal(t, "America/Detroit", timezone)
}

func TestEnvMissing(t *testing.T) {
	env := &Env{}

	_, err := env.BadgerPath()
	assert.ErrorIs(t, err, ErrEnvVariableNotSet)

	_, err = env.PushoverAPIToken()
	assert.ErrorIs(t, err, ErrEnvVariableNotSet)

	// timezone falls back to the local clock
	timezone, err := env.Timezone()
	require.NoError(t, err)
	assert.Equal(t, "Local", timezone)
}
