package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration(t *testing.T) {
	t.Parallel()

	d, err := ParseDuration("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d.AsDuration())
	assert.Equal(t, "1m30s", d.String())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	_, err = ParseDuration("soon")
	require.ErrorIs(t, err, ErrInvalidDuration)

	var back Duration
	require.NoError(t, back.UnmarshalText([]byte("250ms")))
	assert.Equal(t, FromDuration(250*time.Millisecond), back)
}

func TestDurationYAML(t *testing.T) {
	t.Parallel()

	var v struct {
		Timeout Duration `yaml:"timeout"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("timeout: 3s\n"), &v))
	assert.Equal(t, 3*time.Second, v.Timeout.AsDuration())

	err := yaml.Unmarshal([]byte("timeout: [1, 2]\n"), &v)
	require.ErrorIs(t, err, ErrInvalidDuration)
}
