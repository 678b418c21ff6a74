package interpolation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	env := fakeEnv(map[string]string{
		"API_KEY": "secret",
		"EMPTY":   "",
		"HOST":    "search.local",
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no references", "plain", "plain"},
		{"empty input", "", ""},
		{"set variable", "${API_KEY}", "secret"},
		{"set variable beats default", "${API_KEY:fallback}", "secret"},
		{"default when unset", "${MISSING:fallback}", "fallback"},
		{"empty default", "${MISSING:}", ""},
		{"set but empty", "${EMPTY:fallback}", ""},
		{"default containing colon", "${MISSING:http://localhost:8080}", "http://localhost:8080"},
		{"several references", "https://${HOST}/${MISSING:v1}/search", "https://search.local/v1/search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.input, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandMissing(t *testing.T) {
	t.Parallel()

	got, err := Expand("${ONE}-${TWO}-${THREE:3}", fakeEnv(nil))
	require.ErrorIs(t, err, ErrUndefinedVariable)
	assert.Contains(t, err.Error(), "ONE")
	assert.Contains(t, err.Error(), "TWO")
	assert.Equal(t, "${ONE}-${TWO}-3", got)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("BUILTINMCP_INTERPOLATION_TEST", "from-env")

	got, err := ExpandEnvVars("${BUILTINMCP_INTERPOLATION_TEST}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}
