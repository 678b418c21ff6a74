// Package interpolation expands ${VAR} and ${VAR:default} references in
// configuration values.
package interpolation

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// ErrUndefinedVariable is returned for a ${VAR} reference with no default
// whose variable is unset.
var ErrUndefinedVariable = errors.New("environment variable not defined")

// LookupFunc resolves a variable name, like os.LookupEnv.
type LookupFunc func(name string) (string, bool)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:)?([^}]*)\}`)

// ExpandEnvVars expands references against the process environment.
func ExpandEnvVars(input string) (string, error) {
	return Expand(input, os.LookupEnv)
}

// Expand replaces every ${NAME} or ${NAME:default} reference. A set variable
// wins, even when empty; otherwise the default is used when a colon is
// present. Missing variables without a default are collected into one error
// and left untouched in the output.
func Expand(input string, lookup LookupFunc) (string, error) {
	if input == "" {
		return "", nil
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var missing []error
	out := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := sub[1], sub[2] == ":", sub[3]

		if value, ok := lookup(name); ok {
			return value
		}
		if hasDefault {
			return def
		}
		missing = append(missing, fmt.Errorf("%w: %s", ErrUndefinedVariable, name))
		return match
	})

	return out, errors.Join(missing...)
}
