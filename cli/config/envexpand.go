// Package config loads joinery.yaml, the defaults file shared by the
// join and parse commands.
package config

import (
	"fmt"
	"os"
	"regexp"
)

// envRefPattern matches $$ and ${VAR}, optionally followed by :-default or
// :?message.
var envRefPattern = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// UnsetVarError reports a ${VAR:?message} reference whose variable is unset
// or empty.
type UnsetVarError struct {
	Name    string
	Message string
}

func (e *UnsetVarError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("environment variable %s is required", e.Name)
	}
	return fmt.Sprintf("environment variable %s is required: %s", e.Name, e.Message)
}

// ExpandEnv expands environment references in a config file:
//
//	${VAR}          value of VAR, or "" when unset
//	${VAR:-default} value of VAR, or default when unset or empty
//	${VAR:?message} value of VAR, or an *UnsetVarError when unset or empty
//	$$              a literal $
//
// Only the first missing required variable is reported.
func ExpandEnv(input string) (string, error) {
	var firstErr error
	out := envRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		if match == "$$" {
			return "$"
		}
		groups := envRefPattern.FindStringSubmatch(match)
		name, op, arg := groups[1], groups[2], groups[3]

		if value := os.Getenv(name); value != "" {
			return value
		}
		switch op {
		case ":-":
			return arg
		case ":?":
			if firstErr == nil {
				firstErr = &UnsetVarError{Name: name, Message: arg}
			}
		}
		return ""
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
