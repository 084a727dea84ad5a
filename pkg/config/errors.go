package config

import "fmt"

// ConfigurationError reports a malformed or missing input-table entry
type ConfigurationError struct {
	Scope  string // "generic", "missions.sizing", a configuration name, ...
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Scope != "" {
		msg += ": " + e.Scope
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErrorf(scope, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Scope: scope, Field: field, Reason: fmt.Sprintf(format, args...)}
}
