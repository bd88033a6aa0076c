package models

import "fmt"

// ConfigError is returned when the database path or timezone cannot be resolved.
// It is raised before any query runs.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ValidationError is returned for user input that fails validation,
// such as an unparseable date expression or an unknown output mode.
type ValidationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
