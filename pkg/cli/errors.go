package cli

import "fmt"

// ConfigError reports an invalid configuration value or flag combination.
// Field holds the dotted config path ("storage.path") when one field is at
// fault, and is empty for errors that span flags, such as mutually
// exclusive options.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError wraps a failure from one of the slate subcommands with the
// command name, so the exit path can print which operation failed.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError builds a ConfigError for the given field path. Pass an
// empty field for flag-combination errors.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewCommandError wraps err with the failing command's name.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}
