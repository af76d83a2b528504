package params

import "fmt"

// Kind classifies a resolution failure.
type Kind string

const (
	// ConfigMissing means a required default parameter file does not exist.
	ConfigMissing Kind = "ConfigMissing"
	// ConfigUnreadable means a parameter file exists (or was explicitly
	// requested) but could not be read or parsed.
	ConfigUnreadable Kind = "ConfigUnreadable"
	// ConfigIncomplete means a required key is absent, or present with a
	// value that cannot be converted to its declared type, after the merge.
	ConfigIncomplete Kind = "ConfigIncomplete"
)

// Error is a resolution failure for a single stage. It always carries the
// stage name and failure kind; Path and Key are set when a specific file or
// parameter is at fault.
type Error struct {
	Stage string
	Kind  Kind
	Path  string
	Key   string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("stage %q: %s", e.Stage, e.Kind)
	if e.Key != "" {
		msg += fmt.Sprintf(": key %q", e.Key)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(": file %s", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}
