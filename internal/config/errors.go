package config

import "fmt"

// ConfigurationError reports a fatal setup problem: no feature source, a
// missing or malformed artifact, or a phase invoked without its handle.
type ConfigurationError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("configuration: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("configuration: %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
