package sim

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every *ConfigurationError through errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ErrIllegalState is returned when the hierarchy is asked to do something its
// current shape cannot support, such as serving an access with no layers.
var ErrIllegalState = errors.New("illegal state")

// ConfigurationError reports a configuration value that violates a constraint.
// It is fatal: nothing is simulated once one has been returned.
type ConfigurationError struct {
	Field      string // offending parameter, e.g. "cache-sizes"
	Value      any    // the value that was rejected
	Constraint string // what the value was expected to satisfy
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Constraint)
}

// Is lets errors.Is(err, ErrConfiguration) match any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(field string, value any, format string, args ...any) error {
	return &ConfigurationError{Field: field, Value: value, Constraint: fmt.Sprintf(format, args...)}
}
