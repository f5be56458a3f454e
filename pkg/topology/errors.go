package topology

import "fmt"

// ConfigurationError reports an instance whose configuration matches no legal topology.
// It is fatal for the instance.
type ConfigurationError struct {
	Instance   string
	Constraint string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s", e.Instance, e.Constraint)
}

func configErrorf(instance, format string, args ...any) error {
	return &ConfigurationError{Instance: instance, Constraint: fmt.Sprintf(format, args...)}
}
