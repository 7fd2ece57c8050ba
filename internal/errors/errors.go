package errors

import (
	"errors"
	"fmt"
)

// Common error types shared across the session subsystem
var (
	// Storage errors
	ErrCorrupt            = errors.New("corrupt record")
	ErrMissingPassphrase  = errors.New("encryption passphrase required")
	ErrUnsupportedBacking = errors.New("unsupported storage backing")

	// Lifecycle errors
	ErrClosed = errors.New("closed")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join wraps base with cause so both match errors.Is
func Join(base, cause error) error {
	if cause == nil {
		return base
	}
	return fmt.Errorf("%w: %w", base, cause)
}
