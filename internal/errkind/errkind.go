// Package errkind defines the error taxonomy shared across the content
// pipeline.
//
// Components tag failures with one of the sentinel markers so callers can
// classify them with errors.Is without depending on concrete error types.
// Higher layers (the HTTP surface, the CLI) map kinds to their own status
// codes; the core never does that translation itself.
package errkind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed zipballs, metadata, or identifiers.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups that yielded no row or file.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks integrity assertions such as an UPDATE that did not
	// affect exactly one row.
	ErrConflict = errors.New("conflict")
	// ErrIO marks disk and external process failures.
	ErrIO = errors.New("io error")
	// ErrExternal marks soft failures of external services (tuner, memcached).
	ErrExternal = errors.New("external service error")
	// ErrTransient marks failures worth retrying on the next tick.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
