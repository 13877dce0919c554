// Package simerr holds the error taxonomy shared by the kernel packages.
//
// ConfigurationError and RunawayPopulationError are returned values.
// InvariantViolation is only ever raised through panic: it means the
// framework itself is broken, and nothing downstream can recover from it.
package simerr

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or malformed parameter, or a
// structural problem (odd grid dimension, unknown network node) found while
// building the kernel.
type ConfigurationError struct {
	Category string
	Field    string
	Err      error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration")
	if e.Category != "" {
		b.WriteString(" ")
		b.WriteString(e.Category)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Config builds a ConfigurationError with a formatted cause.
func Config(category, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Category: category, Field: field, Err: fmt.Errorf(format, args...)}
}

// InvariantViolation is the panic value used for framework bugs.
type InvariantViolation struct {
	What string
}

func (e *InvariantViolation) Error() string { return "invariant violation: " + e.What }

// Violation panics with an InvariantViolation.
func Violation(format string, args ...any) {
	panic(&InvariantViolation{What: fmt.Sprintf(format, args...)})
}

// RunawayPopulationError ends a run whose population passed the ceiling.
// Batch drivers match it with errors.As and move on to the next run.
type RunawayPopulationError struct {
	Population int
	Ceiling    int
	Time       float64
}

func (e *RunawayPopulationError) Error() string {
	return fmt.Sprintf("runaway population: %d cells > ceiling %d at t=%.2f", e.Population, e.Ceiling, e.Time)
}
