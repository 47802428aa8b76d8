package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrOutOfBounds        = errors.New("area out of bounds")
	ErrOverlap            = errors.New("area overlaps committed tiles")
	ErrUnsatisfiable      = errors.New("area placement unsatisfiable")
	ErrInvalidOpening     = errors.New("invalid opening")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrUnknownPlugin      = errors.New("unknown plugin")
)

// ConfigError reports a configuration value outside its legal range.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config validation: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PlacementErrorKind distinguishes placement failures
type PlacementErrorKind string

const (
	OutOfBounds    PlacementErrorKind = "out_of_bounds"
	Overlap        PlacementErrorKind = "overlap"
	Unsatisfiable  PlacementErrorKind = "unsatisfiable"
	InvalidOpening PlacementErrorKind = "invalid_opening"
)

// PlacementError is returned when an area cannot be committed to the grid.
type PlacementError struct {
	Kind   PlacementErrorKind
	AreaID int
	Pos    Position
	Detail string
}

func (e *PlacementError) Error() string {
	msg := fmt.Sprintf("placement of area %d failed: %s", e.AreaID, e.Kind)
	if e.Kind != Unsatisfiable {
		msg += " at " + e.Pos.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *PlacementError) Is(target error) bool {
	switch e.Kind {
	case OutOfBounds:
		return target == ErrOutOfBounds
	case Overlap:
		return target == ErrOverlap
	case Unsatisfiable:
		return target == ErrUnsatisfiable
	case InvalidOpening:
		return target == ErrInvalidOpening
	}
	return false
}

// InvariantViolation signals a broken internal guarantee. It is raised with
// panic and is never part of a normal error return.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Reason
}

func (e *InvariantViolation) Is(target error) bool {
	return target == ErrInvariantViolation
}

func violate(format string, args ...interface{}) {
	panic(&InvariantViolation{Reason: fmt.Sprintf(format, args...)})
}
