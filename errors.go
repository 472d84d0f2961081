package dynacodec

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrItemNotFound is returned when a get request finds no item.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidTarget is returned when a decode target is not a non-nil pointer.
	ErrInvalidTarget = errors.New("decode target must be a non-nil pointer")
)

// ConfigurationError reports an invalid mapping for a type: duplicate key roles,
// unsupported member types or unknown converter names. It is raised while the
// schema or converter is being built.
type ConfigurationError struct {
	Type   reflect.Type // The type whose mapping is invalid
	Reason string       // Human readable description
}

func (e *ConfigurationError) Error() string {
	if e.Type == nil {
		return "invalid mapping: " + e.Reason
	}
	return fmt.Sprintf("invalid mapping for %s: %s", e.Type, e.Reason)
}

// ConstructionError reports a type for which no constructor could be resolved.
// It unwraps to a [ConfigurationError].
type ConstructionError struct {
	ConfigurationError
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("cannot construct %s: %s", e.Type, e.Reason)
}

func (e *ConstructionError) Unwrap() error {
	return &e.ConfigurationError
}

// ConversionError reports a wire value whose shape or content does not match what
// the converter for Type expects.
type ConversionError struct {
	Type   reflect.Type // The Go type being converted
	Reason string       // Human readable description
	Err    error        // Underlying parse error, if any
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %s: %s", e.Type, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func configErr(t reflect.Type, format string, args ...any) error {
	return &ConfigurationError{Type: t, Reason: fmt.Sprintf(format, args...)}
}

func constructErr(t reflect.Type, format string, args ...any) error {
	return &ConstructionError{ConfigurationError{Type: t, Reason: fmt.Sprintf(format, args...)}}
}

func conversionErr(t reflect.Type, cause error, format string, args ...any) error {
	return &ConversionError{Type: t, Reason: fmt.Sprintf(format, args...), Err: cause}
}

// mismatch reports a wire variant that differs from the expected one.
func mismatch(t reflect.Type, want DataType, got DataType) error {
	return conversionErr(t, nil, "expected %s attribute, got %s", want, got)
}
