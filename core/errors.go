package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is matched by every construction-time failure.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrOutOfRange is matched by transmit power requests outside the
	// radio's capabilities.
	ErrOutOfRange = errors.New("parameter out of radio power specification")
)

// ConfigurationError reports an unusable construction parameter. It
// matches ErrConfiguration with errors.Is and unwraps to Err when the
// failure originated elsewhere (e.g. a registry lookup).
type ConfigurationError struct {
	Field  string
	Value  any
	Valid  []string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %v", ErrConfiguration, e.Field, formatValue(e.Value))
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Valid) > 0 {
		fmt.Fprintf(&b, " (valid: %s)", strings.Join(e.Valid, ", "))
	}
	return b.String()
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigurationError) Unwrap() error { return e.Err }

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}

// OutOfRangeError is returned by SetTxPower. It carries the node's
// configured bounds so callers can self-correct.
type OutOfRangeError struct {
	NodeID int
	Value  float64
	Min    float64
	Max    float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("node %d: %s: got %v dBm, expected value from %v dBm to %v dBm",
		e.NodeID, ErrOutOfRange, e.Value, e.Min, e.Max)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }
