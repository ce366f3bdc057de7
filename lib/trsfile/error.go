package trsfile

import (
	"fmt"
)

// FormatErrorKind says which part of the file format was violated.
type FormatErrorKind int

const (
	UnknownDatatype FormatErrorKind = iota
	Truncated
	SizeMismatch
)

func (k FormatErrorKind) String() string {
	switch k {
	case UnknownDatatype:
		return "unknown datatype"
	case Truncated:
		return "truncated"
	case SizeMismatch:
		return "size mismatch"
	}
	return fmt.Sprintf("FormatErrorKind(%d)", int(k))
}

// FormatError is returned when the input file is not a valid trace capture.
type FormatError struct {
	Kind  FormatErrorKind
	Field string
	Msg   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid trace file (%s, field '%s'): %s",
		e.Kind, e.Field, e.Msg)
}

// ConfigError is returned when a user-supplied parameter can't be used,
// either on its own or against the geometry of a file.
type ConfigError struct {
	Param string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid parameter '%s': %s", e.Param, e.Msg)
}

// IOError wraps a failure to open, create, read or write a file. Offset is
// -1 when the failure isn't tied to a position in the file.
type IOError struct {
	Op     string
	Path   string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	switch {
	case e.Path != "" && e.Offset >= 0:
		return fmt.Sprintf("%s %s at byte %d: %s", e.Op, e.Path, e.Offset, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
