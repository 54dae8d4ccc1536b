package graph

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the engine can surface. Parse and
// compile kinds are raised before any dataset is touched; execution kinds
// only once a plan runs against concrete tables.
type ErrorKind uint8

const (
	ParseError ErrorKind = iota
	UnknownLabel
	UnknownRelationshipType
	AmbiguousNodeBinding
	UnboundVariable
	DuplicateBinding
	TypeMismatch
	UnsupportedAggregate
	MissingDataset
	ColumnNotFound
)

// String returns the error kind name
func (k ErrorKind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case UnknownLabel:
		return "UnknownLabel"
	case UnknownRelationshipType:
		return "UnknownRelationshipType"
	case AmbiguousNodeBinding:
		return "AmbiguousNodeBinding"
	case UnboundVariable:
		return "UnboundVariable"
	case DuplicateBinding:
		return "DuplicateBinding"
	case TypeMismatch:
		return "TypeMismatch"
	case UnsupportedAggregate:
		return "UnsupportedAggregate"
	case MissingDataset:
		return "MissingDataset"
	case ColumnNotFound:
		return "ColumnNotFound"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// IsCompileTime reports whether errors of this kind are raised during
// parsing or compilation rather than execution.
func (k ErrorKind) IsCompileTime() bool {
	switch k {
	case MissingDataset, ColumnNotFound:
		return false
	}
	return true
}

// Error is the typed failure result returned by every stage of the engine.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	var ge *Error
	if errors.As(target, &ge) {
		return ge.Kind == e.Kind
	}
	return false
}

// Errorf builds a typed engine error.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from an error chain.
// The second return is false when err carries no engine error.
func KindOf(err error) (ErrorKind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return 0, false
}
