package jsonpath

import (
	"errors"
	"fmt"
)

// ErrorKind classifies path resolution failures
type ErrorKind string

const (
	NotFound           ErrorKind = "not_found"
	TypeMismatch       ErrorKind = "type_mismatch"
	MalformedPredicate ErrorKind = "malformed_predicate"
)

// PathError reports why a path expression could not be resolved
type PathError struct {
	Kind    ErrorKind
	Path    string
	Segment string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q, segment %q: %s", e.Path, e.Segment, e.Message)
}

// IsKind reports whether err is a PathError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var pathErr *PathError
	if errors.As(err, &pathErr) {
		return pathErr.Kind == kind
	}
	return false
}

func newPathError(kind ErrorKind, path, segment, format string, args ...interface{}) *PathError {
	return &PathError{
		Kind:    kind,
		Path:    path,
		Segment: segment,
		Message: fmt.Sprintf(format, args...),
	}
}
