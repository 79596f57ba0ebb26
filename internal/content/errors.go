package content

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath means a path walked through a missing or non-container value.
	ErrInvalidPath = errors.New("content: invalid path")
	// ErrOutOfBounds means an array index fell outside the current length.
	ErrOutOfBounds = errors.New("content: index out of bounds")
	// ErrUnknownKind means no item template is registered for the kind.
	ErrUnknownKind = errors.New("content: unknown item kind")
	// ErrDuplicateID means a generated project id already exists in the target array.
	ErrDuplicateID = errors.New("content: duplicate project id")
)

// PathError records the operation and path that failed along with the cause.
type PathError struct {
	Op   string
	Path Path
	Err  error
}

func (e *PathError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s: %v", e.Op, describePath(e.Path), e.Err)
}

func (e *PathError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describePath(p Path) string {
	if len(p) == 0 {
		return "path=<root>"
	}
	return fmt.Sprintf("path=%q", p.String())
}

func pathErr(op string, p Path, err error) error {
	return &PathError{Op: op, Path: p, Err: err}
}
