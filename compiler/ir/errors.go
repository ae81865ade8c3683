package ir

import (
	"fmt"
	"path/filepath"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

type (
	// InternalError means an earlier pass or the compiler itself is broken.
	InternalError struct {
		What string
		Node any
		From loc.PC
	}

	// UnsupportedError means the input uses a construct that is not implemented yet.
	UnsupportedError struct {
		What string
		Node any
	}
)

func NewInternal(node any, format string, args ...any) InternalError {
	return InternalError{
		What: fmt.Sprintf(format, args...),
		Node: node,
		From: loc.Caller(1),
	}
}

func NewUnsupported(node any, format string, args ...any) UnsupportedError {
	return UnsupportedError{
		What: fmt.Sprintf(format, args...),
		Node: node,
	}
}

func (e InternalError) Error() string {
	var at string

	if e.From != 0 {
		_, file, line := e.From.NameFileLine()
		at = fmt.Sprintf(" (at %s:%d)", filepath.Base(file), line)
	}

	if e.Node == nil {
		return fmt.Sprintf("internal error: %s%s", e.What, at)
	}

	return fmt.Sprintf("internal error: %s: %v%s", e.What, e.Node, at)
}

func (e UnsupportedError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("unsupported: %s", e.What)
	}

	return fmt.Sprintf("unsupported: %s: %v", e.What, e.Node)
}

func IsInternal(err error) bool {
	var e InternalError
	return errors.As(err, &e)
}

func IsUnsupported(err error) bool {
	var e UnsupportedError
	return errors.As(err, &e)
}
