// Public domain.

// Package mocerr defines the error kinds reported by the gwmoc packages.
//
// Every error returned by healpix, skymap, contour, and moc is either a
// *Error or wraps one, so callers can branch on Kind with errors.Is against
// the package level sentinels, or with KindOf.
package mocerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// InvalidInput indicates an empty or malformed map, or a confidence
	// outside (0,1].
	InvalidInput Kind = "INVALID_INPUT"
	// FormatError indicates a degenerate contour or an undecodable UNIQ.
	FormatError Kind = "FORMAT_ERROR"
	// IOError indicates a failure reading input or writing output.
	IOError Kind = "IO_ERROR"
	// PatchError indicates the output file was written but the column
	// format correction failed.  The file at Path exists, uncorrected.
	PatchError Kind = "PATCH_ERROR"
)

// Sentinels for use with errors.Is.
var (
	ErrInvalidInput = &Error{Kind: InvalidInput}
	ErrFormat       = &Error{Kind: FormatError}
	ErrIO           = &Error{Kind: IOError}
	ErrPatch        = &Error{Kind: PatchError}
)

// Error is a classified error with an optional underlying cause.
type Error struct {
	Kind    Kind
	Op      string // operation, e.g. "moc.Write"
	Path    string // file involved, if any
	Message string
	cause   error
}

// New creates an Error.  Cause may be nil.
func New(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, cause: cause}
}

// Errorf creates an Error with a formatted message and no cause.
func Errorf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WithPath sets the file path and returns e.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) Error() string {
	var parts []string
	for _, p := range []string{e.Op, e.Path, e.Message} {
		if p > "" {
			parts = append(parts, p)
		}
	}
	if e.cause != nil {
		parts = append(parts, e.cause.Error())
	}
	s := "[" + string(e.Kind) + "]"
	if len(parts) > 0 {
		s += " " + strings.Join(parts, ": ")
	}
	return s
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error of the same Kind.  Only Kind is
// compared, so the package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
