package memfs

import (
	"errors"
	"fmt"
)

// Code is the category of a filesystem domain error.
//
// Every core operation fails with exactly one *Error carrying one of these
// codes. Callers branch on the code (or use errors.Is with the sentinels
// below) and decide how to present it.
type Code int

const (
	// NotFound indicates a path component, user or group does not exist
	NotFound Code = iota

	// AlreadyExists indicates a sibling, user or group with the name exists
	AlreadyExists

	// NotADirectory indicates a directory was required but a file was found
	NotADirectory

	// NotAFile indicates a file was required but a directory was found
	NotAFile

	// NotEmpty indicates a directory still has children
	NotEmpty

	// PermissionDenied indicates the caller lacks the required access.
	// The denied Action is recorded on the error.
	PermissionDenied

	// AuthenticationFailed indicates an unknown user or a wrong password
	AuthenticationFailed

	// InvalidPath indicates a malformed path or node name
	InvalidPath

	// InvalidArgument indicates an otherwise invalid parameter
	InvalidArgument

	// Corrupted indicates the tree violates a structural invariant
	Corrupted
)

var codeNames = [...]string{
	NotFound:             "not found",
	AlreadyExists:        "already exists",
	NotADirectory:        "not a directory",
	NotAFile:             "not a file",
	NotEmpty:             "directory not empty",
	PermissionDenied:     "permission denied",
	AuthenticationFailed: "authentication failed",
	InvalidPath:          "invalid path",
	InvalidArgument:      "invalid argument",
	Corrupted:            "corrupted tree",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("code(%d)", int(c))
	}
	return codeNames[c]
}

// Error is a filesystem domain error.
type Error struct {
	// Code is the error category
	Code Code

	// Message is a human-readable description; defaults to the code name
	Message string

	// Path is the path or subject (user, group) the error relates to, if any
	Path string

	// Action is the denied action for PermissionDenied errors
	Action Action
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
		if e.Code == PermissionDenied && e.Action != "" {
			msg = string(e.Action) + " " + msg
		}
	}
	if e.Path != "" {
		return msg + ": " + e.Path
	}
	return msg
}

// Is reports whether target is an *Error with the same Code, so that
// errors.Is(err, memfs.ErrNotFound) works for any NotFound error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons. Only the Code is compared.
var (
	ErrNotFound             = &Error{Code: NotFound}
	ErrAlreadyExists        = &Error{Code: AlreadyExists}
	ErrNotADirectory        = &Error{Code: NotADirectory}
	ErrNotAFile             = &Error{Code: NotAFile}
	ErrNotEmpty             = &Error{Code: NotEmpty}
	ErrPermissionDenied     = &Error{Code: PermissionDenied}
	ErrAuthenticationFailed = &Error{Code: AuthenticationFailed}
	ErrInvalidPath          = &Error{Code: InvalidPath}
	ErrInvalidArgument      = &Error{Code: InvalidArgument}
	ErrCorrupted            = &Error{Code: Corrupted}
)

// NewError builds an *Error for the given code and subject.
func NewError(code Code, path string, format string, args ...any) *Error {
	msg := ""
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Message: msg, Path: path}
}

// Denied builds a PermissionDenied error tagged with the requested action.
func Denied(action Action, path string) *Error {
	return &Error{Code: PermissionDenied, Path: path, Action: action}
}

// CodeOf returns the Code of err if it is (or wraps) an *Error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
