package errors

import (
	"fmt"
	"strings"
)

type ErrorType string

const (
	ErrorTypeRepositoryNotFound ErrorType = "REPOSITORY_NOT_FOUND"
	ErrorTypeDuplicateCommit    ErrorType = "DUPLICATE_COMMIT"
	ErrorTypeUncommitted        ErrorType = "UNCOMMITTED_CHANGES"
	ErrorTypeMergeConflict      ErrorType = "MERGE_CONFLICT"
	ErrorTypeReferenceNotFound  ErrorType = "REFERENCE_NOT_FOUND"
	ErrorTypeInvalidArgument    ErrorType = "INVALID_ARGUMENT"
)

// Sentinels for errors.Is checks. Matching is by Type only, so any *Error
// built by the constructors below matches its sentinel.
var (
	ErrRepositoryNotFound = &Error{Type: ErrorTypeRepositoryNotFound, Message: "repository not found"}
	ErrDuplicateCommit    = &Error{Type: ErrorTypeDuplicateCommit, Message: "commit already exists"}
	ErrUncommittedChanges = &Error{Type: ErrorTypeUncommitted, Message: "uncommitted changes"}
	ErrMergeConflict      = &Error{Type: ErrorTypeMergeConflict, Message: "merge conflict"}
	ErrReferenceNotFound  = &Error{Type: ErrorTypeReferenceNotFound, Message: "reference not found"}
	ErrInvalidArgument    = &Error{Type: ErrorTypeInvalidArgument, Message: "invalid argument"}
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Paths   []string  `json:"paths,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Paths) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Paths, ", "))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

func RepositoryNotFound(path string) *Error {
	return &Error{
		Type:    ErrorTypeRepositoryNotFound,
		Message: fmt.Sprintf("no .wit directory found above %s", path),
	}
}

func DuplicateCommit(id string) *Error {
	return &Error{
		Type:    ErrorTypeDuplicateCommit,
		Message: fmt.Sprintf("image %s has already been committed", id),
	}
}

func UncommittedChanges(paths []string) *Error {
	return &Error{
		Type:    ErrorTypeUncommitted,
		Message: "there are changed files which have not been committed",
		Paths:   paths,
	}
}

func MergeConflict(paths []string) *Error {
	return &Error{
		Type:    ErrorTypeMergeConflict,
		Message: "files changed in both branches on the same lines",
		Paths:   paths,
	}
}

func ReferenceNotFound(ref string) *Error {
	return &Error{
		Type:    ErrorTypeReferenceNotFound,
		Message: fmt.Sprintf("unknown branch or commit %q", ref),
	}
}

func InvalidArgument(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInvalidArgument,
		Message: message,
		Err:     err,
	}
}
