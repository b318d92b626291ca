package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a coordination failure independently of its message.
type ErrorCode string

const (
	CodeDuplicateName          ErrorCode = "DUPLICATE_NAME"
	CodeDuplicateSubNodeName   ErrorCode = "DUPLICATE_SUBNODE_NAME"
	CodeUserAlreadyEngaged     ErrorCode = "USER_ALREADY_ENGAGED"
	CodeUserMarkedDone         ErrorCode = "USER_MARKED_DONE"
	CodeSubNodeLocked          ErrorCode = "SUBNODE_LOCKED"
	CodeUnauthorizedAbort      ErrorCode = "UNAUTHORIZED_ABORT"
	CodeUnauthorizedReset      ErrorCode = "UNAUTHORIZED_RESET"
	CodeNodeNotFound           ErrorCode = "NODE_NOT_FOUND"
	CodeSubNodeNotFound        ErrorCode = "SUBNODE_NOT_FOUND"
	CodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	CodeInvalidInput           ErrorCode = "INVALID_INPUT"
	CodeUserNotFound           ErrorCode = "USER_NOT_FOUND"
	CodeRootAlreadyProvisioned ErrorCode = "ROOT_ALREADY_PROVISIONED"
)

// Failure is a typed, user-facing coordination error. Two failures match
// under errors.Is when their codes are equal, so the package-level sentinels
// below can be used as comparison targets.
type Failure struct {
	Code   ErrorCode
	Detail string
	// Holder is the display name of the current lock holder for
	// SUBNODE_LOCKED failures.
	Holder string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Code)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Detail)
}

func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Code == f.Code
}

var (
	ErrDuplicateName          = &Failure{Code: CodeDuplicateName}
	ErrDuplicateSubNodeName   = &Failure{Code: CodeDuplicateSubNodeName}
	ErrUserAlreadyEngaged     = &Failure{Code: CodeUserAlreadyEngaged}
	ErrUserMarkedDone         = &Failure{Code: CodeUserMarkedDone}
	ErrSubNodeLocked          = &Failure{Code: CodeSubNodeLocked}
	ErrUnauthorizedAbort      = &Failure{Code: CodeUnauthorizedAbort}
	ErrUnauthorizedReset      = &Failure{Code: CodeUnauthorizedReset}
	ErrNodeNotFound           = &Failure{Code: CodeNodeNotFound}
	ErrSubNodeNotFound        = &Failure{Code: CodeSubNodeNotFound}
	ErrUnauthorized           = &Failure{Code: CodeUnauthorized}
	ErrInvalidInput           = &Failure{Code: CodeInvalidInput}
	ErrUserNotFound           = &Failure{Code: CodeUserNotFound}
	ErrRootAlreadyProvisioned = &Failure{Code: CodeRootAlreadyProvisioned}
)

// Fail builds a Failure with a formatted detail message.
func Fail(code ErrorCode, format string, args ...any) *Failure {
	return &Failure{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// SubNodeLocked builds the SUBNODE_LOCKED failure naming the holder.
func SubNodeLocked(subNodeName, holder string) *Failure {
	return &Failure{
		Code:   CodeSubNodeLocked,
		Detail: fmt.Sprintf("%s is locked by %s", subNodeName, holder),
		Holder: holder,
	}
}

// CodeOf extracts the failure code from err, if it wraps a Failure.
func CodeOf(err error) (ErrorCode, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code, true
	}
	return "", false
}

// AsFailure returns the Failure wrapped by err, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
