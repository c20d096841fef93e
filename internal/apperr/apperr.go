// Package apperr defines the error classes the blog core hands back to the
// transport shell. Every failure is one of a small set of kinds so the shell
// can pick between "not found", "bad input" and "internal" without string
// matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so a sentinel still compares equal after it was copied
// with a different message or kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: msg, Err: e.Err}
}

// AsKind returns a copy of e reclassified as k.
func (e *Error) AsKind(k Kind) *Error {
	return &Error{Kind: k, Code: e.Code, Message: e.Message, Err: e.Err}
}

var (
	ErrPostNotFound                 = &Error{Kind: KindNotFound, Code: "POST_NOT_FOUND", Message: "post not found"}
	ErrCommentNotFound              = &Error{Kind: KindNotFound, Code: "COMMENT_NOT_FOUND", Message: "comment not found"}
	ErrParentNotFound               = &Error{Kind: KindNotFound, Code: "PARENT_NOT_FOUND", Message: "parent comment not found"}
	ErrUserNotFound                 = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrCategoryNotFound             = &Error{Kind: KindNotFound, Code: "CATEGORY_NOT_FOUND", Message: "category not found"}
	ErrParentBelongsToDifferentPost = &Error{Kind: KindValidation, Code: "PARENT_BELONGS_TO_DIFFERENT_POST", Message: "parent comment belongs to a different post"}
	ErrSelfSubscription             = &Error{Kind: KindValidation, Code: "SELF_SUBSCRIPTION", Message: "users cannot subscribe to themselves"}
	ErrDefaultCategory              = &Error{Kind: KindValidation, Code: "DEFAULT_CATEGORY", Message: "the default category cannot be deleted"}
	ErrDuplicateIdentity            = &Error{Kind: KindConflict, Code: "DUPLICATE_IDENTITY", Message: "an account with this username or email already exists"}
	ErrDuplicateName                = &Error{Kind: KindConflict, Code: "DUPLICATE_NAME", Message: "name already taken"}
	ErrInvalidCredentials           = &Error{Kind: KindUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
	ErrUnauthorized                 = &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: "authentication required"}
	ErrForbidden                    = &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: "insufficient permissions"}
	ErrSuspended                    = &Error{Kind: KindForbidden, Code: "USER_SUSPENDED", Message: "account is temporarily suspended"}
)

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: msg}
}

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "internal error", Err: err}
}

// KindOf reports the class of err. Errors that did not come from this package
// are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the *Error inside err, wrapping unknown errors as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
