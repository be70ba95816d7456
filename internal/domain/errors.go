package domain

import (
	"errors"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeChallengeInvalid    ErrorType = "challenge_invalid"
	ErrorTypeAttachmentsNotFound ErrorType = "attachments_not_found"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeUpstream            ErrorType = "upstream_unavailable"
	ErrorTypeInternal            ErrorType = "internal"
)

const (
	CodeCaptchaInvalid         = "captcha.invalid"
	CodeAttachmentsNotFound    = "comments.attachments.not-found"
	CodeAttachmentContentType  = "comments.attachments.invalid-content-type"
	CodeAttachmentTextTooLarge = "comments.attachments.text-too-large"
	CodeAttachmentFileTooLarge = "comments.attachments.file-too-large"
	CodeAttachmentInvalidImage = "comments.attachments.invalid-image"
	CodeParentNotFound         = "comments.parent.not-found"
	CodeCommentNotFound        = "comments.not-found"
	CodeUpstreamUnavailable    = "upstream.unavailable"
	CodeInternalFailure        = "internal.failure"
)

// Error is a single machine-readable failure reported to API callers.
type Error struct {
	Type    ErrorType `json:"-"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`

	cause error
}

func (e Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e Error) Unwrap() error {
	return e.cause
}

// ErrorList carries every failure of one operation so a client can fix all
// fields at once.
type ErrorList []Error

func (l ErrorList) Error() string {
	parts := make([]string, 0, len(l))
	for _, e := range l {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Type reports the type of the first error, which decides the HTTP status.
func (l ErrorList) Type() ErrorType {
	if len(l) == 0 {
		return ErrorTypeInternal
	}
	return l[0].Type
}

func (l ErrorList) Has(code string) bool {
	for _, e := range l {
		if e.Code == code {
			return true
		}
	}
	return false
}

// OrNil keeps an empty list from being returned as a non-nil error.
func (l ErrorList) OrNil() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func Validation(field, code, message string) Error {
	return Error{Type: ErrorTypeValidation, Code: code, Message: message, Field: field}
}

func NotFound(code, message string) Error {
	return Error{Type: ErrorTypeNotFound, Code: code, Message: message}
}

var (
	ErrChallengeInvalid = Error{
		Type:    ErrorTypeChallengeInvalid,
		Code:    CodeCaptchaInvalid,
		Message: "Captcha is invalid or expired",
		Field:   "captcha_answer",
	}
	ErrAttachmentsNotFound = Error{
		Type:    ErrorTypeAttachmentsNotFound,
		Code:    CodeAttachmentsNotFound,
		Message: "One or more attachments were not found",
		Field:   "attachment_ids",
	}
	ErrCommentNotFound = NotFound(CodeCommentNotFound, "Comment not found")
)

// Upstream marks a failure of a dependency the client may retry against.
func Upstream(err error) Error {
	return Error{
		Type:    ErrorTypeUpstream,
		Code:    CodeUpstreamUnavailable,
		Message: "A required service is temporarily unavailable",
		cause:   err,
	}
}

func Internal(err error) Error {
	return Error{
		Type:    ErrorTypeInternal,
		Code:    CodeInternalFailure,
		Message: "Internal server error",
		cause:   err,
	}
}

// Errors normalizes any error into an ErrorList. Unknown errors become a
// single internal failure.
func Errors(err error) ErrorList {
	if err == nil {
		return nil
	}
	var list ErrorList
	if errors.As(err, &list) {
		return list
	}
	var single Error
	if errors.As(err, &single) {
		return ErrorList{single}
	}
	return ErrorList{Internal(err)}
}
