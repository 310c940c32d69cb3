// Package errs defines the typed domain errors returned by the service layer.
package errs

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// existence
	CodeMomentNotFound       Code = "MOMENT_NOT_FOUND"
	CodeCircleNotFound       Code = "CIRCLE_NOT_FOUND"
	CodeRegistrationNotFound Code = "REGISTRATION_NOT_FOUND"
	CodeCommentNotFound      Code = "COMMENT_NOT_FOUND"
	CodeUserNotFound         Code = "USER_NOT_FOUND"

	// state
	CodeMomentNotOpenForRegistration Code = "MOMENT_NOT_OPEN_FOR_REGISTRATION"
	CodeMomentAlreadyStarted         Code = "MOMENT_ALREADY_STARTED"
	CodeAlreadyRegistered            Code = "ALREADY_REGISTERED"
	CodeRegistrationNotConfirmed     Code = "REGISTRATION_NOT_CONFIRMED"
	CodeAlreadyFollowingCircle       Code = "ALREADY_FOLLOWING_CIRCLE"
	CodeNotFollowingCircle           Code = "NOT_FOLLOWING_CIRCLE"
	CodeNotMemberOfCircle            Code = "NOT_MEMBER_OF_CIRCLE"

	// authorization
	CodeUnauthorizedCircleAction       Code = "UNAUTHORIZED_CIRCLE_ACTION"
	CodeUnauthorizedMomentAction       Code = "UNAUTHORIZED_MOMENT_ACTION"
	CodeUnauthorizedRegistrationAction Code = "UNAUTHORIZED_REGISTRATION_ACTION"
	CodeUnauthorizedCommentDeletion    Code = "UNAUTHORIZED_COMMENT_DELETION"
	CodeHostCannotCancelRegistration   Code = "HOST_CANNOT_CANCEL_REGISTRATION"
	CodeCannotLeaveAsHost              Code = "CANNOT_LEAVE_AS_HOST"
	CodeAdminUnauthorized              Code = "ADMIN_UNAUTHORIZED"

	// policy
	CodePaidMomentNotSupported  Code = "PAID_MOMENT_NOT_SUPPORTED"
	CodeCommentContentEmpty     Code = "COMMENT_CONTENT_EMPTY"
	CodeCommentContentTooLong   Code = "COMMENT_CONTENT_TOO_LONG"
	CodeSlugAlreadyExists       Code = "SLUG_ALREADY_EXISTS"
	CodeMomentSlugAlreadyExists Code = "MOMENT_SLUG_ALREADY_EXISTS"
)

// HTTPStatus maps a code to the status the HTTP layer answers with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMomentNotFound, CodeCircleNotFound, CodeRegistrationNotFound,
		CodeCommentNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeMomentNotOpenForRegistration, CodeMomentAlreadyStarted, CodeAlreadyRegistered,
		CodeRegistrationNotConfirmed, CodeAlreadyFollowingCircle, CodeNotFollowingCircle,
		CodeNotMemberOfCircle, CodeSlugAlreadyExists, CodeMomentSlugAlreadyExists:
		return http.StatusConflict
	case CodeUnauthorizedCircleAction, CodeUnauthorizedMomentAction,
		CodeUnauthorizedRegistrationAction, CodeUnauthorizedCommentDeletion,
		CodeHostCannotCancelRegistration, CodeCannotLeaveAsHost, CodeAdminUnauthorized:
		return http.StatusForbidden
	case CodePaidMomentNotSupported, CodeCommentContentEmpty, CodeCommentContentTooLong:
		return http.StatusUnprocessableEntity
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying a code.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Invalid creates an INVALID_ARGUMENT error.
func Invalid(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// CodeOf extracts the code of a domain error, CodeUnknown for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

var (
	ErrMomentNotFound       = New(CodeMomentNotFound, "moment not found")
	ErrCircleNotFound       = New(CodeCircleNotFound, "circle not found")
	ErrRegistrationNotFound = New(CodeRegistrationNotFound, "registration not found")
	ErrCommentNotFound      = New(CodeCommentNotFound, "comment not found")
	ErrUserNotFound         = New(CodeUserNotFound, "user not found")

	ErrMomentNotOpenForRegistration = New(CodeMomentNotOpenForRegistration, "moment is not open for registration")
	ErrMomentAlreadyStarted         = New(CodeMomentAlreadyStarted, "moment has already started")
	ErrAlreadyRegistered            = New(CodeAlreadyRegistered, "already registered for this moment")
	ErrRegistrationNotConfirmed     = New(CodeRegistrationNotConfirmed, "registration is not confirmed")
	ErrAlreadyFollowingCircle       = New(CodeAlreadyFollowingCircle, "already following this circle")
	ErrNotFollowingCircle           = New(CodeNotFollowingCircle, "not following this circle")
	ErrNotMemberOfCircle            = New(CodeNotMemberOfCircle, "not a member of this circle")

	ErrUnauthorizedCircleAction       = New(CodeUnauthorizedCircleAction, "only a host can do this to the circle")
	ErrUnauthorizedMomentAction       = New(CodeUnauthorizedMomentAction, "only a host can do this to the moment")
	ErrUnauthorizedRegistrationAction = New(CodeUnauthorizedRegistrationAction, "registration belongs to another user")
	ErrUnauthorizedCommentDeletion    = New(CodeUnauthorizedCommentDeletion, "only the author or a host can delete this comment")
	ErrHostCannotCancelRegistration   = New(CodeHostCannotCancelRegistration, "a host cannot cancel their registration, cancel the moment instead")
	ErrCannotLeaveAsHost              = New(CodeCannotLeaveAsHost, "a host cannot leave the circle")
	ErrAdminUnauthorized              = New(CodeAdminUnauthorized, "admin privileges required")

	ErrPaidMomentNotSupported  = New(CodePaidMomentNotSupported, "paid moments are not supported")
	ErrCommentContentEmpty     = New(CodeCommentContentEmpty, "comment content is empty")
	ErrCommentContentTooLong   = New(CodeCommentContentTooLong, "comment content is too long")
	ErrSlugAlreadyExists       = New(CodeSlugAlreadyExists, "circle slug already exists")
	ErrMomentSlugAlreadyExists = New(CodeMomentSlugAlreadyExists, "moment slug already exists")
)
