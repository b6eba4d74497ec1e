// Package errors contains helper functions and types to work with errors
package errors

import (
	"errors"
	"net/http"
)

// Category defines error category
type Category int

const (
	// CategoryNoError is the zero value, kept so that a freshly constructed
	// ServiceError without an explicit category is not mistaken for a client error.
	CategoryNoError Category = iota
	// CategoryInputInvalid The caller sent malformed or out-of-range data,
	// for example mismatched batch lengths or a cooldown above the ceiling.
	CategoryInputInvalid
	// CategoryAuthorizationDenied The caller lacks the required role or approval
	CategoryAuthorizationDenied
	// CategoryNotFound The caller is querying a token id that does not exist
	CategoryNotFound
	// CategoryPolicyViolation A transfer was rejected by the policy pipeline
	// (suspension, freeze, or cooldown)
	CategoryPolicyViolation
	// CategorySignatureInvalid A permit or caller signature failed verification
	// (wrong signer, stale nonce, expired deadline, self approval)
	CategorySignatureInvalid
	// CategoryGeneralError The service failed in an unexpected way
	CategoryGeneralError
)

func (c Category) String() string {
	switch c {
	case CategoryInputInvalid:
		return "CategoryInputInvalid"
	case CategoryAuthorizationDenied:
		return "CategoryAuthorizationDenied"
	case CategoryNotFound:
		return "CategoryNotFound"
	case CategoryPolicyViolation:
		return "CategoryPolicyViolation"
	case CategorySignatureInvalid:
		return "CategorySignatureInvalid"
	default:
		return "CategoryGeneralError"
	}
}

// ServiceError represents service specific type that
// is used all over the services.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is implements the custom condition to check an error is equal to a service error
func (err ServiceError) Is(target error) bool {
	return err.Message == target.Error()
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category == cat {
		return true
	}
	return false
}

// IsInternalError checks that provided error is an internal system error
func IsInternalError(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && (svcErr.Category < CategoryGeneralError) {
		return false
	}
	return true
}

// GeneralError returns a general service error
// this error message sent to the user is "Internal Server Error"
// the error passed is logged in the logger
func GeneralError(err error) error {
	if err == nil {
		err = errors.New("internal server error")
	}
	return &ServiceError{
		Category: CategoryGeneralError,
		Message:  "Internal Server Error",
		Err:      err,
	}
}

// NotFoundError returns an error with category NotFound
// the error message provided is returned to the user
// the err object provided is logged in logger
func NotFoundError(err error, message string) error {
	if err == nil {
		err = errors.New("not found: " + message)
	}
	return &ServiceError{
		Category: CategoryNotFound,
		Message:  message,
		Err:      err,
	}
}

// InputInvalidError returns an error with category InputInvalid
// the error message provided is returned to the user
// the error object provided is logged in logger
func InputInvalidError(err error, message string) error {
	if err == nil {
		err = errors.New("invalid input: " + message)
	}
	return &ServiceError{
		Category: CategoryInputInvalid,
		Message:  message,
		Err:      err,
	}
}

// AuthorizationDeniedError returns an error with category AuthorizationDenied
// the error message provided is returned to the user
// the error object provided is logged in logger
func AuthorizationDeniedError(err error, message string) error {
	if err == nil {
		err = errors.New("authorization denied")
	}
	return &ServiceError{
		Category: CategoryAuthorizationDenied,
		Message:  message,
		Err:      err,
	}
}

// PolicyViolationError returns an error with category PolicyViolation
// the error message provided is returned to the user
// the error object provided is logged in logger
func PolicyViolationError(err error, message string) error {
	if err == nil {
		err = errors.New("policy violation")
	}
	return &ServiceError{
		Category: CategoryPolicyViolation,
		Message:  message,
		Err:      err,
	}
}

// SignatureInvalidError returns an error with category SignatureInvalid
// the error message provided is returned to the user
// the error object provided is logged in logger
func SignatureInvalidError(err error, message string) error {
	if err == nil {
		err = errors.New("signature invalid")
	}
	return &ServiceError{
		Category: CategorySignatureInvalid,
		Message:  message,
		Err:      err,
	}
}

// StatusCode returns the HTTP status code for the error category
func (err ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryInputInvalid:
		return http.StatusBadRequest
	case CategoryAuthorizationDenied:
		return http.StatusForbidden
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryPolicyViolation:
		return http.StatusLocked
	case CategorySignatureInvalid:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
