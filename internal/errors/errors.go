package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation is returned when request input is malformed.
	ErrValidation = errors.New("invalid input")
	// ErrConflict is returned when an email is already registered.
	ErrConflict = errors.New("email is already registered")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrTokenInvalid is returned for unknown, already used or expired tokens.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrEmailNotVerified is returned when logging in before verification.
	ErrEmailNotVerified = errors.New("email address has not been verified")
	// ErrAccountDeactivated is returned when the account has been disabled.
	ErrAccountDeactivated = errors.New("account is deactivated")
	// ErrAlreadyVerified is returned when resending verification for a verified account.
	ErrAlreadyVerified = errors.New("email address is already verified")
	// ErrNotFound is returned when an account is not found.
	ErrNotFound = errors.New("account not found")
	// ErrUnauthenticated is returned when no valid session token was presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the principal's role is not allowed.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrConfiguration is returned when the process is started with unusable settings.
	ErrConfiguration = errors.New("invalid configuration")
)

// Response statuses used in the JSON envelope.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Status:  StatusFor(e.StatusCode),
		Message: e.Message,
		Code:    e.Code,
	}
}

// StatusFor returns the envelope status for an HTTP status code.
func StatusFor(code int) string {
	switch {
	case code >= http.StatusInternalServerError:
		return StatusError
	case code >= http.StatusBadRequest:
		return StatusFail
	default:
		return StatusSuccess
	}
}

var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrConflict, http.StatusBadRequest, "EMAIL_TAKEN"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrTokenInvalid, http.StatusBadRequest, "TOKEN_INVALID"},
	{ErrEmailNotVerified, http.StatusForbidden, "EMAIL_NOT_VERIFIED"},
	{ErrAccountDeactivated, http.StatusForbidden, "ACCOUNT_DEACTIVATED"},
	{ErrAlreadyVerified, http.StatusBadRequest, "ALREADY_VERIFIED"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Unknown errors become a
// generic 500 so that no internal detail reaches the client.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, messageFor(err, m.err), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}

// messageFor keeps the detail of wrapped validation errors (field names) and
// the bare sentinel text for everything else.
func messageFor(err, sentinel error) string {
	if sentinel == ErrValidation {
		return err.Error()
	}
	return sentinel.Error()
}
