package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"validation keeps detail", fmt.Errorf("%w: password too short", ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR", "invalid input: password too short"},
		{"conflict", ErrConflict, http.StatusBadRequest, "EMAIL_TAKEN", ErrConflict.Error()},
		{"wrapped credentials", fmt.Errorf("login: %w", ErrInvalidCredentials), http.StatusUnauthorized, "INVALID_CREDENTIALS", ErrInvalidCredentials.Error()},
		{"token", ErrTokenInvalid, http.StatusBadRequest, "TOKEN_INVALID", ErrTokenInvalid.Error()},
		{"not verified", ErrEmailNotVerified, http.StatusForbidden, "EMAIL_NOT_VERIFIED", ErrEmailNotVerified.Error()},
		{"deactivated", ErrAccountDeactivated, http.StatusForbidden, "ACCOUNT_DEACTIVATED", ErrAccountDeactivated.Error()},
		{"already verified", ErrAlreadyVerified, http.StatusBadRequest, "ALREADY_VERIFIED", ErrAlreadyVerified.Error()},
		{"not found", ErrNotFound, http.StatusNotFound, "NOT_FOUND", ErrNotFound.Error()},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED", ErrUnauthenticated.Error()},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN", ErrForbidden.Error()},
		{"unknown hides detail", errors.New("dial tcp 10.0.0.1:3306: refused"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantMessage, got.Message)
		})
	}
}

func TestToErrorResponse(t *testing.T) {
	assert.Equal(t, ErrorResponse{Status: StatusFail, Message: "m", Code: "C"}, NewHTTPError(http.StatusForbidden, "m", "C").ToErrorResponse())
	assert.Equal(t, StatusError, NewHTTPError(http.StatusBadGateway, "m", "C").ToErrorResponse().Status)
	assert.Equal(t, StatusSuccess, StatusFor(http.StatusOK))
}
