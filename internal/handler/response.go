package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "residentportal/internal/errors"
	"residentportal/internal/model"
)

// MessageResponse is the envelope for operations that only report an outcome.
type MessageResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID            uuid.UUID     `json:"id"`
	Email         string        `json:"email"`
	Role          model.Role    `json:"role" example:"RESIDENT"`
	EmailVerified bool          `json:"email_verified"`
	IsActive      bool          `json:"is_active"`
	Profile       model.Profile `json:"profile"`
	CreatedAt     time.Time     `json:"created_at"`
}

// SessionResponse carries an issued session token.
type SessionResponse struct {
	Status    string       `json:"status" example:"success"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserEnvelope wraps a single account.
type UserEnvelope struct {
	Status string       `json:"status" example:"success"`
	User   UserResponse `json:"user"`
}

func toUserResponse(a *model.Account) UserResponse {
	return UserResponse{
		ID:            a.ID,
		Email:         a.Email,
		Role:          a.Role,
		EmailVerified: a.EmailVerified,
		IsActive:      a.IsActive,
		Profile:       a.Profile,
		CreatedAt:     a.CreatedAt,
	}
}

func success(message string) MessageResponse {
	return MessageResponse{Status: apperrors.StatusSuccess, Message: message}
}

// errorResponse converts a service error into an echo HTTP error carrying the
// standard envelope.
func errorResponse(err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

// bindAndValidate decodes the JSON body into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errorResponse(fmt.Errorf("%w: invalid request body", apperrors.ErrValidation))
	}
	if err := c.Validate(req); err != nil {
		return errorResponse(fmt.Errorf("%w: %s", apperrors.ErrValidation, describeValidation(err)))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// requestContext detaches the request context from client cancellation so
// that a started write is allowed to finish.
func requestContext(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}
