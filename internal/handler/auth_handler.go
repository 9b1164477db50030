package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "residentportal/internal/errors"
	"residentportal/internal/middleware"
	"residentportal/internal/model"
	"residentportal/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a resident self-registration request.
type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email,max=255"`
	Password      string `json:"password" validate:"required,max=72"`
	FirstName     string `json:"first_name" validate:"required,max=100"`
	MiddleName    string `json:"middle_name" validate:"omitempty,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	ContactNumber string `json:"contact_number" validate:"omitempty,max=32"`
	Address       string `json:"address" validate:"omitempty,max=255"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// EmailRequest carries only an email address.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// TokenRequest carries a single-use token.
type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ResetPasswordRequest represents a password reset request.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

// Register godoc
// @Summary Register a new resident account
// @Description Creates an unverified account and emails a verification link. No session token is issued.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	_, err := h.authService.Register(requestContext(c), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Profile: model.Profile{
			FirstName:     req.FirstName,
			MiddleName:    req.MiddleName,
			LastName:      req.LastName,
			ContactNumber: req.ContactNumber,
			Address:       req.Address,
		},
	})
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusCreated, success(service.MsgRegistered))
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Profile godoc
// @Summary Get the authenticated account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserEnvelope
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return errorResponse(apperrors.ErrUnauthenticated)
	}

	account, err := h.authService.Profile(requestContext(c), p.AccountID)
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, UserEnvelope{Status: apperrors.StatusSuccess, User: toUserResponse(account)})
}

// ForgotPassword godoc
// @Summary Request a password reset link
// @Description Always answers with the same message whether or not the email is registered.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req EmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ForgotPassword(requestContext(c), req.Email); err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, success(service.MsgResetRequested))
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(requestContext(c), req.Token, req.Password); err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, success(service.MsgPasswordReset))
}

// VerifyEmail godoc
// @Summary Verify an email address
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Verification token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req TokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.VerifyEmail(requestContext(c), req.Token); err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, success(service.MsgEmailVerified))
}

// ResendVerification godoc
// @Summary Resend the verification link
// @Description Unknown emails get the same answer as a successful resend.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req EmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResendVerification(requestContext(c), req.Email); err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, success(service.MsgVerificationResent))
}

// Refresh godoc
// @Summary Reissue the session token
// @Description Claims are rebuilt from the current account, so role changes are picked up.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return errorResponse(apperrors.ErrUnauthenticated)
	}

	session, err := h.authService.RefreshToken(requestContext(c), p.AccountID)
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func toSessionResponse(s *service.Session) SessionResponse {
	return SessionResponse{
		Status:    apperrors.StatusSuccess,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User:      toUserResponse(s.Account),
	}
}
