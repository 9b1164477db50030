package handler

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "residentportal/internal/errors"
	"residentportal/internal/service"
)

// AccountHandler handles staff account endpoints.
type AccountHandler struct {
	accountService service.AccountService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// GetAccount godoc
// @Summary Look up an account
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} UserEnvelope
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/accounts/{id} [get]
func (h *AccountHandler) GetAccount(c echo.Context) error {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorResponse(fmt.Errorf("%w: invalid account ID", apperrors.ErrValidation))
	}

	account, err := h.accountService.GetAccount(requestContext(c), accountID)
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, UserEnvelope{Status: apperrors.StatusSuccess, User: toUserResponse(account)})
}
