// Package middleware holds the echo middleware that guards authenticated routes.
package middleware

import (
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"residentportal/internal/auth"
	apperrors "residentportal/internal/errors"
	"residentportal/internal/logging"
	"residentportal/internal/model"
)

const principalKey = "principal"

// PrincipalVerifier turns a bearer token into a principal.
type PrincipalVerifier interface {
	VerifyPrincipal(token string) (auth.Principal, error)
}

// Authenticate requires an "Authorization: Bearer <token>" header carrying a
// valid, unexpired session token. The verified principal is stored on the
// context for PrincipalFrom.
func Authenticate(verifier PrincipalVerifier) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  principalKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			p, err := verifier.VerifyPrincipal(token)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logging.FromContext(c.Request().Context(), nil).Debug("session token rejected", "error", err)
			return apperrors.ErrUnauthenticated
		},
	})
}

// RequireRoles allows the request through only when the authenticated
// principal holds one of roles. It must run after Authenticate.
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return apperrors.ErrUnauthenticated
			}
			if _, ok := allowed[p.Role]; !ok {
				return apperrors.ErrForbidden
			}
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(principalKey).(auth.Principal)
	return p, ok
}
