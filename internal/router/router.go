package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	echoSwagger "github.com/swaggo/echo-swagger"

	apperrors "residentportal/internal/errors"
	"residentportal/internal/handler"
	"residentportal/internal/logging"
	"residentportal/internal/middleware"
	"residentportal/internal/model"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the routes are wired to.
type Deps struct {
	Logger         *slog.Logger
	CORSOrigins    []string
	Verifier       middleware.PrincipalVerifier
	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	Cache          Pinger
}

// Register wires routes and middleware.
func Register(e *echo.Echo, d Deps) {
	e.HTTPErrorHandler = ErrorHandler(d.Logger)
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(echomw.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echo.WrapMiddleware(cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler))

	e.GET("/healthz", healthz(d.Cache))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authenticated := middleware.Authenticate(d.Verifier)

	g := e.Group("/auth")
	g.POST("/register", d.AuthHandler.Register)
	g.POST("/login", d.AuthHandler.Login)
	g.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	g.POST("/reset-password", d.AuthHandler.ResetPassword)
	g.POST("/verify-email", d.AuthHandler.VerifyEmail)
	g.POST("/resend-verification", d.AuthHandler.ResendVerification)
	g.GET("/profile", d.AuthHandler.Profile, authenticated)
	g.POST("/refresh", d.AuthHandler.Refresh, authenticated)

	admin := e.Group("/admin", authenticated, middleware.RequireRoles(model.RoleAdmin, model.RoleStaff))
	admin.GET("/accounts/:id", d.AccountHandler.GetAccount)
}

func healthz(cache Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if cache != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
			defer cancel()
			if err := cache.Ping(ctx); err != nil {
				return c.String(http.StatusOK, "ok (redis unavailable)")
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}

// requestLogger logs each request through slog and stores a request-scoped
// logger carrying the request id.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			l := logger.With("request_id", reqID)
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			level := slog.LevelInfo
			if status := c.Response().Status; status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			l.Log(req.Context(), level, "request",
				"method", req.Method,
				"uri", req.RequestURI,
				"status", c.Response().Status,
				"latency", time.Since(start),
				"remote_ip", c.RealIP(),
			)
			return nil
		}
	}
}

// ErrorHandler renders every error in the standard envelope. Domain errors
// are mapped through errors.MapErrorToHTTP; echo errors keep their status.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			logging.FromContext(c.Request().Context(), logger).Error("request failed", "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logging.FromContext(c.Request().Context(), logger).Error("write error response", "error", err)
		}
	}
}

func render(err error) (int, apperrors.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, apperrors.ErrorResponse{Status: apperrors.StatusError, Message: "internal server error", Code: "INTERNAL_ERROR"}
		}
		switch msg := he.Message.(type) {
		case apperrors.ErrorResponse:
			return he.Code, msg
		case string:
			return he.Code, apperrors.ErrorResponse{Status: apperrors.StatusFor(he.Code), Message: msg, Code: codeFor(he.Code)}
		default:
			text := http.StatusText(he.Code)
			return he.Code, apperrors.ErrorResponse{Status: apperrors.StatusFor(he.Code), Message: text, Code: codeFor(he.Code)}
		}
	}

	httpErr := apperrors.MapErrorToHTTP(err)
	return httpErr.StatusCode, httpErr.ToErrorResponse()
}

func codeFor(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "BODY_TOO_LARGE"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "ERROR"
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
