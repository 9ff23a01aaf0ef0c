package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/core/dashboard"
	"github.com/trezcool/preschool/core/identity"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errProfileNotFound      = echo.NewHTTPError(http.StatusNotFound, core.ErrProfileNotFound.Error())
	errDashboardNotLoaded   = echo.NewHTTPError(http.StatusConflict, dashboard.ErrNotLoaded.Error())
	errDashboardUnmounted   = echo.NewHTTPError(http.StatusConflict, dashboard.ErrUnmounted.Error())
	errInvalidCredentials   = echo.NewHTTPError(http.StatusBadRequest, identity.ErrInvalidCredentials.Error())
	errInvalidMonthStep     = echo.NewHTTPError(http.StatusBadRequest, dashboard.ErrInvalidDirection.Error())
	errEmptyChatMessage     = echo.NewHTTPError(http.StatusBadRequest, chat.ErrEmptyMessage.Error())
	errSessionNotAuthorized = echo.NewHTTPError(http.StatusUnauthorized, identity.ErrInvalidSession.Error())
)

// domainHTTPError maps the sentinel errors of the core packages to their HTTP errors.
func domainHTTPError(err error) error {
	switch err {
	case identity.ErrInvalidCredentials:
		return errInvalidCredentials
	case identity.ErrInvalidSession:
		return errSessionNotAuthorized
	case core.ErrProfileNotFound:
		return errProfileNotFound
	case dashboard.ErrNotLoaded:
		return errDashboardNotLoaded
	case dashboard.ErrUnmounted:
		return errDashboardUnmounted
	case dashboard.ErrInvalidDirection:
		return errInvalidMonthStep
	case chat.ErrEmptyMessage:
		return errEmptyChatMessage
	}
	return err
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := domainHTTPError(errors.Cause(err)).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.ValidationError{Fields: core.TranslateValidationErrors(origErr, translator)}.FieldsMap()
		case *core.ValidationError:
			if origErr.Fields != nil {
				message = origErr.FieldsMap()
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			if p, ok := getContextProfile(ctx); ok {
				logger.Error(msg, errors.Wrap(err, msg), p)
			} else {
				logger.Error(msg, errors.Wrap(err, msg))
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
