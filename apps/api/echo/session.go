package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core/user"
)

type SessionResponse struct {
	user.Session
	Welcome string `json:"welcome,omitempty"`
}

type sessionApi struct {
	gate *user.Gate
}

func registerSessionAPI(g *echo.Group, auth *authenticator, gate *user.Gate) {
	api := sessionApi{gate: gate}

	// anonymous requests get the login view
	g.GET("/session", api.retrieve, auth.optional)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	id, _ := getContextIdentity(ctx)
	sess, err := api.gate.Resolve(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "resolving session")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{Session: sess, Welcome: sess.Welcome()})
}

// profileMiddleware resolves the profile of the authed session and puts it in the context.
// Sessions without a profile are rejected.
func profileMiddleware(gate *user.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := sessionIdentity(ctx)
			if err != nil {
				return err
			}
			sess, err := gate.Resolve(ctx.Request().Context(), id)
			if err != nil {
				return errors.Wrap(err, "resolving session")
			}
			if sess.Profile == nil {
				return errProfileNotFound
			}
			ctx.Set(contextProfileKey, *sess.Profile)
			return next(ctx)
		}
	}
}

// roleMiddleware only lets through profiles having one of the given roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, ok := getContextProfile(ctx)
			if !ok {
				return errProfileNotFound
			}
			for _, r := range roles {
				if p.Role == r {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
