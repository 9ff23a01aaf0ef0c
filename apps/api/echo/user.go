package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core/identity"
	"github.com/trezcool/preschool/core/user"
)

type (
	SignupResponse struct {
		Message   string       `json:"message"`
		Profile   user.Profile `json:"profile"`
		Token     string       `json:"token"`
		ExpiresAt time.Time    `json:"expires_at"`
	}

	LoginResponse struct {
		Token     string       `json:"token"`
		ExpiresAt time.Time    `json:"expires_at"`
		View      user.View    `json:"view"`
		Profile   user.Profile `json:"profile"`
	}
)

type authApi struct {
	svc *user.Service
}

func registerAuthAPI(g *echo.Group, auth *authenticator, svc *user.Service) {
	api := authApi{svc: svc}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login` once the API runs behind a shared cache
	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)

	// authed endpoints
	ag.POST("/logout", api.logout, auth.required()...)
}

// Handlers

func (api *authApi) signup(ctx echo.Context) error {
	var data user.Signup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Signup")
	}

	p, id, err := api.svc.Signup(ctx.Request().Context(), data)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, SignupResponse{
		Message:   user.SignupSuccessMessage,
		Profile:   p,
		Token:     id.Token,
		ExpiresAt: id.ExpiresAt,
	})
}

func (api *authApi) login(ctx echo.Context) error {
	var data user.Login
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Login")
	}

	p, id, err := api.svc.Login(ctx.Request().Context(), data)
	if err != nil {
		return err
	}

	view := user.ViewParent
	if p.IsTeacher() {
		view = user.ViewTeacher
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:     id.Token,
		ExpiresAt: id.ExpiresAt,
		View:      view,
		Profile:   p,
	})
}

func (api *authApi) logout(ctx echo.Context) error {
	id, err := sessionIdentity(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Logout(ctx.Request().Context(), id.SessionID); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// sessionIdentity returns the identity of an authed request.
func sessionIdentity(ctx echo.Context) (identity.Identity, error) {
	id, ok := getContextIdentity(ctx)
	if !ok {
		return identity.Identity{}, errUnauthorized
	}
	return id, nil
}
