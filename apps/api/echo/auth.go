package echoapi

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core/identity"
	"github.com/trezcool/preschool/core/user"
)

const (
	contextTokenKey    = "userToken"
	contextIdentityKey = "identity"
	contextProfileKey  = "profile"

	bearerPrefix = "Bearer "
)

// authenticator checks the JWT of a request (signature & expiry), then that its session is still live.
type authenticator struct {
	identities identity.Provider
	jwt        echo.MiddlewareFunc // token from the Authorization header
	pageJWT    echo.MiddlewareFunc // token from the `token` query param, for pages opened by a browser
}

func newAuthenticator(secretKey string, identities identity.Provider) *authenticator {
	conf := middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(identity.Claims),
	}
	pageConf := conf
	pageConf.TokenLookup = "query:token"

	return &authenticator{
		identities: identities,
		jwt:        middleware.JWTWithConfig(conf),
		pageJWT:    middleware.JWTWithConfig(pageConf),
	}
}

// required returns the middlewares of endpoints needing a live session.
func (a *authenticator) required() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{a.jwt, a.session}
}

func (a *authenticator) requiredForPage() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{a.pageJWT, a.session}
}

func (a *authenticator) session(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, ok := ctx.Get(contextTokenKey).(*jwt.Token)
		if !ok {
			return errUnauthorized
		}
		id, err := a.identities.Authenticate(ctx.Request().Context(), token.Raw)
		if err != nil {
			if err == identity.ErrInvalidSession {
				return errUnauthorized
			}
			return errors.Wrap(err, "authenticating session")
		}
		ctx.Set(contextIdentityKey, id)
		return next(ctx)
	}
}

// optional authenticates the request when it carries a live session; any other request goes through anonymously.
func (a *authenticator) optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(auth, bearerPrefix) {
			return next(ctx)
		}
		id, err := a.identities.Authenticate(ctx.Request().Context(), auth[len(bearerPrefix):])
		switch err {
		case nil:
			ctx.Set(contextIdentityKey, id)
		case identity.ErrInvalidSession:
		default:
			return errors.Wrap(err, "authenticating session")
		}
		return next(ctx)
	}
}

func getContextIdentity(ctx echo.Context) (identity.Identity, bool) {
	id, ok := ctx.Get(contextIdentityKey).(identity.Identity)
	return id, ok
}

func getContextProfile(ctx echo.Context) (user.Profile, bool) {
	p, ok := ctx.Get(contextProfileKey).(user.Profile)
	return p, ok
}
