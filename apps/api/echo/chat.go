package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/core/dashboard"
	"github.com/trezcool/preschool/core/user"
)

type (
	ChatRequest struct {
		Message string `json:"message" validate:"required,notblank_,max=2000"`
	}

	ChatResponse struct {
		Reply string `json:"reply"`
	}
)

type chatApi struct {
	client     *chat.Client
	dashboards *dashboard.Registry
	validate   *validator.Validate
}

func registerChatAPI(
	g *echo.Group,
	auth *authenticator,
	gate *user.Gate,
	dashboards *dashboard.Registry,
	client *chat.Client,
	validate *validator.Validate,
) {
	api := chatApi{
		client:     client,
		dashboards: dashboards,
		validate:   validate,
	}

	cg := g.Group("/chat", auth.required()...)
	cg.Use(profileMiddleware(gate))
	cg.POST("", api.ask)
	cg.GET("/widget", api.widget, roleMiddleware(user.RoleParent))
}

// Handlers

func (api *chatApi) ask(ctx echo.Context) error {
	var data ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	reply, err := api.client.Ask(ctx.Request().Context(), data.Message)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ChatResponse{Reply: reply})
}

// widget mounts the chat widget of the session's dashboard, once, and returns its status.
func (api *chatApi) widget(ctx echo.Context) error {
	id, err := sessionIdentity(ctx)
	if err != nil {
		return err
	}
	p, ok := getContextProfile(ctx)
	if !ok {
		return errProfileNotFound
	}

	sess := api.dashboards.Open(id.SessionID, p.StudentID.String)
	return ctx.JSON(http.StatusOK, sess.Widget.Mount(ctx.Request().Context()))
}
