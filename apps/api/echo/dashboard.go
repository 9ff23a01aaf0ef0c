package echoapi

import (
	"html/template"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/calendar"
	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/core/dashboard"
	"github.com/trezcool/preschool/core/user"
)

const chartPath = "/v1/dashboard/chart.svg"

type (
	DashboardResponse struct {
		dashboard.Snapshot
		Notice   string `json:"notice,omitempty"`
		ChartURL string `json:"chart_url,omitempty"`
	}

	MonthRequest struct {
		Direction int `json:"direction" validate:"required,oneof=-1 1"`
	}

	dashboardPage struct {
		Profile  user.Profile
		Snapshot dashboard.Snapshot
		Notice   string
		Chart    template.HTML
		Widget   chat.WidgetConfig
	}
)

type dashboardApi struct {
	dashboards *dashboard.Registry
	validate   *validator.Validate
	widgetConf chat.WidgetConfig
}

func registerDashboardAPI(
	g *echo.Group,
	auth *authenticator,
	gate *user.Gate,
	dashboards *dashboard.Registry,
	validate *validator.Validate,
	chatConf core.ChatConfig,
) {
	api := dashboardApi{
		dashboards: dashboards,
		validate:   validate,
		widgetConf: chat.NewWidgetConfig(chatConf),
	}
	parentsOnly := []echo.MiddlewareFunc{profileMiddleware(gate), roleMiddleware(user.RoleParent)}

	dg := g.Group("/dashboard", auth.required()...)
	dg.Use(parentsOnly...)
	dg.GET("", api.retrieve)
	dg.POST("/month", api.changeMonth)
	dg.DELETE("", api.unmount)
	dg.GET("/chart.svg", api.chart)

	// browsers open the page with the token in the query string
	pg := g.Group("/dashboard/page", auth.requiredForPage()...)
	pg.Use(parentsOnly...)
	pg.GET("", api.page)
}

// mount opens the session's dashboard and loads it once.
func (api *dashboardApi) mount(ctx echo.Context) (*dashboard.Session, user.Profile, error) {
	id, err := sessionIdentity(ctx)
	if err != nil {
		return nil, user.Profile{}, err
	}
	p, ok := getContextProfile(ctx)
	if !ok {
		return nil, user.Profile{}, errProfileNotFound
	}

	sess := api.dashboards.Open(id.SessionID, p.StudentID.String)
	if err = sess.View.Mount(ctx.Request().Context()); err != nil {
		if err == dashboard.ErrUnmounted {
			return nil, p, err
		}
		return nil, p, errors.Wrap(err, "mounting dashboard")
	}
	return sess, p, nil
}

func newDashboardResponse(snap dashboard.Snapshot) DashboardResponse {
	resp := DashboardResponse{Snapshot: snap}
	if snap.State == dashboard.StateNoData {
		resp.Notice = user.StudentNotLinked
	}
	if snap.Chart != nil && snap.Chart.Charted() {
		resp.ChartURL = chartPath
	}
	return resp
}

// Handlers

func (api *dashboardApi) retrieve(ctx echo.Context) error {
	sess, _, err := api.mount(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newDashboardResponse(sess.View.Snapshot()))
}

func (api *dashboardApi) changeMonth(ctx echo.Context) error {
	var data MonthRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MonthRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	id, err := sessionIdentity(ctx)
	if err != nil {
		return err
	}
	sess, ok := api.dashboards.Get(id.SessionID)
	if !ok {
		return dashboard.ErrNotLoaded
	}
	month, err := sess.View.ChangeMonth(data.Direction)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"calendar": month, "legend": calendar.LegendItems()})
}

func (api *dashboardApi) unmount(ctx echo.Context) error {
	id, err := sessionIdentity(ctx)
	if err != nil {
		return err
	}
	api.dashboards.Close(id.SessionID)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *dashboardApi) chart(ctx echo.Context) error {
	id, err := sessionIdentity(ctx)
	if err != nil {
		return err
	}
	sess, ok := api.dashboards.Get(id.SessionID)
	if !ok {
		return errHttpNotFound
	}
	svg, ok := sess.View.ChartSVG()
	if !ok {
		return errHttpNotFound
	}
	return ctx.Blob(http.StatusOK, "image/svg+xml", svg)
}

func (api *dashboardApi) page(ctx echo.Context) error {
	sess, p, err := api.mount(ctx)
	if err != nil {
		return err
	}
	snap := sess.View.Snapshot()

	data := dashboardPage{
		Profile:  p,
		Snapshot: snap,
		Notice:   newDashboardResponse(snap).Notice,
		Widget:   api.widgetConf,
	}
	if svg, ok := sess.View.ChartSVG(); ok {
		data.Chart = template.HTML(svg) // drawn by go-chart from parsed integers
	}
	return ctx.Render(http.StatusOK, dashboardTemplate, data)
}
