package echoapi

import (
	"html/template"
	"io"
	"path"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/preschool/assets"
)

const dashboardTemplate = "dashboard.gohtml"

// templateRenderer renders the embedded web templates.
type templateRenderer struct {
	tmpl *template.Template
}

var _ echo.Renderer = (*templateRenderer)(nil)

func newTemplateRenderer() *templateRenderer {
	tmpl := template.Must(template.ParseFS(assets.Templates, path.Join(assets.WebTemplatesDir, "*.gohtml")))
	return &templateRenderer{tmpl: tmpl}
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return errors.Wrapf(r.tmpl.ExecuteTemplate(w, name, data), "rendering %s", name)
}
