package marks

import (
	"bytes"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultSurfaceID = "marksChart"

	chartWidth  = 600
	chartHeight = 400
	barWidth    = 80
	borderWidth = 2
	maxMark     = 100
	markStep    = 10
)

// Surface is a drawing target, identified by a stable id.
type Surface struct {
	ID string
}

var DefaultSurface = Surface{ID: DefaultSurfaceID}

// Result is the outcome of rendering scores: either a placeholder text or an SVG chart.
type Result struct {
	SurfaceID   string `json:"surface_id"`
	Placeholder string `json:"placeholder,omitempty"`
	SVG         []byte `json:"-"`
}

func (r Result) Charted() bool { return r.Placeholder == "" && len(r.SVG) > 0 }

// Chart is a chart bound to a surface.
type Chart struct {
	surface  Surface
	graph    chart.BarChart
	svg      []byte
	disposed bool
}

func (c *Chart) Disposed() bool { return c.disposed }

func (c *Chart) dispose() {
	c.disposed = true
	c.svg = nil
	c.graph.Bars = nil
}

// Renderer owns the charts drawn on its surfaces: at most one live chart per surface.
// It is safe for concurrent use.
type Renderer struct {
	mu     sync.Mutex
	charts map[string]*Chart // {surfaceID: chart}
}

func NewRenderer() *Renderer {
	return &Renderer{charts: make(map[string]*Chart)}
}

// Render draws `scores` onto `surface`, disposing the chart previously drawn there.
// When no score is positive the result is the Placeholder and no chart is kept.
func (r *Renderer) Render(surface Surface, scores Scores) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.charts[surface.ID]; ok {
		prev.dispose()
		delete(r.charts, surface.ID)
	}

	res := Result{SurfaceID: surface.ID}
	if !scores.HasData() {
		res.Placeholder = Placeholder
		return res, nil
	}

	c := &Chart{surface: surface, graph: newBarChart(scores)}
	var buf bytes.Buffer
	if err := c.graph.Render(chart.SVG, &buf); err != nil {
		return Result{}, errors.Wrap(err, "rendering marks chart")
	}
	c.svg = buf.Bytes()
	r.charts[surface.ID] = c

	res.SVG = c.svg
	return res, nil
}

// Chart returns the live chart of a surface.
func (r *Renderer) Chart(surfaceID string) (*Chart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.charts[surfaceID]
	return c, ok
}

// SVG returns the rendered SVG of the live chart of a surface.
func (r *Renderer) SVG(surfaceID string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.charts[surfaceID]
	if !ok {
		return nil, false
	}
	return c.svg, true
}

// DisposeSurface disposes the chart drawn on `surface`, if any.
func (r *Renderer) DisposeSurface(surface Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.charts[surface.ID]; ok {
		c.dispose()
		delete(r.charts, surface.ID)
	}
}

// Dispose disposes every chart.
func (r *Renderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.charts {
		c.dispose()
		delete(r.charts, id)
	}
}

// Len returns the number of live charts.
func (r *Renderer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.charts)
}

func newBarChart(scores Scores) chart.BarChart {
	values := scores.Values()
	bars := make([]chart.Value, 0, len(Subjects))
	for i, subj := range Subjects {
		bars = append(bars, chart.Value{
			Value: float64(values[i]),
			Label: subj.Label,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex(strings.TrimPrefix(subj.Color, "#")),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: borderWidth,
			},
		})
	}
	return chart.BarChart{
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: barWidth,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxMark},
			Ticks: markTicks(),
		},
		Bars: bars,
	}
}

// markTicks returns the integer ticks of the marks axis: 0, 10, ..., 100.
func markTicks() []chart.Tick {
	ticks := make([]chart.Tick, 0, maxMark/markStep+1)
	for v := 0; v <= maxMark; v += markStep {
		ticks = append(ticks, chart.Tick{Value: float64(v), Label: strconv.Itoa(v)})
	}
	return ticks
}
