// Package dashboard composes the parent dashboard: student card, marks chart and attendance calendar.
package dashboard

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/calendar"
	"github.com/trezcool/preschool/core/marks"
	"github.com/trezcool/preschool/core/sheets"
)

type State string

const (
	StateUnloaded  State = "unloaded"
	StateLoading   State = "loading"
	StateLoaded    State = "loaded"
	StateNoData    State = "no_data"
	StateUnmounted State = "unmounted"
)

var (
	ErrUnmounted        = errors.New("dashboard is unmounted")
	ErrNotLoaded        = errors.New("dashboard is not loaded")
	ErrInvalidDirection = errors.New("direction must be -1 or 1")
)

// Fetcher fetches the student datasets. Implementations fail soft.
type Fetcher interface {
	FetchStudent(ctx context.Context, studentID string) *sheets.StudentRecord
	FetchAttendance(ctx context.Context, studentID string) []sheets.AttendanceEntry
}

// Snapshot is a read-only copy of a view.
type Snapshot struct {
	State      State                    `json:"state"`
	StudentID  string                   `json:"student_id,omitempty"`
	Student    *sheets.StudentRecord    `json:"student,omitempty"`
	Scores     *marks.Scores            `json:"scores,omitempty"`
	Chart      *marks.Result            `json:"chart,omitempty"`
	Calendar   *calendar.Month          `json:"calendar,omitempty"`
	Legend     []calendar.LegendItem    `json:"legend,omitempty"`
	Attendance []sheets.AttendanceEntry `json:"-"`
}

// View is the dashboard of one session.
// Results of a fetch are only applied while the view's context is live.
type View struct {
	studentID string
	fetcher   Fetcher
	renderer  *marks.Renderer
	surface   marks.Surface
	logger    core.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	state      State
	period     calendar.YearMonth
	student    *sheets.StudentRecord
	attendance []sheets.AttendanceEntry
	scores     marks.Scores
	chart      marks.Result
	month      calendar.Month
	fetches    int
}

func NewView(studentID string, initial calendar.YearMonth, fetcher Fetcher, logger core.Logger) *View {
	ctx, cancel := context.WithCancel(context.Background())
	return &View{
		studentID: studentID,
		fetcher:   fetcher,
		renderer:  marks.NewRenderer(),
		surface:   marks.DefaultSurface,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateUnloaded,
		period:    initial,
	}
}

// Mount loads the view once: both datasets are fetched concurrently, then joined.
// A view without student ID goes straight to StateNoData and fetches nothing.
// Mounting a view that is loading, loaded or without data is a no-op.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	switch v.state {
	case StateUnmounted:
		v.mu.Unlock()
		return ErrUnmounted
	case StateUnloaded:
	default:
		v.mu.Unlock()
		return nil
	}
	if v.studentID == "" {
		v.state = StateNoData
		v.mu.Unlock()
		return nil
	}
	v.state = StateLoading
	v.mu.Unlock()

	// the fetch ends with the view or with the caller
	fetchCtx, cancel := context.WithCancel(v.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		student    *sheets.StudentRecord
		attendance []sheets.AttendanceEntry
	)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		student = v.fetcher.FetchStudent(gctx, v.studentID)
		return nil
	})
	g.Go(func() error {
		attendance = v.fetcher.FetchAttendance(gctx, v.studentID)
		return nil
	})
	_ = g.Wait() // fetchers fail soft

	return v.apply(ctx, student, attendance)
}

func (v *View) apply(ctx context.Context, student *sheets.StudentRecord, attendance []sheets.AttendanceEntry) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ctx.Err() != nil {
		return ErrUnmounted
	}
	if err := ctx.Err(); err != nil {
		v.state = StateUnloaded // caller gave up: the next mount fetches again
		return err
	}

	v.fetches++
	v.student = student
	if attendance == nil {
		attendance = []sheets.AttendanceEntry{}
	}
	v.attendance = attendance
	v.month = calendar.Build(v.period, toEntries(attendance))

	if student != nil {
		v.scores = marks.ParseScores(*student)
	}
	chart, err := v.renderer.Render(v.surface, v.scores)
	if err != nil {
		v.logger.Error("rendering marks chart", err)
		chart = marks.Result{SurfaceID: v.surface.ID, Placeholder: marks.Placeholder}
	}
	v.chart = chart
	v.state = StateLoaded
	return nil
}

// ChangeMonth moves the calendar one month backward (-1) or forward (1), without fetching again.
func (v *View) ChangeMonth(direction int) (calendar.Month, error) {
	if direction != -1 && direction != 1 {
		return calendar.Month{}, ErrInvalidDirection
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	switch v.state {
	case StateUnmounted:
		return calendar.Month{}, ErrUnmounted
	case StateLoaded:
	default:
		return calendar.Month{}, ErrNotLoaded
	}
	v.period = v.period.Step(direction)
	v.month = calendar.Build(v.period, toEntries(v.attendance))
	return v.month, nil
}

// Unmount tears the view down: pending fetches are cancelled and the chart is disposed.
func (v *View) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateUnmounted {
		return
	}
	v.cancel()
	v.renderer.Dispose()
	v.state = StateUnmounted
	v.student = nil
	v.attendance = nil
	v.chart = marks.Result{}
	v.month = calendar.Month{}
}

func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Fetches returns how many combined fetches got applied.
func (v *View) Fetches() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fetches
}

// ChartSVG returns the SVG of the marks chart, if one is drawn.
func (v *View) ChartSVG() ([]byte, bool) {
	return v.renderer.SVG(v.surface.ID)
}

func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := Snapshot{State: v.state, StudentID: v.studentID}
	if v.state != StateLoaded {
		return s
	}
	if v.student != nil {
		rec := *v.student
		s.Student = &rec
	}
	scores, chart, month := v.scores, v.chart, v.month
	s.Scores = &scores
	s.Chart = &chart
	s.Calendar = &month
	s.Legend = calendar.LegendItems()
	s.Attendance = append([]sheets.AttendanceEntry(nil), v.attendance...)
	return s
}

func toEntries(attendance []sheets.AttendanceEntry) []calendar.Entry {
	entries := make([]calendar.Entry, 0, len(attendance))
	for _, a := range attendance {
		entries = append(entries, calendar.Entry{Date: a.Date, Status: a.Status})
	}
	return entries
}
