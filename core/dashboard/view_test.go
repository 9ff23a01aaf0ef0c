package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/preschool/core/calendar"
	"github.com/trezcool/preschool/core/marks"
	"github.com/trezcool/preschool/core/sheets"
	"github.com/trezcool/preschool/tests"
)

type fakeFetcher struct {
	student    *sheets.StudentRecord
	attendance []sheets.AttendanceEntry
	mu      sync.Mutex
	release chan struct{} // when set, fetches block until closed or cancelled

	studentCalls    int32
	attendanceCalls int32
	started         sync.WaitGroup
}

func (f *fakeFetcher) block(release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release = release
}

func (f *fakeFetcher) wait(ctx context.Context) bool {
	f.mu.Lock()
	release := f.release
	f.mu.Unlock()
	if release == nil {
		return true
	}
	f.started.Done()
	select {
	case <-release:
		return true
	case <-ctx.Done():
		return false
	}
}

func (f *fakeFetcher) FetchStudent(ctx context.Context, _ string) *sheets.StudentRecord {
	atomic.AddInt32(&f.studentCalls, 1)
	if !f.wait(ctx) {
		return nil
	}
	return f.student
}

func (f *fakeFetcher) FetchAttendance(ctx context.Context, _ string) []sheets.AttendanceEntry {
	atomic.AddInt32(&f.attendanceCalls, 1)
	if !f.wait(ctx) {
		return []sheets.AttendanceEntry{}
	}
	return f.attendance
}

var october = calendar.YearMonth{Year: 2025, Month: 9}

func newFetcher() *fakeFetcher {
	return &fakeFetcher{
		student: &sheets.StudentRecord{StudentID: "S001", Name: "Asha Rao", Maths: "85", English: "90", Science: "78"},
		attendance: []sheets.AttendanceEntry{
			{Date: "2025-10-01", Status: "Present"},
			{Date: "2025-10-02", Status: "Absent"},
			{Date: "2025-11-03", Status: "Leave"},
		},
	}
}

func TestView_Mount(t *testing.T) {
	ctx := context.Background()
	f := newFetcher()
	v := NewView("S001", october, f, new(testutil.Logger))
	assert.Equal(t, StateUnloaded, v.State())
	assert.Equal(t, StateUnloaded, v.Snapshot().State)

	require.NoError(t, v.Mount(ctx))
	require.NoError(t, v.Mount(ctx)) // no-op

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.studentCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.attendanceCalls))
	assert.Equal(t, 1, v.Fetches())

	s := v.Snapshot()
	assert.Equal(t, StateLoaded, s.State)
	require.NotNil(t, s.Student)
	assert.Equal(t, "Asha Rao", s.Student.Name)
	assert.Equal(t, marks.Scores{Maths: 85, English: 90, Science: 78}, *s.Scores)
	assert.True(t, s.Chart.Charted())
	assert.Equal(t, "October 2025", s.Calendar.Label)
	assert.Len(t, s.Calendar.Days, 31)
	assert.Equal(t, "Present", s.Calendar.Days[0].Status)
	assert.Equal(t, "Absent", s.Calendar.Days[1].Status)
	assert.Len(t, s.Legend, 4)

	svg, ok := v.ChartSVG()
	assert.True(t, ok)
	assert.NotEmpty(t, svg)
}

func TestView_NoStudent(t *testing.T) {
	f := newFetcher()
	v := NewView("", october, f, new(testutil.Logger))
	require.NoError(t, v.Mount(context.Background()))
	assert.Equal(t, StateNoData, v.State())
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.studentCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.attendanceCalls))

	_, err := v.ChangeMonth(1)
	assert.Equal(t, ErrNotLoaded, err)
}

func TestView_PartialData(t *testing.T) {
	f := newFetcher()
	f.student = nil // student sheet unavailable
	v := NewView("S001", october, f, new(testutil.Logger))
	require.NoError(t, v.Mount(context.Background()))

	s := v.Snapshot()
	assert.Equal(t, StateLoaded, s.State)
	assert.Nil(t, s.Student)
	assert.Equal(t, marks.Placeholder, s.Chart.Placeholder)
	assert.Equal(t, "Present", s.Calendar.Days[0].Status)

	_, ok := v.ChartSVG()
	assert.False(t, ok)
}

func TestView_ChangeMonth(t *testing.T) {
	f := newFetcher()
	v := NewView("S001", october, f, new(testutil.Logger))

	_, err := v.ChangeMonth(1)
	assert.Equal(t, ErrNotLoaded, err)

	require.NoError(t, v.Mount(context.Background()))

	_, err = v.ChangeMonth(2)
	assert.Equal(t, ErrInvalidDirection, err)

	nov, err := v.ChangeMonth(1)
	require.NoError(t, err)
	assert.Equal(t, "November 2025", nov.Label)
	assert.Len(t, nov.Days, 30)
	assert.Equal(t, "Leave", nov.Days[2].Status)

	for i := 0; i < 3; i++ {
		_, err = v.ChangeMonth(-1)
		require.NoError(t, err)
	}
	assert.Equal(t, "August 2025", v.Snapshot().Calendar.Label)

	// re-derived without fetching
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.attendanceCalls))
}

func TestView_UnmountDuringFetch(t *testing.T) {
	f := newFetcher()
	f.block(make(chan struct{}))
	f.started.Add(2)
	v := NewView("S001", october, f, new(testutil.Logger))

	done := make(chan error, 1)
	go func() { done <- v.Mount(context.Background()) }()

	f.started.Wait()
	assert.Equal(t, StateLoading, v.State())
	v.Unmount()

	select {
	case err := <-done:
		assert.Equal(t, ErrUnmounted, err)
	case <-time.After(5 * time.Second):
		t.Fatal("mount did not return after unmount")
	}

	// nothing applied after unmount
	assert.Equal(t, StateUnmounted, v.State())
	assert.Equal(t, 0, v.Fetches())
	assert.Nil(t, v.Snapshot().Student)
	assert.Equal(t, ErrUnmounted, v.Mount(context.Background()))
	_, err := v.ChangeMonth(1)
	assert.Equal(t, ErrUnmounted, err)
}

func TestView_CallerCancelled(t *testing.T) {
	f := newFetcher()
	f.block(make(chan struct{}))
	f.started.Add(2)
	v := NewView("S001", october, f, new(testutil.Logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Mount(ctx) }()
	f.started.Wait()
	cancel()

	assert.Equal(t, context.Canceled, <-done)
	assert.Equal(t, StateUnloaded, v.State())

	// next mount fetches again
	f.block(nil)
	require.NoError(t, v.Mount(context.Background()))
	assert.Equal(t, StateLoaded, v.State())
	assert.Equal(t, 1, v.Fetches())
}

func TestView_UnmountDisposesChart(t *testing.T) {
	v := NewView("S001", october, newFetcher(), new(testutil.Logger))
	require.NoError(t, v.Mount(context.Background()))
	_, ok := v.ChartSVG()
	require.True(t, ok)

	v.Unmount()
	v.Unmount()
	_, ok = v.ChartSVG()
	assert.False(t, ok)
	assert.Equal(t, StateUnmounted, v.Snapshot().State)
}
