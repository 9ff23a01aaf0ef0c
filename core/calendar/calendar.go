// Package calendar builds the monthly attendance calendar of a student.
package calendar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// Attendance statuses
const (
	StatusPresent   = "Present"
	StatusAbsent    = "Absent"
	StatusLeave     = "Leave"
	StatusNotMarked = "Not Marked"
)

// Status colors
const (
	ColorPresent = "#4cd964"
	ColorAbsent  = "#ff6b6b"
	ColorLeave   = "#ffd93d"
	ColorDefault = "#c4c4c4"
)

// LegendItem is one entry of the calendar legend.
type LegendItem struct {
	Status string `json:"status"`
	Color  string `json:"color"`
}

// LegendItems returns the calendar legend, a fresh copy on each call.
func LegendItems() []LegendItem {
	return []LegendItem{
		{Status: StatusPresent, Color: ColorPresent},
		{Status: StatusAbsent, Color: ColorAbsent},
		{Status: StatusLeave, Color: ColorLeave},
		{Status: StatusNotMarked, Color: ColorDefault},
	}
}

// Color returns the color of an attendance status; unknown statuses are gray.
func Color(status string) string {
	switch status {
	case StatusPresent:
		return ColorPresent
	case StatusAbsent:
		return ColorAbsent
	case StatusLeave:
		return ColorLeave
	default:
		return ColorDefault
	}
}

// YearMonth is a calendar month; Month is 0-based (0 = January).
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Step moves `delta` months forward (or backward when negative), carrying into the year.
func (ym YearMonth) Step(delta int) YearMonth {
	total := ym.Year*12 + ym.Month + delta
	year, month := total/12, total%12
	if month < 0 {
		month += 12
		year--
	}
	return YearMonth{Year: year, Month: month}
}

// Label returns the English month name and the year, eg. "October 2025".
func (ym YearMonth) Label() string {
	return time.Month(ym.Month+1).String() + " " + strconv.Itoa(ym.Year)
}

func (ym YearMonth) Contains(year int, month time.Month) bool {
	return ym.Year == year && ym.Month == int(month)-1
}

// DaysInMonth returns the number of days of a month (0-based) using day 0 of the next month.
func DaysInMonth(year, month0 int) int {
	return time.Date(year, time.Month(month0+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

type (
	Entry struct {
		Date   string
		Status string
	}

	Day struct {
		Day     int    `json:"day"`
		Status  string `json:"status"`
		Color   string `json:"color"`
		Tooltip string `json:"tooltip"`
	}

	Month struct {
		Period YearMonth `json:"period"`
		Label  string    `json:"label"`
		Days   []Day     `json:"days"`
	}
)

// ParseDate parses a date string permissively, as a calendar date: the time zone never shifts the day.
func ParseDate(s string) (year int, month time.Month, day int, ok bool) {
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return 0, 0, 0, false
	}
	year, month, day = t.Date()
	return year, month, day, true
}

// Build returns the calendar of `period`.
// Entries outside the period or with unparseable dates are skipped; when several entries share a day the later one wins.
func Build(period YearMonth, entries []Entry) Month {
	statuses := make(map[int]string)
	for _, e := range entries {
		year, month, day, ok := ParseDate(e.Date)
		if !ok || !period.Contains(year, month) {
			continue
		}
		statuses[day] = e.Status
	}

	n := DaysInMonth(period.Year, period.Month)
	days := make([]Day, 0, n)
	for d := 1; d <= n; d++ {
		status := statuses[d]
		if status == "" {
			status = StatusNotMarked
		}
		days = append(days, Day{
			Day:     d,
			Status:  status,
			Color:   Color(status),
			Tooltip: fmt.Sprintf("%d-%d-%d: %s", period.Year, period.Month+1, d, status),
		})
	}
	return Month{Period: period, Label: period.Label(), Days: days}
}
