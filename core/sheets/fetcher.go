package sheets

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/preschool/core"
)

// Fetcher downloads the published sheets.
// It fails soft: errors are logged and replaced by empty values.
type Fetcher struct {
	client        *rest.Client
	studentURL    string
	attendanceURL string
	logger        core.Logger
}

func NewFetcher(studentURL, attendanceURL string, timeout time.Duration, logger core.Logger) (*Fetcher, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(studentURL, "studentURL"),
		vala.StringNotEmpty(attendanceURL, "attendanceURL"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	return &Fetcher{
		client:        &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		studentURL:    studentURL,
		attendanceURL: attendanceURL,
		logger:        logger,
	}, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	res, err := f.client.SendWithContext(ctx, rest.Request{Method: rest.Get, BaseURL: url})
	if err != nil {
		return "", errors.Wrapf(err, "fetching %s", url)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", errors.Errorf("fetching %s: status %d", url, res.StatusCode)
	}
	return res.Body, nil
}

// FetchStudent returns the record of student `id`, or nil when it is missing or cannot be fetched.
func (f *Fetcher) FetchStudent(ctx context.Context, id string) *StudentRecord {
	body, err := f.get(ctx, f.studentURL)
	if err != nil {
		f.logger.Error("fetching student sheet", err)
		return nil
	}
	rows, err := ParseStudents(strings.NewReader(body))
	if err != nil {
		f.logger.Error("parsing student sheet", err)
		return nil
	}
	return FindStudent(rows, id)
}

// FetchAttendance returns the attendance entries of student `id`; empty when they cannot be fetched.
func (f *Fetcher) FetchAttendance(ctx context.Context, id string) []AttendanceEntry {
	body, err := f.get(ctx, f.attendanceURL)
	if err != nil {
		f.logger.Error("fetching attendance sheet", err)
		return []AttendanceEntry{}
	}
	rows, err := ParseAttendance(strings.NewReader(body))
	if err != nil {
		f.logger.Error("parsing attendance sheet", err)
		return []AttendanceEntry{}
	}
	return FilterAttendance(rows, id)
}
