package sheets

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

const keyColumn = "studentId"

var (
	ErrMissingColumn = errors.New("missing studentId column")
	ErrEmptySheet    = errors.New("empty sheet")
)

// table is a normalized sheet: trimmed cells, every row as wide as the header.
// It implements gocsv.CSVReader.
type table struct {
	records [][]string
	pos     int
}

func (t *table) Read() ([]string, error) {
	if t.pos >= len(t.records) {
		return nil, io.EOF
	}
	rec := t.records[t.pos]
	t.pos++
	return rec, nil
}

func (t *table) ReadAll() ([][]string, error) {
	rest := t.records[t.pos:]
	t.pos = len(t.records)
	return rest, nil
}

// readTable reads a quoted CSV document.
// The header row comes first; cell i of a row is paired with header i.
func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}

	header := records[0]
	var hasKey bool
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if h == keyColumn {
			hasKey = true
		}
	}
	if !hasKey {
		return nil, ErrMissingColumn
	}

	rows := make([][]string, 0, len(records))
	rows = append(rows, header)
	for _, rec := range records[1:] {
		row := make([]string, len(header))
		var blank = true
		for i := range row {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
				blank = blank && row[i] == ""
			}
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}
	return &table{records: rows}, nil
}

func unmarshal(r io.Reader, out interface{}) error {
	t, err := readTable(r)
	if err != nil {
		return err
	}
	if len(t.records) == 1 { // header only
		return nil
	}
	return errors.Wrap(gocsv.UnmarshalCSV(t, out), "decoding rows")
}

// ParseStudents decodes the students sheet. Unknown columns are ignored.
func ParseStudents(r io.Reader) ([]StudentRecord, error) {
	rows := make([]StudentRecord, 0)
	if err := unmarshal(r, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ParseAttendance decodes the attendance sheet. Unknown columns are ignored.
func ParseAttendance(r io.Reader) ([]AttendanceRow, error) {
	rows := make([]AttendanceRow, 0)
	if err := unmarshal(r, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
