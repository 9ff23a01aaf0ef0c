// Package sheets fetches and decodes the published spreadsheet exports (CSV).
package sheets

// StudentRecord is one row of the students sheet. Missing columns decode to "".
type StudentRecord struct {
	StudentID string `csv:"studentId" json:"studentId"`
	Name      string `csv:"name" json:"name"`
	ClassName string `csv:"className" json:"className"`
	Teacher   string `csv:"teacher" json:"teacher"`
	Mood      string `csv:"mood" json:"mood"`
	Note      string `csv:"note" json:"note"`
	Maths     string `csv:"maths" json:"maths"`
	English   string `csv:"english" json:"english"`
	Science   string `csv:"science" json:"science"`
}

// AttendanceRow is one row of the attendance sheet.
type AttendanceRow struct {
	StudentID string `csv:"studentId"`
	Date      string `csv:"date"`
	Status    string `csv:"status"`
}

// AttendanceEntry is an attendance row projected for one student.
type AttendanceEntry struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// FindStudent returns the first row whose studentId equals `id` (case-sensitive), or nil.
func FindStudent(rows []StudentRecord, id string) *StudentRecord {
	for i := range rows {
		if rows[i].StudentID == id {
			rec := rows[i]
			return &rec
		}
	}
	return nil
}

// FilterAttendance returns the entries of student `id`, in source order.
func FilterAttendance(rows []AttendanceRow, id string) []AttendanceEntry {
	entries := make([]AttendanceEntry, 0)
	for _, r := range rows {
		if r.StudentID == id {
			entries = append(entries, AttendanceEntry{Date: r.Date, Status: r.Status})
		}
	}
	return entries
}
