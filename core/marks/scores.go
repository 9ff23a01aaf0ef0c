// Package marks charts the marks of a student.
package marks

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/trezcool/preschool/core/sheets"
)

// Placeholder is rendered instead of the chart when no mark is positive.
const Placeholder = "No marks data available yet"

type Subject struct {
	Label string
	Color string
}

// Subjects in chart order.
var Subjects = []Subject{
	{Label: "Maths", Color: "#fbc2eb"},
	{Label: "English", Color: "#a1c4fd"},
	{Label: "Science", Color: "#c2e9fb"},
}

type Scores struct {
	Maths   int `json:"maths"`
	English int `json:"english"`
	Science int `json:"science"`
}

// ParseScores reads the marks of a student record. Missing or unparseable marks are 0.
func ParseScores(rec sheets.StudentRecord) Scores {
	return Scores{
		Maths:   ParseMark(rec.Maths),
		English: ParseMark(rec.English),
		Science: ParseMark(rec.Science),
	}
}

// Values returns the scores in Subjects order.
func (s Scores) Values() []int {
	return []int{s.Maths, s.English, s.Science}
}

// HasData reports whether at least one score is positive.
func (s Scores) HasData() bool {
	for _, v := range s.Values() {
		if v > 0 {
			return true
		}
	}
	return false
}

// ParseMark parses the leading integer of `s` ("85.5" -> 85, "90%" -> 90, "abc" -> 0).
func ParseMark(s string) int {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil { // overflow
		return 0
	}
	return n
}
