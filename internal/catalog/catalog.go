// Package catalog holds the in-memory course catalogue and the fixed
// department to faculty table. The catalogue is immutable after construction
// and safe for concurrent readers.
package catalog

import (
	"fmt"
	"strings"
	"unicode"
)

// Semester values.
const (
	SemesterFirst  = "First"
	SemesterSecond = "Second"
)

// Course is one catalogue entry.
type Course struct {
	Code       string `json:"code"`
	Title      string `json:"title"`
	Department string `json:"department"`
	Faculty    string `json:"faculty"`
	Level      string `json:"level"`
	Semester   string `json:"semester"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// Slots is a structured course query. Empty strings mean "not set".
// Faculty always equals FacultyOf(Department) when Department is set.
type Slots struct {
	Department string `json:"department,omitempty"`
	Faculty    string `json:"faculty,omitempty"`
	Level      string `json:"level,omitempty"`
	Semester   string `json:"semester,omitempty"`
}

// IsEmpty reports whether no department, level or semester is set.
func (s Slots) IsEmpty() bool {
	return s.Department == "" && s.Level == "" && s.Semester == ""
}

// Overlay returns s with every slot set in o copied over it.
// Faculty follows the resulting department.
func (s Slots) Overlay(o Slots) Slots {
	if o.Department != "" {
		s.Department = o.Department
	}
	if o.Level != "" {
		s.Level = o.Level
	}
	if o.Semester != "" {
		s.Semester = o.Semester
	}
	s.Faculty, _ = FacultyOf(s.Department)
	return s
}

// Catalog indexes courses by code and answers slot filters.
type Catalog struct {
	courses []Course
	byCode  map[string]int
}

// New builds a catalogue. Every course must name a known department whose
// faculty matches the course's faculty. A blank faculty is filled in.
func New(courses []Course) (*Catalog, error) {
	c := &Catalog{
		courses: make([]Course, len(courses)),
		byCode:  make(map[string]int, len(courses)),
	}
	for i, course := range courses {
		faculty, ok := FacultyOf(course.Department)
		if !ok {
			return nil, fmt.Errorf("course %d (%s): unknown department %q", i, course.Code, course.Department)
		}
		if course.Faculty == "" {
			course.Faculty = faculty
		} else if course.Faculty != faculty {
			return nil, fmt.Errorf("course %d (%s): faculty %q does not match department %q", i, course.Code, course.Faculty, course.Department)
		}
		c.courses[i] = course
		if key := CodeKey(course.Code); key != "" {
			if _, dup := c.byCode[key]; !dup {
				c.byCode[key] = i
			}
		}
	}
	return c, nil
}

// CodeKey canonicalizes a course code for lookups: upper case, no whitespace.
func CodeKey(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, code)
}

// ByCode looks a course up case-insensitively, ignoring spaces.
// The first course with the code wins when codes repeat.
func (c *Catalog) ByCode(code string) (Course, bool) {
	i, ok := c.byCode[CodeKey(code)]
	if !ok {
		return Course{}, false
	}
	return c.courses[i], true
}

// Filter returns the courses matching every set slot, in catalogue order.
// Semester matches against the course question text. When nothing matches
// and a department is set, departments containing it as a substring are accepted.
func (c *Catalog) Filter(slots Slots) []Course {
	rows := c.filter(slots, func(dept string) bool { return dept == slots.Department })
	if len(rows) == 0 && slots.Department != "" {
		rows = c.filter(slots, func(dept string) bool { return strings.Contains(dept, slots.Department) })
	}
	return rows
}

func (c *Catalog) filter(slots Slots, deptMatch func(string) bool) []Course {
	semester := strings.ToLower(slots.Semester)
	var out []Course
	for _, course := range c.courses {
		if slots.Department != "" && !deptMatch(course.Department) {
			continue
		}
		if slots.Level != "" && course.Level != slots.Level {
			continue
		}
		if semester != "" && !strings.Contains(strings.ToLower(course.Question), semester) {
			continue
		}
		out = append(out, course)
	}
	return out
}

// Departments returns the departments that have at least one course. It is a
// subset of the authoritative FacultyMap keys; use DepartmentNames for the
// full set.
func (c *Catalog) Departments() map[string]struct{} {
	out := make(map[string]struct{})
	for _, course := range c.courses {
		out[course.Department] = struct{}{}
	}
	return out
}

// Courses returns a copy of every course in load order.
func (c *Catalog) Courses() []Course {
	return append([]Course(nil), c.courses...)
}

// Len returns the number of courses.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.courses)
}
