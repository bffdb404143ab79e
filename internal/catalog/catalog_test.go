package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCourses() []Course {
	return []Course{
		{Code: "CSC 101", Title: "Introduction to Computing", Department: "computer science", Level: "100", Semester: SemesterFirst,
			Question: "What are the 100 level computer science first semester courses?", Answer: "Intro to Computing"},
		{Code: "CSC 201", Title: "Computer Programming I", Department: "computer science", Level: "200", Semester: SemesterFirst,
			Question: "What are the 200 level computer science first semester courses?", Answer: "CSC 201 Computer Programming I"},
		{Code: "CSC 202", Title: "Computer Programming II", Department: "computer science", Level: "200", Semester: SemesterSecond,
			Question: "What are the 200 level computer science second semester courses?", Answer: "CSC 202 Computer Programming II"},
		{Code: "CSC 204", Title: "Data Structures", Department: "computer science", Level: "200", Semester: SemesterSecond,
			Question: "What are the 200 level computer science second semester courses?", Answer: "CSC 204 Data Structures"},
		{Code: "ACC 201", Title: "Financial Accounting", Department: "accounting", Level: "200", Semester: SemesterSecond,
			Question: "What are the 200 level accounting second semester courses?", Answer: "ACC 201 Financial Accounting"},
	}
}

func newSample(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(sampleCourses())
	require.NoError(t, err)
	return c
}

func TestFacultyMap(t *testing.T) {
	t.Parallel()

	assert.Len(t, FacultyMap, 16)
	seen := make(map[string]bool)
	for _, row := range FacultyMap {
		assert.False(t, seen[row.Department], "duplicate department %q", row.Department)
		seen[row.Department] = true
		assert.NotEmpty(t, row.Faculty)
	}

	faculty, ok := FacultyOf("computer science")
	require.True(t, ok)
	assert.Equal(t, "College of Information and Communication Technology (CICOT)", faculty)

	_, ok = FacultyOf("astrology")
	assert.False(t, ok)
	assert.Equal(t, "computer science", DepartmentNames()[0])
}

func TestNew_FillsAndChecksFaculty(t *testing.T) {
	t.Parallel()

	c := newSample(t)
	course, ok := c.ByCode("CSC 101")
	require.True(t, ok)
	assert.Equal(t, FacultyICT, course.Faculty)

	_, err := New([]Course{{Code: "X 100", Department: "astrology"}})
	assert.ErrorContains(t, err, "unknown department")

	_, err = New([]Course{{Code: "ACC 101", Department: "accounting", Faculty: FacultyICT}})
	assert.ErrorContains(t, err, "does not match")
}

func TestByCode(t *testing.T) {
	t.Parallel()

	c := newSample(t)
	for _, code := range []string{"CSC 101", "csc 101", "csc101", " Csc  101 "} {
		course, ok := c.ByCode(code)
		require.True(t, ok, "code %q", code)
		assert.Equal(t, "Intro to Computing", course.Answer)
	}

	_, ok := c.ByCode("MTH 101")
	assert.False(t, ok)
}

func TestFilter(t *testing.T) {
	t.Parallel()

	c := newSample(t)

	tests := []struct {
		name  string
		slots Slots
		codes []string
	}{
		{
			name:  "department level semester",
			slots: Slots{Department: "computer science", Level: "200", Semester: SemesterSecond},
			codes: []string{"CSC 202", "CSC 204"},
		},
		{
			name:  "first semester follow-up",
			slots: Slots{Department: "computer science", Level: "200", Semester: SemesterFirst},
			codes: []string{"CSC 201"},
		},
		{
			name:  "level only",
			slots: Slots{Level: "200", Semester: SemesterSecond},
			codes: []string{"CSC 202", "CSC 204", "ACC 201"},
		},
		{
			name:  "no match",
			slots: Slots{Department: "accounting", Level: "400"},
			codes: nil,
		},
		{
			name:  "substring relaxation",
			slots: Slots{Department: "science", Level: "100"},
			codes: []string{"CSC 101"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, course := range c.Filter(tt.slots) {
				got = append(got, course.Code)
			}
			assert.Equal(t, tt.codes, got)
		})
	}
}

func TestSlotsOverlay(t *testing.T) {
	t.Parallel()

	last := Slots{Department: "computer science", Faculty: FacultyICT, Level: "200", Semester: SemesterSecond}
	merged := last.Overlay(Slots{Semester: SemesterFirst})
	assert.Equal(t, Slots{Department: "computer science", Faculty: FacultyICT, Level: "200", Semester: SemesterFirst}, merged)

	moved := last.Overlay(Slots{Department: "accounting"})
	assert.Equal(t, FacultyManagement, moved.Faculty)

	assert.True(t, Slots{}.IsEmpty())
	assert.True(t, Slots{Faculty: FacultyICT}.IsEmpty())
	assert.False(t, Slots{Level: "100"}.IsEmpty())
}

func TestDepartmentsAndLen(t *testing.T) {
	t.Parallel()

	c := newSample(t)
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, map[string]struct{}{"computer science": {}, "accounting": {}}, c.Departments())
	all := DepartmentNames()
	assert.Len(t, all, len(FacultyMap))
	for d := range c.Departments() {
		assert.Contains(t, all, d)
	}

	var nilCatalog *Catalog
	assert.Equal(t, 0, nilCatalog.Len())
}
