package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyellow/unibot-go/internal/catalog"
	"github.com/garyellow/unibot-go/internal/session"
)

func TestExtractFresh(t *testing.T) {
	t.Parallel()
	e := New()

	tests := []struct {
		name string
		in   string
		want catalog.Slots
	}{
		{
			"full structured query",
			"200 level computer science second semester courses",
			catalog.Slots{Department: "computer science", Faculty: catalog.FacultyICT, Level: "200", Semester: catalog.SemesterSecond},
		},
		{"level only", "what are the 300 level courses", catalog.Slots{Level: "300"}},
		{"ordinal semester", "1st semester", catalog.Slots{Semester: catalog.SemesterFirst}},
		{"first semester keyword wins", "second or first semester", catalog.Slots{Semester: catalog.SemesterSecond}},
		{"semester needs a whole word", "firstly", catalog.Slots{}},
		{"fuzzy department", "accounting courses", catalog.Slots{Department: "accounting", Faculty: catalog.FacultyManagement}},
		{"misspelt department", "civil enginering", catalog.Slots{Department: "civil engineering", Faculty: catalog.FacultyEngineering}},
		{"greeting has no slots", "hello", catalog.Slots{}},
		{"pidgin question has no slots", "what is happen", catalog.Slots{}},
		{"too short to match", "cs", catalog.Slots{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Fresh(tt.in))
		})
	}
}

func TestExtractFollowUpInheritsLastSlots(t *testing.T) {
	t.Parallel()
	e := New()
	last := catalog.Slots{Department: "computer science", Faculty: catalog.FacultyICT, Level: "200", Semester: catalog.SemesterSecond}
	state := session.State{}.WithLastSlots(last)

	got := e.Extract("what about first semester?", state)
	want := last
	want.Semester = catalog.SemesterFirst
	assert.Equal(t, want, got)

	got = e.Extract("and 300 level", state)
	want = last
	want.Level = "300"
	assert.Equal(t, want, got)

	// Any turn without a department of its own inherits, not only slot-free ones.
	got = e.Extract("what is the fee for 100 level", state)
	want = last
	want.Level = "100"
	assert.Equal(t, want, got)

	// A new department replaces the remembered one and keeps nothing else.
	got = e.Extract("accounting", state)
	assert.Equal(t, catalog.Slots{Department: "accounting", Faculty: catalog.FacultyManagement}, got)
}

func TestExtractFacultyConsistency(t *testing.T) {
	t.Parallel()
	e := New()
	for _, df := range catalog.FacultyMap {
		for _, in := range []string{df.Department, "100 level " + df.Department + " courses", df.Department + " 2nd semester"} {
			got := e.Fresh(in)
			assert.Equal(t, df.Department, got.Department, in)
			assert.Equal(t, df.Faculty, got.Faculty, in)
		}
	}
}

func TestMatchDepartmentTieBreak(t *testing.T) {
	t.Parallel()
	e := New()
	// "engineering" is a full substring of several departments; the first one listed wins.
	assert.Equal(t, "software engineering", e.matchDepartment("engineering"))
}
