package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/unibot-go/internal/catalog"
	"github.com/garyellow/unibot-go/internal/errors"
)

const validCourses = `[
  {"code": "CSC 101", "title": "Introduction to Computing", "department": "Computer Science",
   "level": "100", "semester": "first", "question": "What is CSC 101 first semester?", "answer": "Intro to Computing"},
  {"code": "CSC201", "title": "Data Structures", "department": "computer science",
   "faculty": "College of Information and Communication Technology (CICOT)",
   "level": "200", "semester": "Second", "question": "200 level second semester computer science courses", "answer": "<p>CSC 201 <b>Data Structures</b></p>"}
]`

func TestParseCourses(t *testing.T) {
	t.Parallel()
	courses, err := ParseCourses(strings.NewReader(validCourses), "courses.json")
	require.NoError(t, err)
	require.Len(t, courses, 2)

	assert.Equal(t, "computer science", courses[0].Department)
	assert.Equal(t, catalog.FacultyICT, courses[0].Faculty)
	assert.Equal(t, catalog.SemesterFirst, courses[0].Semester)
	assert.Equal(t, catalog.SemesterSecond, courses[1].Semester)
	assert.Equal(t, "CSC 201 Data Structures", courses[1].Answer)
}

func TestParseCoursesRejectsBadRecords(t *testing.T) {
	t.Parallel()
	base := `{"code": "CSC 101", "title": "T", "department": "computer science", "level": "100", "semester": "First", "question": "q", "answer": "a"}`

	tests := []struct {
		name  string
		from  string
		to    string
		field string
	}{
		{"bad code", `"CSC 101"`, `"C101"`, "code"},
		{"unknown department", `"computer science"`, `"astrology"`, "department"},
		{"bad level", `"100"`, `"600"`, "level"},
		{"bad semester", `"First"`, `"Third"`, "semester"},
		{"missing answer", `"answer": "a"`, `"answer": ""`, "answer"},
		{"missing title", `"title": "T"`, `"title": " "`, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "[" + base + "," + strings.Replace(base, tt.from, tt.to, 1) + "]"
			_, err := ParseCourses(strings.NewReader(doc), "courses.json")
			require.Error(t, err)
			assert.True(t, errors.IsMalformedKnowledgeBase(err))

			var kbErr *errors.KnowledgeBaseError
			require.ErrorAs(t, err, &kbErr)
			assert.Equal(t, 1, kbErr.Index)
			assert.Equal(t, tt.field, kbErr.Field)
		})
	}
}

func TestParseCoursesRejectsFacultyMismatch(t *testing.T) {
	t.Parallel()
	doc := `[{"code": "ACC 101", "title": "T", "department": "accounting", "faculty": "College of Engineering (COLENG)",
	  "level": "100", "semester": "First", "question": "q", "answer": "a"}]`
	_, err := ParseCourses(strings.NewReader(doc), "courses.json")
	assert.ErrorIs(t, err, errors.ErrMalformedKnowledgeBase)
}

func TestParseQA(t *testing.T) {
	t.Parallel()
	doc := `[
	  {"question": "When does registration close?", "answer": "Registration closes in week 4."},
	  {"question": "", "answer": "orphan"},
	  {"question": "no answer"},
	  {"question": "Who heads accounting?", "answer": "Dr. A", "department": "Accounting"},
	  {"question": "Unknown dept", "answer": "x", "department": "astrology", "faculty": "Nowhere"}
	]`
	rows, err := ParseQA(strings.NewReader(doc), "qa.json")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "accounting", rows[1].Department)
	assert.Equal(t, catalog.FacultyManagement, rows[1].Faculty)
	assert.Empty(t, rows[2].Department)
	assert.Empty(t, rows[2].Faculty)
}

func TestParseMalformedJSON(t *testing.T) {
	t.Parallel()
	_, err := ParseQA(strings.NewReader(`{"question": "not an array"}`), "qa.json")
	assert.True(t, errors.IsMalformedKnowledgeBase(err))
	_, err = ParseCourses(strings.NewReader(`[`), "courses.json")
	assert.True(t, errors.IsMalformedKnowledgeBase(err))
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	qaPath := filepath.Join(dir, "qa.json")
	coursesPath := filepath.Join(dir, "courses.json")
	require.NoError(t, os.WriteFile(qaPath, []byte(`[{"question": "q1", "answer": "a1"}]`), 0o600))
	require.NoError(t, os.WriteFile(coursesPath, []byte(validCourses), 0o600))

	kb, err := Load(qaPath, coursesPath)
	require.NoError(t, err)
	assert.Len(t, kb.QA, 1)
	assert.Len(t, kb.Courses, 2)

	entries := kb.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "q1", entries[0].Question)
	assert.Equal(t, "Intro to Computing", entries[1].Answer)

	_, err = Load(filepath.Join(dir, "missing.json"), "")
	assert.True(t, errors.IsMalformedKnowledgeBase(err))
}

func TestFlattenHTML(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"plain answer  ", "plain answer"},
		{"a < b and c > d", "a < b and c > d"},
		{"Intro to <b>Computing</b>", "Intro to Computing"},
		{"<p>Line one</p><p>Line two</p>", "Line one\nLine two"},
		{"first<br>second", "first\nsecond"},
		{"<ul><li>CSC 101</li><li>CSC 102</li></ul>", "- CSC 101\n- CSC 102"},
		{"<div>x<script>alert(1)</script></div>", "x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FlattenHTML(tt.in), tt.in)
	}
}
