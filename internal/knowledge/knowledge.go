// Package knowledge loads the question/answer dataset and the course
// catalogue from their JSON files and validates them.
//
// Course records are strict: any bad record refuses the whole file. QA rows
// are lenient: rows without a question or an answer are dropped.
package knowledge

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/garyellow/unibot-go/internal/catalog"
	"github.com/garyellow/unibot-go/internal/errors"
	"github.com/garyellow/unibot-go/internal/extract"
)

// QAEntry is one general question/answer row.
type QAEntry struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Department string `json:"department,omitempty"`
	Faculty    string `json:"faculty,omitempty"`
	Level      string `json:"level,omitempty"`
	Semester   string `json:"semester,omitempty"`
}

// Base is the loaded knowledge base.
type Base struct {
	QA      []QAEntry
	Courses []catalog.Course
}

// Entries returns the rows the semantic index is built over: every QA row
// followed by every course, in file order.
func (b *Base) Entries() []QAEntry {
	out := make([]QAEntry, 0, len(b.QA)+len(b.Courses))
	out = append(out, b.QA...)
	for _, c := range b.Courses {
		out = append(out, QAEntry{
			Question:   c.Question,
			Answer:     c.Answer,
			Department: c.Department,
			Faculty:    c.Faculty,
			Level:      c.Level,
			Semester:   c.Semester,
		})
	}
	return out
}

// Load reads both files. An empty path skips that file.
func Load(qaPath, coursesPath string) (*Base, error) {
	b := &Base{}
	var err error
	if qaPath != "" {
		if b.QA, err = LoadQA(qaPath); err != nil {
			return nil, err
		}
	}
	if coursesPath != "" {
		if b.Courses, err = LoadCourses(coursesPath); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// LoadQA reads a qa_dataset file.
func LoadQA(path string) ([]QAEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewKnowledgeBaseError(filepath.Base(path), -1, "", err.Error())
	}
	defer func() { _ = f.Close() }()
	return ParseQA(f, filepath.Base(path))
}

// ParseQA decodes a qa_dataset array from r. name labels errors.
func ParseQA(r io.Reader, name string) ([]QAEntry, error) {
	var rows []QAEntry
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, errors.NewKnowledgeBaseError(name, -1, "", fmt.Sprintf("decode: %v", err))
	}

	out := make([]QAEntry, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		row.Question = strings.TrimSpace(row.Question)
		row.Answer = FlattenHTML(row.Answer)
		if row.Question == "" || row.Answer == "" {
			dropped++
			continue
		}
		row.Department = strings.ToLower(strings.TrimSpace(row.Department))
		if faculty, ok := catalog.FacultyOf(row.Department); ok {
			row.Faculty = faculty
		} else {
			row.Department, row.Faculty = "", ""
		}
		out = append(out, row)
	}
	if dropped > 0 {
		slog.Warn("dropped qa rows without question or answer", "file", name, "dropped", dropped)
	}
	return out, nil
}

// LoadCourses reads a course_data file.
func LoadCourses(path string) ([]catalog.Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewKnowledgeBaseError(filepath.Base(path), -1, "", err.Error())
	}
	defer func() { _ = f.Close() }()
	return ParseCourses(f, filepath.Base(path))
}

var courseCodePattern = regexp.MustCompile(`^[A-Za-z]{2,4}\s?\d{3}$`)

// ParseCourses decodes and validates a course_data array from r.
func ParseCourses(r io.Reader, name string) ([]catalog.Course, error) {
	var rows []catalog.Course
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, errors.NewKnowledgeBaseError(name, -1, "", fmt.Sprintf("decode: %v", err))
	}

	for i := range rows {
		c := &rows[i]
		c.Code = strings.TrimSpace(c.Code)
		c.Title = strings.TrimSpace(c.Title)
		c.Department = strings.ToLower(strings.TrimSpace(c.Department))
		c.Question = strings.TrimSpace(c.Question)
		c.Answer = FlattenHTML(c.Answer)
		c.Level = strings.TrimSpace(c.Level)

		if !courseCodePattern.MatchString(c.Code) {
			return nil, errors.NewKnowledgeBaseError(name, i, "code", fmt.Sprintf("%q is not a course code", c.Code))
		}
		if c.Title == "" {
			return nil, errors.NewKnowledgeBaseError(name, i, "title", "missing")
		}
		faculty, ok := catalog.FacultyOf(c.Department)
		if !ok {
			return nil, errors.NewKnowledgeBaseError(name, i, "department", fmt.Sprintf("unknown department %q", c.Department))
		}
		if c.Faculty = strings.TrimSpace(c.Faculty); c.Faculty == "" {
			c.Faculty = faculty
		} else if c.Faculty != faculty {
			return nil, errors.NewKnowledgeBaseError(name, i, "faculty", fmt.Sprintf("%q does not match department %q", c.Faculty, c.Department))
		}
		if !slices.Contains(extract.Levels, c.Level) {
			return nil, errors.NewKnowledgeBaseError(name, i, "level", fmt.Sprintf("unknown level %q", c.Level))
		}
		semester, ok := extract.Semesters[strings.ToLower(strings.TrimSpace(c.Semester))]
		if !ok {
			return nil, errors.NewKnowledgeBaseError(name, i, "semester", fmt.Sprintf("unknown semester %q", c.Semester))
		}
		c.Semester = semester
		if c.Question == "" {
			return nil, errors.NewKnowledgeBaseError(name, i, "question", "missing")
		}
		if c.Answer == "" {
			return nil, errors.NewKnowledgeBaseError(name, i, "answer", "missing")
		}
	}
	return rows, nil
}
