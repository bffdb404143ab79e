// Package extract parses structured course-query slots out of a normalized
// utterance and resolves follow-ups against the previous query.
package extract

import (
	"strings"

	"github.com/garyellow/unibot-go/internal/catalog"
	"github.com/garyellow/unibot-go/internal/session"
	"github.com/garyellow/unibot-go/internal/stringutil"
)

// Levels in detection order.
var Levels = []string{"100", "200", "300", "400", "500"}

// Semesters maps semester keywords to their canonical value.
var Semesters = map[string]string{
	"first":  catalog.SemesterFirst,
	"1st":    catalog.SemesterFirst,
	"second": catalog.SemesterSecond,
	"2nd":    catalog.SemesterSecond,
}

// DepartmentThreshold is the minimum partial ratio for a fuzzy department match.
const DepartmentThreshold = 80

// minFuzzyLen is the shortest text the department matcher will score.
const minFuzzyLen = 4

// skipWords are dropped before the department pass: slot wording and short
// function words that would otherwise align with part of a department name.
var skipWords = map[string]struct{}{
	"level": {}, "semester": {}, "course": {}, "courses": {},
	"and": {}, "or": {}, "the": {}, "for": {}, "of": {}, "in": {}, "a": {},
	"what": {}, "about": {}, "is": {}, "are": {}, "me": {}, "show": {}, "list": {},
}

// Extractor is stateless and safe for concurrent use.
type Extractor struct {
	departments []catalog.DepartmentFaculty
}

// New returns an extractor over catalog.FacultyMap.
func New() *Extractor {
	return &Extractor{departments: catalog.FacultyMap}
}

// Extract returns the slots for this turn. When the utterance names no
// department and the session remembers a previous query, the previous slots
// are kept and any slot found now is laid over them.
func (e *Extractor) Extract(normalized string, state session.State) catalog.Slots {
	slots := e.scan(normalized)
	if slots.Department == "" && state.LastSlots != nil {
		return state.LastSlots.Overlay(slots)
	}
	if slots.Department == "" {
		slots.Department = e.matchDepartment(normalized)
	}
	slots.Faculty, _ = catalog.FacultyOf(slots.Department)
	return slots
}

// Fresh returns only what the utterance itself carries, ignoring dialogue state.
func (e *Extractor) Fresh(normalized string) catalog.Slots {
	return e.Extract(normalized, session.State{})
}

// scan finds level, semester and a department in the utterance with slot
// words removed.
func (e *Extractor) scan(normalized string) catalog.Slots {
	var slots catalog.Slots
	for _, level := range Levels {
		if strings.Contains(normalized, level) {
			slots.Level = level
			break
		}
	}

	words := strings.Fields(strings.ReplaceAll(normalized, "?", " "))
	rest := make([]string, 0, len(words))
	for _, w := range words {
		if canon, ok := Semesters[w]; ok {
			if slots.Semester == "" {
				slots.Semester = canon
			}
			continue
		}
		if _, ok := skipWords[w]; ok {
			continue
		}
		if slots.Level != "" && strings.Contains(w, slots.Level) && stringutil.IsNumeric(w) {
			continue
		}
		rest = append(rest, w)
	}
	slots.Department = e.matchDepartment(strings.Join(rest, " "))
	return slots
}

// matchDepartment returns the department with the highest partial ratio
// against text, if it reaches the threshold. Earlier departments win ties.
func (e *Extractor) matchDepartment(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < minFuzzyLen {
		return ""
	}
	best, bestScore := "", -1
	for _, df := range e.departments {
		if score := stringutil.PartialRatio(text, df.Department); score > bestScore {
			best, bestScore = df.Department, score
		}
	}
	if bestScore < DepartmentThreshold {
		return ""
	}
	return best
}
