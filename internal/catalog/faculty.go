package catalog

// Faculty names.
const (
	FacultyICT           = "College of Information and Communication Technology (CICOT)"
	FacultyEngineering   = "College of Engineering (COLENG)"
	FacultyEnvironmental = "College of Environmental Sciences (COLENVS)"
	FacultyManagement    = "College of Management Sciences (COLMAS)"
	FacultyNatural       = "College of Natural and Applied Sciences (CONAS)"
	FacultyFood          = "College of Food Sciences (COLFOS)"
)

// DepartmentFaculty is one row of the department to faculty table.
type DepartmentFaculty struct {
	Department string
	Faculty    string
}

// FacultyMap lists every department (lowercase) with its faculty.
// Slice order is the iteration order used to break fuzzy-match ties.
var FacultyMap = []DepartmentFaculty{
	{"computer science", FacultyICT},
	{"information technology", FacultyICT},
	{"cyber security", FacultyICT},
	{"software engineering", FacultyICT},
	{"mechatronics engineering", FacultyEngineering},
	{"electrical engineering", FacultyEngineering},
	{"civil engineering", FacultyEngineering},
	{"mechanical engineering", FacultyEngineering},
	{"architecture", FacultyEnvironmental},
	{"estate management", FacultyEnvironmental},
	{"quantity surveying", FacultyEnvironmental},
	{"accounting", FacultyManagement},
	{"business administration", FacultyManagement},
	{"biochemistry", FacultyNatural},
	{"microbiology", FacultyNatural},
	{"food science and technology", FacultyFood},
}

var facultyIndex = func() map[string]string {
	m := make(map[string]string, len(FacultyMap))
	for _, row := range FacultyMap {
		m[row.Department] = row.Faculty
	}
	return m
}()

// FacultyOf returns the faculty of a department.
func FacultyOf(department string) (string, bool) {
	f, ok := facultyIndex[department]
	return f, ok
}

// DepartmentNames returns the departments in FacultyMap order.
func DepartmentNames() []string {
	names := make([]string, len(FacultyMap))
	for i, row := range FacultyMap {
		names[i] = row.Department
	}
	return names
}
