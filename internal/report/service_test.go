package report

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"
)

// fakeStore serves a fixed snapshot, applying the same filter contracts
// the Postgres repository promises.
type fakeStore struct {
	students   []Student
	lecturers  map[string][]string // lecturer id -> assigned subject ids
	sessions   []Session
	attendance []AttendanceRecord
	classes    map[string]Class
	subjects   map[string]Subject
}

func (f *fakeStore) GetStudent(_ context.Context, id string) (*Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			stu := s
			return &stu, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListStudents(_ context.Context, classIDs []string, search string) ([]Student, error) {
	inClass := map[string]bool{}
	for _, id := range classIDs {
		inClass[id] = true
	}
	var out []Student
	for _, s := range f.students {
		if s.ClassID == nil || !inClass[*s.ClassID] {
			continue
		}
		if search != "" && !strings.Contains(s.FullName, search) && !strings.Contains(s.Email, search) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeStore) LecturerExists(_ context.Context, id string) (bool, error) {
	_, ok := f.lecturers[id]
	return ok, nil
}

func (f *fakeStore) LecturerSubjectIDs(_ context.Context, id string) ([]string, error) {
	return f.lecturers[id], nil
}

func (f *fakeStore) ListSessions(_ context.Context, q SessionQuery) ([]Session, error) {
	var out []Session
	for _, s := range f.sessions {
		if s.SubjectID == nil || !q.Scope.Contains(*s.SubjectID) {
			continue
		}
		if q.ClassID != nil && (s.ClassID == nil || *s.ClassID != *q.ClassID) {
			continue
		}
		if q.SubjectID != nil && *s.SubjectID != *q.SubjectID {
			continue
		}
		if q.From != nil && s.StartTime.Before(*q.From) {
			continue
		}
		if q.To != nil && !s.StartTime.Before(q.To.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeStore) ListAttendance(_ context.Context, sessionIDs []string) ([]AttendanceRecord, error) {
	return f.filterAttendance("", sessionIDs), nil
}

func (f *fakeStore) ListStudentAttendance(_ context.Context, studentID string, sessionIDs []string) ([]AttendanceRecord, error) {
	return f.filterAttendance(studentID, sessionIDs), nil
}

func (f *fakeStore) filterAttendance(studentID string, sessionIDs []string) []AttendanceRecord {
	in := map[string]bool{}
	for _, id := range sessionIDs {
		in[id] = true
	}
	var out []AttendanceRecord
	for _, a := range f.attendance {
		if !in[a.SessionID] {
			continue
		}
		if studentID != "" && a.StudentID != studentID {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (f *fakeStore) GetClass(_ context.Context, id string) (*Class, error) {
	if c, ok := f.classes[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (f *fakeStore) GetSubject(_ context.Context, id string) (*Subject, error) {
	if s, ok := f.subjects[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeStore) ListClasses(_ context.Context, ids []string) ([]Class, error) {
	var out []Class
	for _, id := range ids {
		if c, ok := f.classes[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeStore) ListSubjects(_ context.Context, scope Scope) ([]Subject, error) {
	var out []Subject
	for _, s := range f.subjects {
		if scope.Contains(s.ID) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// lecturerFixture: class c1 has two S1 sessions and one S2 session;
// lecturer "lec1" is assigned only S1; students x and y sit in c1.
func lecturerFixture() *fakeStore {
	return &fakeStore{
		students: []Student{
			{ID: "x", FullName: "Xena Harlow", Email: "xena@school.test", ClassID: strPtr("c1"), ClassCode: "C1", ClassName: "Class One"},
			{ID: "y", FullName: "Yuri Bennett", Email: "yuri@school.test", ClassID: strPtr("c1"), ClassCode: "C1", ClassName: "Class One"},
		},
		lecturers: map[string][]string{"lec1": {"sub1"}},
		sessions: []Session{
			mkSession("s1", "c1", "sub1", "S1", "Subject One", base),
			mkSession("s2", "c1", "sub1", "S1", "Subject One", base.Add(24*time.Hour)),
			mkSession("s3", "c1", "sub2", "S2", "Subject Two", base.Add(48*time.Hour)),
		},
		attendance: []AttendanceRecord{
			present("x", "s1", base),
			present("x", "s2", base.Add(24*time.Hour)),
			present("x", "s3", base.Add(48*time.Hour)),
		},
		classes:  map[string]Class{"c1": {ID: "c1", Code: "C1", Description: "Class One"}},
		subjects: map[string]Subject{"sub1": {ID: "sub1", Code: "S1", Description: "Subject One"}, "sub2": {ID: "sub2", Code: "S2", Description: "Subject Two"}},
	}
}

func TestLecturerScopeRestrictsDenominator(t *testing.T) {
	svc := NewService(lecturerFixture())
	classID := "c1"

	page, err := svc.CrossStudentReport(context.Background(), Viewer{ID: "lec1", Role: RoleLecturer}, Filter{ClassID: &classID}, "", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(page.Rows))
	}
	for _, r := range page.Rows {
		// S2's session is outside the lecturer's scope, so only the two
		// S1 sessions may count.
		if r.TotalSessions != 2 {
			t.Fatalf("denominator must count only scoped sessions, got %d", r.TotalSessions)
		}
		if r.SubjectCode == nil || *r.SubjectCode != "S1" {
			t.Fatalf("single subject in range must label rows S1, got %v", r.SubjectCode)
		}
	}
	x := page.Rows[0]
	if x.StudentName != "Xena Harlow" || x.PresentCount != 2 || x.Percentage != 100.00 {
		t.Fatalf("unexpected first row: %+v", x)
	}
	// Side lists are scoped to the viewer.
	if len(page.Subjects) != 1 || page.Subjects[0].Code != "S1" {
		t.Fatalf("subject side list must honor lecturer scope: %+v", page.Subjects)
	}
	if len(page.Classes) != 1 || page.Classes[0].Code != "C1" {
		t.Fatalf("class side list must cover in-scope sessions: %+v", page.Classes)
	}
}

func TestUnresolvableLecturerIsUnauthorized(t *testing.T) {
	svc := NewService(lecturerFixture())
	_, err := svc.CrossStudentReport(context.Background(), Viewer{ID: "ghost", Role: RoleLecturer}, Filter{}, "", "", "", true)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	_, err = svc.StudentSessions(context.Background(), Viewer{ID: "ghost", Role: RoleLecturer}, "x", Filter{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("drill-down must also refuse, got %v", err)
	}
}

func TestLecturerWithNoAssignmentsGetsEmptyReport(t *testing.T) {
	st := lecturerFixture()
	st.lecturers["lec2"] = nil
	svc := NewService(st)

	page, err := svc.CrossStudentReport(context.Background(), Viewer{ID: "lec2", Role: RoleLecturer}, Filter{}, "", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 0 {
		t.Fatalf("empty scope must give empty rows, not an error: %+v", page.Rows)
	}
}

func TestSearchMatchesEmailSubstring(t *testing.T) {
	svc := NewService(lecturerFixture())

	page, err := svc.CrossStudentReport(context.Background(), Viewer{Role: RoleAdmin}, Filter{}, "yuri@", "", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 1 || page.Rows[0].StudentID != "y" {
		t.Fatalf("search must match email substring only for y, got %+v", page.Rows)
	}
	// Excluded students contribute nothing anywhere.
	if page.Rows[0].TotalSessions != 3 {
		t.Fatalf("admin overall denominator should be 3, got %d", page.Rows[0].TotalSessions)
	}
}

func TestDateRangeIsInclusiveOfEndDay(t *testing.T) {
	svc := NewService(lecturerFixture())
	from := base.Truncate(24 * time.Hour)
	to := base.Add(24 * time.Hour).Truncate(24 * time.Hour) // calendar day of s2

	page, err := svc.CrossStudentReport(context.Background(), Viewer{Role: RoleAdmin}, Filter{From: &from, To: &to}, "", "", "", false)
	if err != nil {
		t.Fatal(err)
	}
	// s1 and s2 fall inside [from, to]; s3 is the day after.
	if page.Rows[0].TotalSessions != 2 {
		t.Fatalf("want inclusive end day (2 sessions), got %d", page.Rows[0].TotalSessions)
	}
}

func TestMySummaryWholeHistory(t *testing.T) {
	svc := NewService(lecturerFixture())

	rows, err := svc.MySummary(context.Background(), Viewer{ID: "x", Role: RoleStudent}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("want one row per subject, got %d", len(rows))
	}
	// Default sort is subject name ascending.
	if rows[0].SubjectName != "Subject One" || rows[1].SubjectName != "Subject Two" {
		t.Fatalf("unexpected order: %+v", rows)
	}
	if rows[0].PresentCount != 2 || rows[0].TotalSessions != 2 {
		t.Fatalf("sub1: want 2/2, got %d/%d", rows[0].PresentCount, rows[0].TotalSessions)
	}
}

func TestMySummaryNoClassYieldsEmpty(t *testing.T) {
	st := lecturerFixture()
	st.students = append(st.students, Student{ID: "z", FullName: "Zed Nomad"})
	svc := NewService(st)

	rows, err := svc.MySummary(context.Background(), Viewer{ID: "z", Role: RoleStudent}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("student without class must get empty rows, got %+v", rows)
	}

	details, err := svc.MySessions(context.Background(), Viewer{ID: "z", Role: RoleStudent}, "sub1")
	if err != nil {
		t.Fatal(err)
	}
	if len(details) != 0 {
		t.Fatalf("sessions drill-down must be empty too, got %+v", details)
	}
}

func TestMySummaryUnknownStudentIsUnauthorized(t *testing.T) {
	svc := NewService(lecturerFixture())
	if _, err := svc.MySummary(context.Background(), Viewer{ID: "nobody", Role: RoleStudent}, "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestMySessionsStatuses(t *testing.T) {
	svc := NewService(lecturerFixture())

	rows, err := svc.MySessions(context.Background(), Viewer{ID: "y", Role: RoleStudent}, "sub1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 sub1 sessions, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Status != "Absent" {
			t.Fatalf("y never attended, got %q", r.Status)
		}
		if r.SubjectLabel != "S1 - Subject One" {
			t.Fatalf("want combined label, got %q", r.SubjectLabel)
		}
	}
}

func TestStudentSessionsDrillDown(t *testing.T) {
	svc := NewService(lecturerFixture())

	rows, err := svc.StudentSessions(context.Background(), Viewer{Role: RoleAdmin}, "x", Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("admin scope covers all 3 sessions, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].StartTime.Before(rows[i-1].StartTime) {
			t.Fatalf("rows not in start order: %+v", rows)
		}
	}
	for _, r := range rows {
		if r.Status != "Present" {
			t.Fatalf("x attended everything, got %q for %s", r.Status, r.SessionID)
		}
	}
}
