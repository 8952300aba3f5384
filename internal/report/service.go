package report

import (
	"context"
	"time"
)

// Store is the read-only slice of the domain store this subsystem needs.
// All lookups return empty results for empty matches; errors are
// surfaced as-is.
type Store interface {
	GetStudent(ctx context.Context, id string) (*Student, error)
	ListStudents(ctx context.Context, classIDs []string, search string) ([]Student, error)
	LecturerExists(ctx context.Context, id string) (bool, error)
	LecturerSubjectIDs(ctx context.Context, lecturerID string) ([]string, error)
	ListSessions(ctx context.Context, q SessionQuery) ([]Session, error)
	ListAttendance(ctx context.Context, sessionIDs []string) ([]AttendanceRecord, error)
	ListStudentAttendance(ctx context.Context, studentID string, sessionIDs []string) ([]AttendanceRecord, error)
	GetClass(ctx context.Context, id string) (*Class, error)
	GetSubject(ctx context.Context, id string) (*Subject, error)
	ListClasses(ctx context.Context, ids []string) ([]Class, error)
	ListSubjects(ctx context.Context, scope Scope) ([]Subject, error)
}

// SessionQuery selects sessions for a report. Sessions without a subject
// are always excluded; filters combine with AND; date bounds apply to
// the session start time, To being an inclusive calendar date.
type SessionQuery struct {
	Scope     Scope
	ClassID   *string
	SubjectID *string
	From      *time.Time
	To        *time.Time
}

// Service builds report pages from store snapshots. It holds no mutable
// state; every call reads fresh.
type Service struct {
	store Store
}

// NewService creates a report service over a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Page is the full payload for a report view: the echoed request state,
// the ordered rows, and the side lists the filter UI is built from.
// Partial fetches reuse only Rows.
type Page struct {
	Filter   Filter      `json:"filter"`
	Search   string      `json:"search,omitempty"`
	Sort     string      `json:"sort,omitempty"`
	Dir      string      `json:"dir,omitempty"`
	Rows     []ReportRow `json:"rows"`
	Classes  []Class     `json:"classes,omitempty"`
	Subjects []Subject   `json:"subjects,omitempty"`
}

// CrossStudentReport builds the admin/lecturer report (one row per
// student). withSides controls whether the class/subject side lists are
// fetched; partial refreshes skip them.
func (s *Service) CrossStudentReport(ctx context.Context, viewer Viewer, filter Filter, search, sortKey, dir string, withSides bool) (*Page, error) {
	scope, err := s.resolveScope(ctx, viewer)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessions(ctx, SessionQuery{
		Scope:     scope,
		ClassID:   filter.ClassID,
		SubjectID: filter.SubjectID,
		From:      filter.From,
		To:        filter.To,
	})
	if err != nil {
		return nil, err
	}
	sessionIDs := sessionIDsOf(sessions)

	attendance, err := s.store.ListAttendance(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	classIDs := classIDsOf(sessions)
	studentClassIDs := classIDs
	if filter.ClassID != nil {
		studentClassIDs = []string{*filter.ClassID}
	}
	var students []Student
	if len(studentClassIDs) > 0 {
		students, err = s.store.ListStudents(ctx, studentClassIDs, search)
		if err != nil {
			return nil, err
		}
	}

	var filterClass *Class
	if filter.ClassID != nil {
		if filterClass, err = s.store.GetClass(ctx, *filter.ClassID); err != nil {
			return nil, err
		}
	}
	var filterSubject *Subject
	if filter.SubjectID != nil {
		if filterSubject, err = s.store.GetSubject(ctx, *filter.SubjectID); err != nil {
			return nil, err
		}
	}

	rows := BuildCrossStudentRows(CrossStudentInput{
		Sessions:      sessions,
		Attendance:    attendance,
		Students:      students,
		Filter:        filter,
		FilterClass:   filterClass,
		FilterSubject: filterSubject,
	})
	SortRows(rows, sortKey, dir)

	page := &Page{Filter: filter, Search: search, Sort: sortKey, Dir: dir, Rows: rows}
	if withSides {
		if page.Classes, err = s.store.ListClasses(ctx, classIDs); err != nil {
			return nil, err
		}
		if page.Subjects, err = s.store.ListSubjects(ctx, scope); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// StudentSessions builds the admin/lecturer drill-down for one student.
func (s *Service) StudentSessions(ctx context.Context, viewer Viewer, studentID string, filter Filter) ([]SessionDetailRow, error) {
	scope, err := s.resolveScope(ctx, viewer)
	if err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessions(ctx, SessionQuery{
		Scope:     scope,
		ClassID:   filter.ClassID,
		SubjectID: filter.SubjectID,
		From:      filter.From,
		To:        filter.To,
	})
	if err != nil {
		return nil, err
	}
	attendance, err := s.store.ListStudentAttendance(ctx, studentID, sessionIDsOf(sessions))
	if err != nil {
		return nil, err
	}
	return BuildSessionDetails(sessions, attendance), nil
}

// MySummary builds the self-service per-subject summary over the whole
// history of the requesting student's class. A student without a class
// gets an empty row set.
func (s *Service) MySummary(ctx context.Context, viewer Viewer, sortKey, dir string) ([]SubjectSummaryRow, error) {
	me, err := s.store.GetStudent(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if me == nil {
		return nil, ErrUnauthorized
	}
	if me.ClassID == nil {
		return []SubjectSummaryRow{}, nil
	}

	sessions, err := s.store.ListSessions(ctx, SessionQuery{
		Scope:   Scope{All: true},
		ClassID: me.ClassID,
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return []SubjectSummaryRow{}, nil
	}

	attendance, err := s.store.ListStudentAttendance(ctx, me.ID, sessionIDsOf(sessions))
	if err != nil {
		return nil, err
	}

	rows := BuildSubjectSummary(sessions, attendance)
	if sortKey == "" {
		sortKey = SortBySubject
	}
	SortSummaryRows(rows, sortKey, dir)
	return rows, nil
}

// MySessions builds the self-service drill-down for one subject in the
// requesting student's class.
func (s *Service) MySessions(ctx context.Context, viewer Viewer, subjectID string) ([]SessionDetailRow, error) {
	me, err := s.store.GetStudent(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if me == nil {
		return nil, ErrUnauthorized
	}
	if me.ClassID == nil {
		return []SessionDetailRow{}, nil
	}

	sessions, err := s.store.ListSessions(ctx, SessionQuery{
		Scope:     Scope{All: true},
		ClassID:   me.ClassID,
		SubjectID: &subjectID,
	})
	if err != nil {
		return nil, err
	}
	attendance, err := s.store.ListStudentAttendance(ctx, me.ID, sessionIDsOf(sessions))
	if err != nil {
		return nil, err
	}
	return BuildSessionDetails(sessions, attendance), nil
}

func sessionIDsOf(sessions []Session) []string {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return ids
}

func classIDsOf(sessions []Session) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, s := range sessions {
		if s.ClassID == nil {
			continue
		}
		if _, ok := seen[*s.ClassID]; ok {
			continue
		}
		seen[*s.ClassID] = struct{}{}
		ids = append(ids, *s.ClassID)
	}
	return ids
}
