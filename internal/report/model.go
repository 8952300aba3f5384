package report

import (
	"errors"
	"math"
	"strings"
	"time"
)

// StatusPresent is the attendance status value meaning the student was
// marked in attendance. Every other status (absent, late) counts as
// non-present for reporting.
const StatusPresent = 1

// ErrUnauthorized is returned when a viewer's role cannot be resolved to
// a backing record, e.g. a lecturer token whose profile row is missing.
var ErrUnauthorized = errors.New("viewer identity not resolvable")

// Role tags the viewer for scope resolution.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleLecturer Role = "lecturer"
	RoleStudent  Role = "student"
)

// Viewer is the authenticated identity a report is built for.
type Viewer struct {
	ID   string
	Role Role
}

// Class groups students.
type Class struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Subject is a teachable unit.
type Subject struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Session is a scheduled occurrence requiring attendance. Class and
// subject are optional relations; the joined code/description columns
// are empty when the relation is absent.
type Session struct {
	ID          string    `json:"id"`
	ClassID     *string   `json:"class_id"`
	SubjectID   *string   `json:"subject_id"`
	SubjectCode string    `json:"subject_code"`
	SubjectName string    `json:"subject_name"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// Student carries the class relation needed for denominators.
type Student struct {
	ID        string  `json:"id"`
	FullName  string  `json:"full_name"`
	Email     string  `json:"email"`
	ClassID   *string `json:"class_id"`
	ClassCode string  `json:"class_code"`
	ClassName string  `json:"class_name"`
}

// AttendanceRecord is one raw scan. Multiple records may exist for the
// same (student, session) pair; counting de-duplicates per session.
type AttendanceRecord struct {
	StudentID string
	SessionID string
	Status    int
	ScanTime  time.Time
}

// Filter is the optional session selection; absent field means no
// constraint. From/To are inclusive calendar dates applied to session
// start time.
type Filter struct {
	ClassID   *string    `json:"class_id"`
	SubjectID *string    `json:"subject_id"`
	From      *time.Time `json:"from"`
	To        *time.Time `json:"to"`
}

// ReportRow is one cross-student report line. Recent* fields carry the
// student's most recent present scan within the filtered range and stay
// nil when there is none.
type ReportRow struct {
	StudentID         string     `json:"student_id"`
	StudentName       string     `json:"student_name"`
	StudentEmail      string     `json:"student_email,omitempty"`
	ClassCode         *string    `json:"class_code"`
	ClassName         *string    `json:"class_name"`
	SubjectCode       *string    `json:"subject_code"`
	SubjectName       *string    `json:"subject_name"`
	TotalSessions     int        `json:"total_sessions"`
	PresentCount      int        `json:"present_count"`
	Percentage        float64    `json:"percentage"`
	RecentSubjectCode *string    `json:"recent_subject_code,omitempty"`
	RecentStart       *time.Time `json:"recent_start,omitempty"`
	RecentEnd         *time.Time `json:"recent_end,omitempty"`
}

// SubjectSummaryRow is one line of the self-service per-subject summary.
type SubjectSummaryRow struct {
	SubjectID     string  `json:"subject_id"`
	SubjectCode   string  `json:"subject_code"`
	SubjectName   string  `json:"subject_name"`
	TotalSessions int     `json:"total_sessions"`
	PresentCount  int     `json:"present_count"`
	Percentage    float64 `json:"percentage"`
}

// SessionDetailRow is one line of the session drill-down.
type SessionDetailRow struct {
	SessionID    string    `json:"session_id"`
	SubjectLabel string    `json:"subject_label"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"`
}

// percentage computes round(present/total*100, 2) and never divides by
// zero.
func percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	v := float64(present) * 100 / float64(total)
	return math.Round(v*100) / 100
}

// subjectLabel renders "CODE - NAME" and degrades to whichever part is
// non-blank, or "-" when both are.
func subjectLabel(code, name string) string {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	switch {
	case code == "" && name == "":
		return "-"
	case name == "":
		return code
	case code == "":
		return name
	default:
		return code + " - " + name
	}
}

// displayName prefers the full name, then email, then the raw id.
func displayName(stu Student) string {
	if s := strings.TrimSpace(stu.FullName); s != "" {
		return s
	}
	if stu.Email != "" {
		return stu.Email
	}
	return stu.ID
}
