package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Repository reads report data from Postgres. It never writes; the
// domain store owns every table it touches.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// ListSessions returns in-scope sessions matching the query, with class
// and subject labels joined, ordered by start time.
func (r *Repository) ListSessions(ctx context.Context, q SessionQuery) ([]Session, error) {
	query := `
		SELECT s.id, s.class_id, s.subject_id,
		       COALESCE(sub.code, ''), COALESCE(sub.description, ''),
		       s.start_time, s.end_time
		FROM sessions s
		LEFT JOIN subjects sub ON sub.id = s.subject_id
		WHERE s.subject_id IS NOT NULL`
	args := []any{}

	if !q.Scope.All {
		args = append(args, toUUIDArray(q.Scope.SubjectIDs))
		query += fmt.Sprintf(" AND s.subject_id = ANY($%d::uuid[])", len(args))
	}
	if q.ClassID != nil {
		args = append(args, *q.ClassID)
		query += fmt.Sprintf(" AND s.class_id = $%d", len(args))
	}
	if q.SubjectID != nil {
		args = append(args, *q.SubjectID)
		query += fmt.Sprintf(" AND s.subject_id = $%d", len(args))
	}
	if q.From != nil {
		args = append(args, *q.From)
		query += fmt.Sprintf(" AND s.start_time >= $%d", len(args))
	}
	if q.To != nil {
		// Inclusive end date: anything before the start of the next day.
		args = append(args, q.To.AddDate(0, 0, 1))
		query += fmt.Sprintf(" AND s.start_time < $%d", len(args))
	}
	query += " ORDER BY s.start_time"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Session
	for rows.Next() {
		var s Session
		var classID, subjectID sql.NullString
		if err := rows.Scan(&s.ID, &classID, &subjectID, &s.SubjectCode, &s.SubjectName, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		s.ClassID = nullableID(classID)
		s.SubjectID = nullableID(subjectID)
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListAttendance returns every scan against the given sessions.
func (r *Repository) ListAttendance(ctx context.Context, sessionIDs []string) ([]AttendanceRecord, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, session_id, status, scan_time
		FROM attendances
		WHERE session_id = ANY($1::uuid[])
	`, toUUIDArray(sessionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttendance(rows)
}

// ListStudentAttendance returns one student's scans against the given
// sessions.
func (r *Repository) ListStudentAttendance(ctx context.Context, studentID string, sessionIDs []string) ([]AttendanceRecord, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, session_id, status, scan_time
		FROM attendances
		WHERE student_id = $1 AND session_id = ANY($2::uuid[])
	`, studentID, toUUIDArray(sessionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttendance(rows)
}

// ListStudents returns students of the given classes ordered by name.
// A non-empty search keeps only rows whose name or email contains it as
// an exact (case-sensitive) substring; strpos sidesteps LIKE escaping.
func (r *Repository) ListStudents(ctx context.Context, classIDs []string, search string) ([]Student, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT u.id, u.full_name, COALESCE(u.email, ''), u.class_id,
		       COALESCE(c.code, ''), COALESCE(c.description, '')
		FROM users u
		LEFT JOIN classes c ON c.id = u.class_id
		WHERE u.class_id = ANY($1::uuid[])`
	args := []any{toUUIDArray(classIDs)}
	if search != "" {
		args = append(args, search)
		query += fmt.Sprintf(" AND (strpos(u.full_name, $%d) > 0 OR strpos(COALESCE(u.email, ''), $%d) > 0)", len(args), len(args))
	}
	query += " ORDER BY u.full_name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		var stu Student
		var classID sql.NullString
		if err := rows.Scan(&stu.ID, &stu.FullName, &stu.Email, &classID, &stu.ClassCode, &stu.ClassName); err != nil {
			return nil, err
		}
		stu.ClassID = nullableID(classID)
		res = append(res, stu)
	}
	return res, rows.Err()
}

// GetStudent returns a student with class labels joined, or nil.
func (r *Repository) GetStudent(ctx context.Context, id string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.full_name, COALESCE(u.email, ''), u.class_id,
		       COALESCE(c.code, ''), COALESCE(c.description, '')
		FROM users u
		LEFT JOIN classes c ON c.id = u.class_id
		WHERE u.id = $1
	`, id)
	var stu Student
	var classID sql.NullString
	if err := row.Scan(&stu.ID, &stu.FullName, &stu.Email, &classID, &stu.ClassCode, &stu.ClassName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	stu.ClassID = nullableID(classID)
	return &stu, nil
}

// LecturerExists reports whether a lecturer profile backs the given id.
func (r *Repository) LecturerExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM lecturers WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

// LecturerSubjectIDs returns the subjects assigned to a lecturer.
func (r *Repository) LecturerSubjectIDs(ctx context.Context, lecturerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT subject_id FROM lecturer_subjects WHERE lecturer_id = $1
	`, lecturerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetClass returns a class by id, or nil.
func (r *Repository) GetClass(ctx context.Context, id string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code, COALESCE(description, '') FROM classes WHERE id = $1
	`, id)
	var c Class
	if err := row.Scan(&c.ID, &c.Code, &c.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetSubject returns a subject by id, or nil.
func (r *Repository) GetSubject(ctx context.Context, id string) (*Subject, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code, COALESCE(description, '') FROM subjects WHERE id = $1
	`, id)
	var s Subject
	if err := row.Scan(&s.ID, &s.Code, &s.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListClasses returns the named classes ordered by code, for the filter
// side list.
func (r *Repository) ListClasses(ctx context.Context, ids []string) ([]Class, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, COALESCE(description, '')
		FROM classes
		WHERE id = ANY($1::uuid[])
		ORDER BY code
	`, toUUIDArray(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Code, &c.Description); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// ListSubjects returns subjects visible in the scope, ordered by code.
func (r *Repository) ListSubjects(ctx context.Context, scope Scope) ([]Subject, error) {
	query := `SELECT id, code, COALESCE(description, '') FROM subjects`
	args := []any{}
	if !scope.All {
		args = append(args, toUUIDArray(scope.SubjectIDs))
		query += " WHERE id = ANY($1::uuid[])"
	}
	query += " ORDER BY code"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Code, &s.Description); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func scanAttendance(rows *sql.Rows) ([]AttendanceRecord, error) {
	var res []AttendanceRecord
	for rows.Next() {
		var a AttendanceRecord
		if err := rows.Scan(&a.StudentID, &a.SessionID, &a.Status, &a.ScanTime); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// toUUIDArray renders a Postgres array literal; ids are bound with a
// ::uuid[] cast so malformed values fail in the database, not silently.
func toUUIDArray(ids []string) string {
	if len(ids) == 0 {
		return "{}"
	}
	return "{" + strings.Join(ids, ",") + "}"
}

func nullableID(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
