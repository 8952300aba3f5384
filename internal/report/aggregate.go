package report

import "strings"

// Aggregation over an in-memory snapshot. The store's query layer only
// hands back flat slices, so joins are explicit maps built here: session
// id -> session, then a fold over students (or subjects, or sessions
// depending on the mode).

// CrossStudentInput is a snapshot for the admin/lecturer report. Filter
// echoes what the caller selected; FilterClass/FilterSubject are the
// resolved records for those selections and stay nil when the filter was
// absent or the id matched nothing.
type CrossStudentInput struct {
	Sessions      []Session
	Attendance    []AttendanceRecord
	Students      []Student
	Filter        Filter
	FilterClass   *Class
	FilterSubject *Subject
}

// BuildCrossStudentRows produces one row per student.
//
// Numerator: distinct in-scope sessions with at least one present scan.
// Denominator: sessions of (student class, selected subject) when a
// subject is selected, else every in-scope session of the student's
// class ("Overall"). Present count is clamped to the denominator so bad
// data never renders above 100%.
func BuildCrossStudentRows(in CrossStudentInput) []ReportRow {
	sessionByID := make(map[string]Session, len(in.Sessions))
	for _, s := range in.Sessions {
		sessionByID[s.ID] = s
	}

	// Distinct present sessions per student.
	presentSets := make(map[string]map[string]struct{})
	// Most recent present scan per student, for the fallback columns.
	type recent struct {
		scan AttendanceRecord
		sess Session
	}
	recentByStudent := make(map[string]recent)

	for _, a := range in.Attendance {
		if a.Status != StatusPresent {
			continue
		}
		sess, ok := sessionByID[a.SessionID]
		if !ok {
			continue
		}
		set := presentSets[a.StudentID]
		if set == nil {
			set = make(map[string]struct{})
			presentSets[a.StudentID] = set
		}
		set[a.SessionID] = struct{}{}

		if r, ok := recentByStudent[a.StudentID]; !ok || a.ScanTime.After(r.scan.ScanTime) {
			recentByStudent[a.StudentID] = recent{scan: a, sess: sess}
		}
	}

	// Denominator lookups.
	totalsByClassSubject := make(map[[2]string]int)
	totalsByClass := make(map[string]int)
	for _, s := range in.Sessions {
		if s.ClassID == nil {
			continue
		}
		totalsByClass[*s.ClassID]++
		if s.SubjectID != nil {
			totalsByClassSubject[[2]string{*s.ClassID, *s.SubjectID}]++
		}
	}

	subjCode, subjName := resolveSubjectLabels(in)

	rows := make([]ReportRow, 0, len(in.Students))
	for _, stu := range in.Students {
		var total int
		if stu.ClassID != nil {
			if in.Filter.SubjectID != nil {
				total = totalsByClassSubject[[2]string{*stu.ClassID, *in.Filter.SubjectID}]
			} else {
				total = totalsByClass[*stu.ClassID]
			}
		}

		present := len(presentSets[stu.ID])
		if present > total {
			present = total
		}

		row := ReportRow{
			StudentID:     stu.ID,
			StudentName:   displayName(stu),
			StudentEmail:  stu.Email,
			SubjectCode:   subjCode,
			SubjectName:   subjName,
			TotalSessions: total,
			PresentCount:  present,
			Percentage:    percentage(present, total),
		}

		if in.FilterClass != nil {
			row.ClassCode = strPtr(in.FilterClass.Code)
			row.ClassName = strPtr(in.FilterClass.Description)
		} else if stu.ClassID != nil {
			row.ClassCode = strPtr(stu.ClassCode)
			row.ClassName = strPtr(stu.ClassName)
		}

		if r, ok := recentByStudent[stu.ID]; ok {
			row.RecentSubjectCode = strPtr(r.sess.SubjectCode)
			start, end := r.sess.StartTime, r.sess.EndTime
			row.RecentStart = &start
			row.RecentEnd = &end
		}

		rows = append(rows, row)
	}
	return rows
}

// resolveSubjectLabels picks the label pair shared by every row: the
// explicitly selected subject if any, else the only subject the filtered
// sessions span, else the literal "-"/"Overall" pair of the class-wide
// denominator mode.
func resolveSubjectLabels(in CrossStudentInput) (code, name *string) {
	if in.Filter.SubjectID != nil {
		if in.FilterSubject != nil {
			return strPtr(in.FilterSubject.Code), strPtr(in.FilterSubject.Description)
		}
		return nil, nil
	}

	var only *Session
	distinct := map[string]struct{}{}
	for i, s := range in.Sessions {
		if s.SubjectID == nil {
			continue
		}
		distinct[*s.SubjectID] = struct{}{}
		only = &in.Sessions[i]
	}
	if len(distinct) == 1 {
		return strPtr(only.SubjectCode), strPtr(only.SubjectName)
	}
	return strPtr("-"), strPtr("Overall")
}

// BuildSubjectSummary produces one row per subject for a single
// student's class history. Sessions without a subject never reach this
// function (the store filters them out); attendance must belong to the
// one student being summarized.
func BuildSubjectSummary(sessions []Session, attendance []AttendanceRecord) []SubjectSummaryRow {
	presentSet := make(map[string]struct{})
	for _, a := range attendance {
		if a.Status == StatusPresent {
			presentSet[a.SessionID] = struct{}{}
		}
	}

	var order []string
	bySubject := make(map[string]*SubjectSummaryRow)
	for _, s := range sessions {
		if s.SubjectID == nil {
			continue
		}
		row := bySubject[*s.SubjectID]
		if row == nil {
			row = &SubjectSummaryRow{
				SubjectID:   *s.SubjectID,
				SubjectCode: fallbackDash(s.SubjectCode),
				SubjectName: fallbackDash(s.SubjectName),
			}
			bySubject[*s.SubjectID] = row
			order = append(order, *s.SubjectID)
		}
		row.TotalSessions++
		if _, ok := presentSet[s.ID]; ok {
			row.PresentCount++
		}
	}

	rows := make([]SubjectSummaryRow, 0, len(order))
	for _, id := range order {
		row := *bySubject[id]
		if row.PresentCount > row.TotalSessions {
			row.PresentCount = row.TotalSessions
		}
		row.Percentage = percentage(row.PresentCount, row.TotalSessions)
		rows = append(rows, row)
	}
	return rows
}

// BuildSessionDetails produces one drill-down row per session for a
// single student, in session start order. A session counts Present when
// any present-status scan exists for it.
func BuildSessionDetails(sessions []Session, attendance []AttendanceRecord) []SessionDetailRow {
	presentSet := make(map[string]struct{})
	for _, a := range attendance {
		if a.Status == StatusPresent {
			presentSet[a.SessionID] = struct{}{}
		}
	}

	rows := make([]SessionDetailRow, 0, len(sessions))
	for _, s := range sessions {
		status := "Absent"
		if _, ok := presentSet[s.ID]; ok {
			status = "Present"
		}
		rows = append(rows, SessionDetailRow{
			SessionID:    s.ID,
			SubjectLabel: subjectLabel(s.SubjectCode, s.SubjectName),
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
			Status:       status,
		})
	}
	return rows
}

func strPtr(s string) *string { return &s }

func fallbackDash(s string) string {
	if v := strings.TrimSpace(s); v != "" {
		return v
	}
	return "-"
}
