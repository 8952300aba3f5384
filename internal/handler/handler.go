package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"attendtrack/internal/auth"
	"attendtrack/internal/cache"
	"attendtrack/internal/export"
	"attendtrack/internal/metrics"
	"attendtrack/internal/report"
)

const dateLayout = "2006-01-02"

// Handler serves the report endpoints.
type Handler struct {
	svc   *report.Service
	cache *cache.Cache // nil when caching disabled
	log   *zap.Logger
}

// New creates a handler.
func New(svc *report.Service, c *cache.Cache, log *zap.Logger) *Handler {
	return &Handler{svc: svc, cache: c, log: log}
}

// CrossStudentReport serves the admin/lecturer report. A request marked
// as an incremental fetch (X-Requested-With: XMLHttpRequest) gets only
// the row table; a full load also gets the filter side lists.
func (h *Handler) CrossStudentReport(c *gin.Context) {
	viewer := viewerFrom(c)
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	search := strings.TrimSpace(c.Query("search"))
	sortKey, dir := c.Query("sort"), c.Query("dir")
	partial := c.GetHeader("X-Requested-With") == "XMLHttpRequest"

	key := cache.Key(string(viewer.Role), viewer.ID, c.Request.URL.RawQuery, boolFlag(partial))
	if b := h.cache.Get(c.Request.Context(), key); b != nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	start := time.Now()
	page, err := h.svc.CrossStudentReport(c.Request.Context(), viewer, filter, search, sortKey, dir, !partial)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.ObserveBuild("cross_student", time.Since(start))

	var payload any = page
	if partial {
		payload = gin.H{"rows": page.Rows}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.cache.Set(c.Request.Context(), key, b)
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// StudentSessions serves the drill-down list for one student.
func (h *Handler) StudentSessions(c *gin.Context) {
	viewer := viewerFrom(c)
	studentID := c.Query("student_id")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id required"})
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	rows, err := h.svc.StudentSessions(c.Request.Context(), viewer, studentID, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.ObserveBuild("student_sessions", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// ExportReport streams the cross-student report as an XLSX attachment.
func (h *Handler) ExportReport(c *gin.Context) {
	viewer := viewerFrom(c)
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	search := strings.TrimSpace(c.Query("search"))

	start := time.Now()
	page, err := h.svc.CrossStudentReport(c.Request.Context(), viewer, filter, search, c.Query("sort"), c.Query("dir"), false)
	if err != nil {
		h.fail(c, err)
		return
	}
	buf, err := export.AttendanceReport(page.Rows)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.ObserveBuild("export", time.Since(start))

	c.Header("Content-Disposition", `attachment; filename="attendance_report.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// MySummary serves the per-subject summary for the requesting student.
func (h *Handler) MySummary(c *gin.Context) {
	viewer := viewerFrom(c)

	start := time.Now()
	rows, err := h.svc.MySummary(c.Request.Context(), viewer, c.Query("sort"), c.Query("dir"))
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.ObserveBuild("my_summary", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// MySessions serves the per-session drill-down for one of the
// requesting student's subjects.
func (h *Handler) MySessions(c *gin.Context) {
	viewer := viewerFrom(c)
	subjectID := c.Query("subject_id")
	if _, err := uuid.Parse(subjectID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid subject_id required"})
		return
	}

	start := time.Now()
	rows, err := h.svc.MySessions(c.Request.Context(), viewer, subjectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.ObserveBuild("my_sessions", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, report.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "viewer not recognized"})
		return
	}
	metrics.ReportErrors.Inc()
	h.log.Error("report build failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "report build failed"})
}

// viewerFrom maps verified token claims onto a report viewer.
func viewerFrom(c *gin.Context) report.Viewer {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)
	return report.Viewer{ID: claims.Subject, Role: report.Role(claims.Role)}
}

// parseFilter reads the optional class/subject/date filters. Ids must be
// UUIDs, dates must be YYYY-MM-DD; anything malformed is a 400, never a
// silent no-filter.
func parseFilter(c *gin.Context) (report.Filter, error) {
	var f report.Filter
	if v := c.Query("class_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("invalid class_id")
		}
		s := id.String()
		f.ClassID = &s
	}
	if v := c.Query("subject_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("invalid subject_id")
		}
		s := id.String()
		f.SubjectID = &s
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, errors.New("invalid from date, want YYYY-MM-DD")
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, errors.New("invalid to date, want YYYY-MM-DD")
		}
		f.To = &t
	}
	return f, nil
}

func boolFlag(b bool) string {
	if b {
		return "partial"
	}
	return "full"
}
