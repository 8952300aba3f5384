package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReportBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendtrack", Name: "report_builds_total", Help: "Report builds by mode",
	}, []string{"mode"})
	ReportErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "attendtrack", Name: "report_errors_total", Help: "Failed report builds",
	})
	ReportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendtrack", Name: "report_build_seconds", Help: "Report build latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendtrack", Name: "cache_lookups_total", Help: "Report cache lookups",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(ReportBuilds, ReportErrors, ReportDuration, CacheLookups)
}

// ObserveBuild records one report build of the given mode.
func ObserveBuild(mode string, d time.Duration) {
	ReportBuilds.WithLabelValues(mode).Inc()
	ReportDuration.WithLabelValues(mode).Observe(d.Seconds())
}
