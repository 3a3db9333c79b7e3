// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/importer"
)

type Metrics struct {
	ResultsComputed    *prometheus.CounterVec
	GradingLookups     *prometheus.CounterVec
	ImportSubjects     *prometheus.CounterVec
	UnmatchedStudents  prometheus.Counter
	UnresolvedSubjects prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests rely on.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResultsComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_results_computed_total",
			Help: "Exam, combined and rank computations served.",
		}, []string{"kind"}),
		GradingLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_lookup_total",
			Help: "Grading scale lookups by the pass that produced the grade.",
		}, []string{"pass"}),
		ImportSubjects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marks_import_subjects_total",
			Help: "Subjects written by marks imports, by outcome.",
		}, []string{"outcome"}),
		UnmatchedStudents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marks_import_unmatched_students_total",
			Help: "Spreadsheet rows that matched no enrolled student.",
		}),
		UnresolvedSubjects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marks_import_unresolved_subjects_total",
			Help: "Spreadsheet columns that resolved to no scheduled subject.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ResultsComputed,
			m.GradingLookups,
			m.ImportSubjects,
			m.UnmatchedStudents,
			m.UnresolvedSubjects,
			m.RequestDuration,
		)
	}
	return m
}

// ObserveLookup matches grading.Policy.OnLookup.
func (m *Metrics) ObserveLookup(p grading.Pass) {
	m.GradingLookups.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) ObserveResult(kind string) {
	m.ResultsComputed.WithLabelValues(kind).Inc()
}

// ObserveImport records a finished or refused import.
func (m *Metrics) ObserveImport(r *importer.Report) {
	if r == nil {
		return
	}
	m.ImportSubjects.WithLabelValues("success").Add(float64(r.Success))
	m.ImportSubjects.WithLabelValues("failed").Add(float64(len(r.Failures)))
	m.UnmatchedStudents.Add(float64(len(r.UnmatchedStudents)))
	m.UnresolvedSubjects.Add(float64(len(r.UnmatchedSubjects)))
}
