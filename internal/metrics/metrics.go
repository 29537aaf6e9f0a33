// Package metrics exposes Prometheus counters for audits and generation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/verte-zerg/paranoid/internal/audit"
	"github.com/verte-zerg/paranoid/internal/model"
)

// Metrics provides observability for audits and password generation.
type Metrics struct {
	// Audit outcomes by status and overall result
	AuditsTotal *prometheus.CounterVec

	// Stage entries by stage name
	StagesTotal *prometheus.CounterVec

	AuditDuration prometheus.Histogram

	// Passwords handed out by endpoint
	GeneratedTotal *prometheus.CounterVec
}

// New registers all metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		AuditsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paranoid_audits_total",
			Help: "Total audits by status code and overall result",
		}, []string{"status", "result"}),

		StagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paranoid_audit_stages_total",
			Help: "Total audit stage entries by stage",
		}, []string{"stage"}),

		AuditDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "paranoid_audit_duration_seconds",
			Help:    "Duration of full audit runs",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		GeneratedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paranoid_generated_passwords_total",
			Help: "Total passwords returned to callers by source",
		}, []string{"source"}),
	}
}

// StageEntered records a stage transition.
func (m *Metrics) StageEntered(stage model.Stage) {
	if m != nil {
		m.StagesTotal.WithLabelValues(stage.String()).Inc()
	}
}

// AuditFinished records the outcome and duration of one audit.
func (m *Metrics) AuditFinished(res *model.AuditResult, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "fail"
	if err == nil && res != nil && res.AllPass {
		result = "pass"
	}
	if err != nil {
		result = "error"
	}
	m.AuditsTotal.WithLabelValues(strconv.Itoa(audit.Status(err)), result).Inc()
	m.AuditDuration.Observe(elapsed.Seconds())
}

// AddGenerated records n passwords returned by source.
func (m *Metrics) AddGenerated(source string, n int) {
	if m != nil && n > 0 {
		m.GeneratedTotal.WithLabelValues(source).Add(float64(n))
	}
}

var _ audit.Recorder = (*Metrics)(nil)
