package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// counterSpec liga um contador atômico a um nome Prometheus
type counterSpec struct {
	name  string
	help  string
	value *int64
}

// Registry exposes the in-process counters in Prometheus text format.
// Counters stay atomic int64 fields; the collectors only read them on scrape.
func (m *Metrics) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	specs := []counterSpec{
		{"clientflow_http_requests_total", "HTTP requests handled.", &m.TotalRequests},
		{"clientflow_http_requests_failed_total", "HTTP requests answered with status >= 400.", &m.FailedRequests},
		{"clientflow_transitions_total", "State transitions applied.", &m.Transitions},
		{"clientflow_transitions_noop_total", "Transitions where old and new state were equal.", &m.TransitionsNoop},
		{"clientflow_transitions_rejected_total", "Primary mutations rejected.", &m.TransitionFailures},
		{"clientflow_updates_appended_total", "Project updates appended to the ledger.", &m.UpdatesAppended},
		{"clientflow_notifications_sent_total", "Notifications stored.", &m.NotificationsSent},
		{"clientflow_notifications_failed_total", "Notifications that could not be stored.", &m.NotificationsFailed},
		{"clientflow_emails_sent_total", "Emails handed to the mail transport.", &m.EmailsSent},
		{"clientflow_emails_failed_total", "Emails the mail transport rejected.", &m.EmailsFailed},
		{"clientflow_cascades_total", "Best-effort cascades executed.", &m.CascadesRun},
		{"clientflow_cascades_failed_total", "Best-effort cascades that failed and were swallowed.", &m.CascadesFailed},
		{"clientflow_release_notes_total", "Sprint release notes generated.", &m.ReleaseNotes},
		{"clientflow_release_notes_skipped_total", "Sprint completion checks that found existing release notes.", &m.ReleaseNotesSkip},
		{"clientflow_phase_milestones_total", "Phase milestones created by the phase cascade.", &m.PhaseMilestones},
		{"clientflow_change_requests_total", "Change requests created.", &m.ChangeRequestsCreated},
		{"clientflow_change_requests_rate_limited_total", "Change requests rejected by the weekly quota.", &m.ChangeRequestsLimited},
		{"clientflow_estimates_total", "Hour estimates returned by the estimator.", &m.EstimatesSucceeded},
		{"clientflow_estimates_failed_total", "Hour estimator failures.", &m.EstimatesFailed},
		{"clientflow_reports_total", "Project report workbooks generated.", &m.ReportsGenerated},
	}

	for _, spec := range specs {
		value := spec.value
		reg.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: spec.name, Help: spec.help},
			func() float64 { return float64(atomic.LoadInt64(value)) },
		))
	}

	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "clientflow_uptime_seconds", Help: "Process uptime."},
		func() float64 { return m.GetUptime().Seconds() },
	))

	return reg
}

// Handler returns the /metrics HTTP handler for the global metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Get().Registry(), promhttp.HandlerOpts{})
}
