package metrics

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// EndpointMetrics tracks metrics for a specific endpoint
type EndpointMetrics struct {
	Requests     int64
	Errors       int64
	TotalLatency int64
}

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	TotalLatency       int64
	RequestCount       int64

	// Transition metrics
	Transitions        int64
	TransitionsNoop    int64
	TransitionFailures int64

	// Ledger metrics
	UpdatesAppended     int64
	NotificationsSent   int64
	NotificationsFailed int64
	EmailsSent          int64
	EmailsFailed        int64

	// Cascade metrics
	CascadesRun      int64
	CascadesFailed   int64
	ReleaseNotes     int64
	ReleaseNotesSkip int64
	PhaseMilestones  int64

	// Change request metrics
	ChangeRequestsCreated int64
	ChangeRequestsLimited int64
	EstimatesSucceeded    int64
	EstimatesFailed       int64

	// Report metrics
	ReportsGenerated int64
	ReportErrors     int64

	EndpointMetrics map[string]*EndpointMetrics

	StartTime time.Time
}

var globalMetrics *Metrics
var once sync.Once

// Init initializes the global metrics instance
func Init() {
	once.Do(func() {
		globalMetrics = &Metrics{
			StartTime:       time.Now(),
			EndpointMetrics: make(map[string]*EndpointMetrics),
		}
	})
}

// Get returns the global metrics instance
func Get() *Metrics {
	Init()
	return globalMetrics
}

// IncrementRequests increments request counters
func (m *Metrics) IncrementRequests(success bool, latencyMs int64) {
	atomic.AddInt64(&m.TotalRequests, 1)
	atomic.AddInt64(&m.TotalLatency, latencyMs)
	atomic.AddInt64(&m.RequestCount, 1)

	if success {
		atomic.AddInt64(&m.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&m.FailedRequests, 1)
	}
}

// IncrementTransition counts an applied state transition; noop when old == new.
func (m *Metrics) IncrementTransition(noop bool) {
	if noop {
		atomic.AddInt64(&m.TransitionsNoop, 1)
		return
	}
	atomic.AddInt64(&m.Transitions, 1)
}

// IncrementTransitionFailure counts a rejected primary mutation
func (m *Metrics) IncrementTransitionFailure() {
	atomic.AddInt64(&m.TransitionFailures, 1)
}

// IncrementUpdateAppended counts ledger entries
func (m *Metrics) IncrementUpdateAppended() {
	atomic.AddInt64(&m.UpdatesAppended, 1)
}

// IncrementNotification counts notification rows
func (m *Metrics) IncrementNotification(success bool) {
	if success {
		atomic.AddInt64(&m.NotificationsSent, 1)
	} else {
		atomic.AddInt64(&m.NotificationsFailed, 1)
	}
}

// IncrementEmail counts outbound email dispatches
func (m *Metrics) IncrementEmail(success bool) {
	if success {
		atomic.AddInt64(&m.EmailsSent, 1)
	} else {
		atomic.AddInt64(&m.EmailsFailed, 1)
	}
}

// IncrementCascade counts best-effort side effects
func (m *Metrics) IncrementCascade(success bool) {
	atomic.AddInt64(&m.CascadesRun, 1)
	if !success {
		atomic.AddInt64(&m.CascadesFailed, 1)
	}
}

// IncrementReleaseNotes counts release-note generation; skipped when already present
func (m *Metrics) IncrementReleaseNotes(skipped bool) {
	if skipped {
		atomic.AddInt64(&m.ReleaseNotesSkip, 1)
		return
	}
	atomic.AddInt64(&m.ReleaseNotes, 1)
}

// IncrementPhaseMilestone counts auto-created phase milestones
func (m *Metrics) IncrementPhaseMilestone() {
	atomic.AddInt64(&m.PhaseMilestones, 1)
}

// IncrementChangeRequest counts change request submissions
func (m *Metrics) IncrementChangeRequest(limited bool) {
	if limited {
		atomic.AddInt64(&m.ChangeRequestsLimited, 1)
		return
	}
	atomic.AddInt64(&m.ChangeRequestsCreated, 1)
}

// IncrementEstimate counts estimator calls
func (m *Metrics) IncrementEstimate(success bool) {
	if success {
		atomic.AddInt64(&m.EstimatesSucceeded, 1)
	} else {
		atomic.AddInt64(&m.EstimatesFailed, 1)
	}
}

// IncrementReportGenerated increments report generation counters
func (m *Metrics) IncrementReportGenerated(success bool) {
	if success {
		atomic.AddInt64(&m.ReportsGenerated, 1)
	} else {
		atomic.AddInt64(&m.ReportErrors, 1)
	}
}

// TrackEndpoint tracks metrics for a specific endpoint
func (m *Metrics) TrackEndpoint(path, method string, statusCode int, latencyMs int64) {
	key := method + " " + path

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EndpointMetrics == nil {
		m.EndpointMetrics = make(map[string]*EndpointMetrics)
	}

	em, exists := m.EndpointMetrics[key]
	if !exists {
		em = &EndpointMetrics{}
		m.EndpointMetrics[key] = em
	}

	em.Requests++
	em.TotalLatency += latencyMs
	if statusCode >= 400 {
		em.Errors++
	}
}

// GetEndpointMetrics returns a copy of endpoint metrics
func (m *Metrics) GetEndpointMetrics() map[string]EndpointMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]EndpointMetrics, len(m.EndpointMetrics))
	for k, v := range m.EndpointMetrics {
		result[k] = *v
	}
	return result
}

// GetAverageLatency returns average request latency in milliseconds
func (m *Metrics) GetAverageLatency() float64 {
	count := atomic.LoadInt64(&m.RequestCount)
	if count == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&m.TotalLatency)) / float64(count)
}

// GetUptime returns the application uptime
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.StartTime)
}

// MetricsSnapshot represents a point-in-time snapshot of all metrics
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`

	Requests struct {
		Total        int64   `json:"total"`
		Successful   int64   `json:"successful"`
		Failed       int64   `json:"failed"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"requests"`

	Transitions struct {
		Applied  int64 `json:"applied"`
		Noop     int64 `json:"noop"`
		Rejected int64 `json:"rejected"`
	} `json:"transitions"`

	Ledger struct {
		Updates             int64 `json:"updates"`
		NotificationsSent   int64 `json:"notifications_sent"`
		NotificationsFailed int64 `json:"notifications_failed"`
		EmailsSent          int64 `json:"emails_sent"`
		EmailsFailed        int64 `json:"emails_failed"`
	} `json:"ledger"`

	Cascades struct {
		Run              int64 `json:"run"`
		Failed           int64 `json:"failed"`
		ReleaseNotes     int64 `json:"release_notes"`
		ReleaseNotesSkip int64 `json:"release_notes_skipped"`
		PhaseMilestones  int64 `json:"phase_milestones"`
	} `json:"cascades"`

	ChangeRequests struct {
		Created          int64 `json:"created"`
		RateLimited      int64 `json:"rate_limited"`
		EstimatesOK      int64 `json:"estimates_ok"`
		EstimatesFailed  int64 `json:"estimates_failed"`
	} `json:"change_requests"`

	Reports struct {
		Generated int64 `json:"generated"`
		Errors    int64 `json:"errors"`
	} `json:"reports"`

	System struct {
		Goroutines  int    `json:"goroutines"`
		HeapAllocMB uint64 `json:"heap_alloc_mb"`
		NumGC       uint32 `json:"num_gc"`
	} `json:"system"`
}

// Snapshot returns a point-in-time snapshot of all metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s := MetricsSnapshot{}
	s.UptimeSeconds = m.GetUptime().Seconds()
	s.StartTime = m.StartTime.Format(time.RFC3339)

	s.Requests.Total = atomic.LoadInt64(&m.TotalRequests)
	s.Requests.Successful = atomic.LoadInt64(&m.SuccessfulRequests)
	s.Requests.Failed = atomic.LoadInt64(&m.FailedRequests)
	s.Requests.AvgLatencyMs = m.GetAverageLatency()

	s.Transitions.Applied = atomic.LoadInt64(&m.Transitions)
	s.Transitions.Noop = atomic.LoadInt64(&m.TransitionsNoop)
	s.Transitions.Rejected = atomic.LoadInt64(&m.TransitionFailures)

	s.Ledger.Updates = atomic.LoadInt64(&m.UpdatesAppended)
	s.Ledger.NotificationsSent = atomic.LoadInt64(&m.NotificationsSent)
	s.Ledger.NotificationsFailed = atomic.LoadInt64(&m.NotificationsFailed)
	s.Ledger.EmailsSent = atomic.LoadInt64(&m.EmailsSent)
	s.Ledger.EmailsFailed = atomic.LoadInt64(&m.EmailsFailed)

	s.Cascades.Run = atomic.LoadInt64(&m.CascadesRun)
	s.Cascades.Failed = atomic.LoadInt64(&m.CascadesFailed)
	s.Cascades.ReleaseNotes = atomic.LoadInt64(&m.ReleaseNotes)
	s.Cascades.ReleaseNotesSkip = atomic.LoadInt64(&m.ReleaseNotesSkip)
	s.Cascades.PhaseMilestones = atomic.LoadInt64(&m.PhaseMilestones)

	s.ChangeRequests.Created = atomic.LoadInt64(&m.ChangeRequestsCreated)
	s.ChangeRequests.RateLimited = atomic.LoadInt64(&m.ChangeRequestsLimited)
	s.ChangeRequests.EstimatesOK = atomic.LoadInt64(&m.EstimatesSucceeded)
	s.ChangeRequests.EstimatesFailed = atomic.LoadInt64(&m.EstimatesFailed)

	s.Reports.Generated = atomic.LoadInt64(&m.ReportsGenerated)
	s.Reports.Errors = atomic.LoadInt64(&m.ReportErrors)

	s.System.Goroutines = runtime.NumGoroutine()
	s.System.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	s.System.NumGC = memStats.NumGC

	return s
}
