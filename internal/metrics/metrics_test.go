package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestCounters_Concurrent(t *testing.T) {
	m := &Metrics{EndpointMetrics: make(map[string]*EndpointMetrics)}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.IncrementRequests(i%4 != 0, 10)
			m.IncrementChangeRequest(i%10 == 0)
			m.TrackEndpoint("/api/projects/:id", http.MethodGet, 200, 10)
		}(i)
	}
	wg.Wait()

	s := m.Snapshot()
	if s.Requests.Total != 100 || s.Requests.Failed != 25 || s.Requests.Successful != 75 {
		t.Errorf("requests = %+v", s.Requests)
	}
	if s.ChangeRequests.Created != 90 || s.ChangeRequests.RateLimited != 10 {
		t.Errorf("change requests = %+v", s.ChangeRequests)
	}
	if got := m.GetEndpointMetrics(); len(got) != 1 {
		t.Errorf("endpoints = %d, want 1", len(got))
	}
}

func TestDetermineOverallStatus(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]HealthStatus
		want       string
	}{
		{"all healthy", map[string]HealthStatus{"db": {Status: "healthy"}}, "healthy"},
		{"one degraded", map[string]HealthStatus{"db": {Status: "healthy"}, "redis": {Status: "degraded"}}, "degraded"},
		{"one unhealthy", map[string]HealthStatus{"db": {Status: "unhealthy"}, "redis": {Status: "degraded"}}, "unhealthy"},
	}
	for _, tt := range tests {
		if got := DetermineOverallStatus(tt.components); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestHandler_PrometheusFormat(t *testing.T) {
	Get().IncrementPhaseMilestone()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	for _, name := range []string{"clientflow_phase_milestones_total", "clientflow_uptime_seconds", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("/metrics missing %s", name)
		}
	}
}
