package service

import (
	"math"
	"testing"

	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestTimelineImpact_Examples(t *testing.T) {
	due := date(2025, 2, 22)

	tests := []struct {
		name     string
		hours    float64
		capacity *int
		delay    int
	}{
		{"zero hours", 0, nil, 0},
		{"one full week at default capacity", 40, nil, 7},
		{"one hour rounds up to a day", 1, nil, 1},
		{"just over a week", 41, nil, 8},
		{"custom capacity", 20, intPtr(20), 7},
		{"zero capacity falls back to default", 40, intPtr(0), 7},
		{"negative capacity falls back to default", 40, intPtr(-5), 7},
		{"fractional hours", 5.5, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TimelineImpact(tt.hours, tt.capacity, due)
			if got.DelayDays != tt.delay {
				t.Errorf("DelayDays = %d, want %d", got.DelayDays, tt.delay)
			}
			if want := due.AddDate(0, 0, tt.delay); !got.NewDueDate.Equal(want) {
				t.Errorf("NewDueDate = %s, want %s", got.NewDueDate, want)
			}
		})
	}
}

// TestTimelineImpactProperties checks the delay against its closed form.
func TestTimelineImpactProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	due := date(2025, 2, 22)

	properties.Property("delay covers the work at the daily rate", prop.ForAll(
		func(hours, capacity int) bool {
			impact := TimelineImpact(float64(hours), &capacity, due)
			// integer form of ceil(hours*7/capacity)
			want := (hours*7 + capacity - 1) / capacity
			return impact.DelayDays == want && impact.NewDueDate.Equal(due.AddDate(0, 0, want))
		},
		gen.IntRange(0, 500),
		gen.IntRange(1, 80),
	))

	properties.Property("more hours never shorten the delay", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			return TimelineImpact(a, nil, due).DelayDays <= TimelineImpact(b, nil, due).DelayDays
		},
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 500),
	))

	properties.Property("delay stays within bounds for any size", prop.ForAll(
		func(exp float64) bool {
			impact := TimelineImpact(math.Pow(10, exp), nil, due)
			return impact.DelayDays >= 0 && impact.DelayDays <= MaxDelayDays &&
				!impact.NewDueDate.Before(due)
		},
		gen.Float64Range(0, 300),
	))

	properties.TestingRun(t)
}

func TestTimelineImpact_HugeHoursAreClamped(t *testing.T) {
	due := date(2025, 3, 1)
	for _, hours := range []float64{1e18, 1e20, math.MaxFloat64} {
		got := TimelineImpact(hours, nil, due)
		if got.DelayDays != MaxDelayDays {
			t.Errorf("TimelineImpact(%g).DelayDays = %d, want %d", hours, got.DelayDays, MaxDelayDays)
		}
		if want := due.AddDate(0, 0, MaxDelayDays); !got.NewDueDate.Equal(want) {
			t.Errorf("TimelineImpact(%g).NewDueDate = %s, want %s", hours, got.NewDueDate, want)
		}
	}
	if got := TimelineImpact(math.NaN(), nil, due); got.DelayDays != 0 {
		t.Errorf("NaN hours delay = %d, want 0", got.DelayDays)
	}
}

func TestApplyImpact(t *testing.T) {
	project := model.Project{DueDate: date(2025, 2, 22)}

	cr := &model.ChangeRequest{AIEstimatedHours: floatPtr(40)}
	applyImpact(cr, project)
	if cr.EstimatedTimelineDelayDays == nil || *cr.EstimatedTimelineDelayDays != 7 {
		t.Fatalf("delay = %v, want 7", cr.EstimatedTimelineDelayDays)
	}
	if !cr.NewProjectDueDate.Equal(date(2025, 3, 1)) {
		t.Errorf("due = %s, want 2025-03-01", cr.NewProjectDueDate)
	}

	// the human estimate wins once present
	cr.EstimateHours = floatPtr(8)
	applyImpact(cr, project)
	if *cr.EstimatedTimelineDelayDays != 2 {
		t.Errorf("delay after human estimate = %d, want 2", *cr.EstimatedTimelineDelayDays)
	}

	cr.EstimateHours, cr.AIEstimatedHours = nil, nil
	applyImpact(cr, project)
	if cr.EstimatedTimelineDelayDays != nil || cr.NewProjectDueDate != nil {
		t.Errorf("derived fields should clear without hours")
	}

	if h := TimelineImpact(math.Inf(1), nil, project.DueDate); h.DelayDays != 0 {
		t.Errorf("infinite hours delay = %d", h.DelayDays)
	}
}
