package service

import (
	"math"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/model"
)

const (
	// DefaultWeeklyCapacityHours applies when a project has no usable capacity.
	DefaultWeeklyCapacityHours = 40
	// MaxDelayDays bounds the shift applied to a due date.
	MaxDelayDays = 36500
)

// Impact is the schedule effect of an hour estimate.
type Impact struct {
	DelayDays  int       `json:"delay_days"`
	NewDueDate time.Time `json:"new_due_date"`
}

// TimelineImpact converts hours into calendar days at the weekly capacity
// (ceil(hours / (capacity / 7))) and shifts due by that many days.
func TimelineImpact(hours float64, weeklyCapacity *int, due time.Time) Impact {
	capacity := DefaultWeeklyCapacityHours
	if weeklyCapacity != nil && *weeklyCapacity > 0 {
		capacity = *weeklyCapacity
	}

	delay := 0
	if hours > 0 && !math.IsInf(hours, 0) {
		// hours*7/capacity keeps exact multiples exact (40h at 40h/week is 7, not 7.000...1)
		days := math.Ceil(hours * 7 / float64(capacity))
		// clamp before converting so huge inputs cannot wrap the int
		delay = int(math.Min(days, MaxDelayDays))
	}

	return Impact{
		DelayDays:  delay,
		NewDueDate: due.AddDate(0, 0, delay),
	}
}

// AuthoritativeHours picks the human estimate once present, else the AI one.
func AuthoritativeHours(cr model.ChangeRequest) *float64 {
	if cr.EstimateHours != nil {
		return cr.EstimateHours
	}
	return cr.AIEstimatedHours
}

// applyImpact recomputes and overwrites the derived schedule fields.
func applyImpact(cr *model.ChangeRequest, project model.Project) {
	hours := AuthoritativeHours(*cr)
	if hours == nil {
		cr.EstimatedTimelineDelayDays = nil
		cr.NewProjectDueDate = nil
		return
	}
	impact := TimelineImpact(*hours, project.WeeklyCapacityHours, project.DueDate)
	delay := impact.DelayDays
	due := impact.NewDueDate
	cr.EstimatedTimelineDelayDays = &delay
	cr.NewProjectDueDate = &due
}
