package service

import (
	"math"
	"strconv"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/model"
)

// Progress is a completion percentage that may be not applicable.
// An empty collection has no progress, which is not the same as 0%.
type Progress struct {
	Percent    int
	Applicable bool
}

// NoProgress is the value for an empty collection.
var NoProgress = Progress{}

// Percentage builds an applicable Progress.
func Percentage(p int) Progress {
	return Progress{Percent: p, Applicable: true}
}

func (p Progress) String() string {
	if !p.Applicable {
		return "n/a"
	}
	return strconv.Itoa(p.Percent) + "%"
}

// MarshalJSON renders the percentage as a number, or null when not applicable.
func (p Progress) MarshalJSON() ([]byte, error) {
	if !p.Applicable {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(p.Percent)), nil
}

// UnmarshalJSON accepts a number or null.
func (p *Progress) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = NoProgress
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*p = Percentage(n)
	return nil
}

// CompletionProgress returns round(100 * done / total), half away from zero.
func CompletionProgress[T any](items []T, done func(T) bool) Progress {
	if len(items) == 0 {
		return NoProgress
	}
	completed := 0
	for _, item := range items {
		if done(item) {
			completed++
		}
	}
	return Percentage(int(math.Round(100 * float64(completed) / float64(len(items)))))
}

// DeliverableProgress counts DONE deliverables.
func DeliverableProgress(items []model.Deliverable) Progress {
	return CompletionProgress(items, func(d model.Deliverable) bool {
		return d.Status == model.DeliverableDone
	})
}

// TimeProgress is the elapsed share of [start, end] at now, clamped to 0..100.
// A window that has ended reads 100, including a zero-length one.
func TimeProgress(start, end, now time.Time) int {
	if !now.Before(end) {
		return 100
	}
	if !now.After(start) {
		return 0
	}
	elapsed := float64(now.Sub(start))
	total := float64(end.Sub(start))
	pct := int(math.Round(100 * elapsed / total))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
