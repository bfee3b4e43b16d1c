package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestWeekStart checks the Monday boundary for arbitrary instants.
func TestWeekStart(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)
	saoPaulo := time.FixedZone("BRT", -3*3600)
	base := date(2024, 1, 1)

	properties.Property("week start is a Monday midnight at or before t", prop.ForAll(
		func(minutes int) bool {
			t := base.Add(time.Duration(minutes) * time.Minute)
			ws := WeekStart(t, saoPaulo)
			local := ws.In(saoPaulo)
			return local.Weekday() == time.Monday &&
				local.Hour() == 0 && local.Minute() == 0 &&
				!ws.After(t) && t.Sub(ws) < 7*24*time.Hour
		},
		gen.IntRange(0, 60*24*800),
	))

	properties.Property("next week start is seven days later", prop.ForAll(
		func(minutes int) bool {
			t := base.Add(time.Duration(minutes) * time.Minute)
			return NextWeekStart(t, saoPaulo).Equal(WeekStart(t, saoPaulo).AddDate(0, 0, 7))
		},
		gen.IntRange(0, 60*24*800),
	))

	properties.TestingRun(t)

	// Sunday 23:30 local is still the previous week.
	sunday := time.Date(2025, 1, 12, 23, 30, 0, 0, saoPaulo)
	if got := WeekStart(sunday, saoPaulo); !got.Equal(time.Date(2025, 1, 6, 0, 0, 0, 0, saoPaulo)) {
		t.Errorf("WeekStart(sunday) = %s", got)
	}
	// The same instant in UTC is already Monday.
	if got := WeekStart(sunday, time.UTC); !got.Equal(date(2025, 1, 13)) {
		t.Errorf("WeekStart(sunday, UTC) = %s", got)
	}
}

func TestChangeRequestLimiter(t *testing.T) {
	ctx := context.Background()
	// Wednesday
	f := newFixture(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))

	first, err := f.engine.CreateChangeRequest(ctx, CreateChangeRequestInput{
		ProjectID: f.project.ID, Title: "Novo relatório",
	}, f.client)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if first.Status != model.ChangeRequestNew {
		t.Errorf("status = %s, want NEW", first.Status)
	}

	// Sunday night, same ISO week
	f.clock.Set(time.Date(2025, 1, 19, 23, 59, 0, 0, time.UTC))
	_, err = f.engine.CreateChangeRequest(ctx, CreateChangeRequestInput{
		ProjectID: f.project.ID, Title: "Outro pedido",
	}, f.client)
	var limited *model.RateLimitError
	if !errors.As(err, &limited) {
		t.Fatalf("second request error = %v, want RateLimitError", err)
	}
	if !errors.Is(err, model.ErrRateLimited) {
		t.Errorf("error should match ErrRateLimited")
	}
	if !limited.RetryAt.Equal(date(2025, 1, 20)) {
		t.Errorf("RetryAt = %s, want next Monday", limited.RetryAt)
	}
	calls := f.est.calls

	// next Monday the quota resets
	f.clock.Set(date(2025, 1, 20))
	if _, err := f.engine.CreateChangeRequest(ctx, CreateChangeRequestInput{
		ProjectID: f.project.ID, Title: "Outro pedido",
	}, f.client); err != nil {
		t.Fatalf("request next week: %v", err)
	}
	if calls != 1 {
		t.Errorf("estimator calls before reset = %d, want 1 (rejected request must not be estimated)", calls)
	}
}

func TestChangeRequestLimiter_InternalExempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		if _, err := f.engine.CreateChangeRequest(ctx, CreateChangeRequestInput{
			ProjectID: f.project.ID, Title: "Ajuste interno",
		}, f.internal); err != nil {
			t.Fatalf("internal request %d: %v", i, err)
		}
	}
}

func TestChangeRequestLimiter_PerProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	other := f.store.addProject(model.Project{Name: "Outro", DueDate: date(2025, 6, 1)})
	f.store.mu.Lock()
	f.store.members = append(f.store.members, model.ProjectMember{
		ProjectID: other.ID, UserID: f.client.UserID, Role: model.RoleClient, Active: true, UserType: model.UserTypeClient,
	})
	f.store.mu.Unlock()

	for _, projectID := range []string{f.project.ID, other.ID} {
		if _, err := f.engine.CreateChangeRequest(ctx, CreateChangeRequestInput{
			ProjectID: projectID, Title: "Pedido",
		}, f.client); err != nil {
			t.Fatalf("request on %s: %v", projectID, err)
		}
	}
}
