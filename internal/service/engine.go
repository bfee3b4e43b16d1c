package service

import (
	"context"
	"errors"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/cleberrangel/clientflow-api/internal/model"
)

// Deps are the collaborators the engine is built from. The process entry
// point owns their lifecycle.
type Deps struct {
	Store     Store
	Estimator Estimator   // optional; nil leaves AI estimates empty
	Mailer    EmailSender // optional; nil disables email
	Locker    Locker      // optional; nil runs without cross-process locks
	Clock     func() time.Time

	// WeekLocation is where the weekly change-request quota resets (Monday 00:00).
	WeekLocation      *time.Location
	MailRatePerSecond float64
	BaseURL           string
}

// Engine owns the state machines and their cascades.
type Engine struct {
	store     Store
	estimator Estimator
	locker    Locker
	ledger    *Ledger
	limiter   *ChangeRequestLimiter
	now       func() time.Time
}

var errNoWeekLocation = errors.New("fuso horário da cota semanal não configurado")

// NewEngine wires the engine. Store and WeekLocation are required.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("store é obrigatório")
	}
	if deps.WeekLocation == nil {
		return nil, errNoWeekLocation
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	return &Engine{
		store:     deps.Store,
		estimator: deps.Estimator,
		locker:    deps.Locker,
		ledger:    NewLedger(deps.Store, deps.Mailer, deps.MailRatePerSecond, now, deps.BaseURL),
		limiter:   NewChangeRequestLimiter(deps.Store, deps.WeekLocation, now),
		now:       now,
	}, nil
}

// Ledger exposes the engine's feed writer.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

func requireInternal(actor model.Actor, operation string) error {
	if !actor.IsInternal() {
		metrics.Get().IncrementTransitionFailure()
		return model.Forbidden("%s é restrito à equipe interna", operation)
	}
	return nil
}

// projectFor loads a project the actor may see. A client that is not an
// active member gets NotFound, same as a missing project.
func (e *Engine) projectFor(ctx context.Context, projectID string, actor model.Actor) (*model.Project, error) {
	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := e.checkMembership(ctx, projectID, actor); err != nil {
		return nil, err
	}
	return project, nil
}

func (e *Engine) checkMembership(ctx context.Context, projectID string, actor model.Actor) error {
	if actor.IsInternal() {
		return nil
	}
	member, err := e.store.GetMember(ctx, projectID, actor.UserID)
	if err != nil {
		return err
	}
	if member == nil || !member.Active {
		return model.NotFound("projeto")
	}
	return nil
}

// withLock runs fn holding key when a locker is configured. It reports
// false without running fn when another holder owns the key.
func (e *Engine) withLock(ctx context.Context, key string, ttl time.Duration, fn func() error) (bool, error) {
	if e.locker == nil {
		return true, fn()
	}
	release, ok := e.locker.Acquire(ctx, key, ttl)
	defer release()
	if !ok {
		logger.Get(ctx).Info().Str("lock", key).Msg("Lock ocupado por outro processo, operação ignorada")
		return false, nil
	}
	return true, fn()
}

// hideAs reports a membership NotFound as the entity itself being missing.
func hideAs(err error, entity string) error {
	if errors.Is(err, model.ErrNotFound) {
		return model.NotFound(entity)
	}
	return err
}

func boolPtr(b bool) *bool {
	return &b
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
