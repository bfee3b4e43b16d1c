package service

import (
	"context"
	"strings"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"golang.org/x/time/rate"
)

// UpdateInput describes a feed entry to append.
type UpdateInput struct {
	ProjectID string
	Type      model.UpdateType
	Title     string
	Body      string
	AuthorID  string
	// ClientVisible defaults to true when nil.
	ClientVisible *bool
	SourceKey     string
}

// NotifyInput describes one fan-out of notifications.
type NotifyInput struct {
	ProjectID      string
	ActorID        string
	AssigneeID     string
	ParentAuthorID string
	UpdateID       string
	InternalOnly   bool
	Template       string
	Title          string
	Body           string
	Link           string
}

type ledgerStore interface {
	UpdateStore
	NotificationStore
	MemberStore
	UserStore
}

// Ledger appends project updates and fans out notifications.
type Ledger struct {
	store   ledgerStore
	mailer  EmailSender
	limiter *rate.Limiter
	now     func() time.Time
	baseURL string
}

// NewLedger builds a ledger. mailPerSecond <= 0 disables email throttling;
// a nil mailer disables email entirely. Emails over the rate are dropped,
// never waited for.
func NewLedger(store ledgerStore, mailer EmailSender, mailPerSecond float64, now func() time.Time, baseURL string) *Ledger {
	limit := rate.Inf
	burst := 1
	if mailPerSecond > 0 {
		limit = rate.Limit(mailPerSecond)
		if int(mailPerSecond) > burst {
			burst = int(mailPerSecond)
		}
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		store:   store,
		mailer:  mailer,
		limiter: rate.NewLimiter(limit, burst),
		now:     now,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ProjectLink is the UI path for a project, optionally with a sub path.
func (l *Ledger) ProjectLink(projectID string, parts ...string) string {
	link := l.baseURL + "/projects/" + projectID
	for _, p := range parts {
		link += "/" + p
	}
	return link
}

// Append writes an immutable feed entry.
func (l *Ledger) Append(ctx context.Context, in UpdateInput) (*model.ProjectUpdate, error) {
	if strings.TrimSpace(in.ProjectID) == "" {
		return nil, model.Invalid("projectId é obrigatório")
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, model.Invalid("body é obrigatório")
	}
	if in.Type == "" {
		in.Type = model.UpdateGeneral
	}
	if !in.Type.Valid() {
		return nil, model.Invalid("tipo de update inválido: %s", in.Type)
	}

	update := &model.ProjectUpdate{
		ProjectID:     in.ProjectID,
		Type:          in.Type,
		Title:         in.Title,
		Body:          in.Body,
		ClientVisible: in.ClientVisible == nil || *in.ClientVisible,
		CreatedAt:     l.now(),
	}
	if in.AuthorID != "" {
		author := in.AuthorID
		update.AuthorID = &author
	}
	if in.SourceKey != "" {
		key := in.SourceKey
		update.SourceKey = &key
	}

	if err := l.store.InsertUpdate(ctx, update); err != nil {
		return nil, err
	}

	metrics.Get().IncrementUpdateAppended()
	logger.Get(ctx).Info().
		Str("project_id", update.ProjectID).
		Str("update_id", update.ID).
		Str("type", string(update.Type)).
		Bool("client_visible", update.ClientVisible).
		Msg("Update adicionado ao feed")

	return update, nil
}

// Publish appends an update and notifies every member allowed to see it.
// Notification failures never fail the append.
func (l *Ledger) Publish(ctx context.Context, in UpdateInput, assigneeID string) (*model.ProjectUpdate, error) {
	update, err := l.Append(ctx, in)
	if err != nil {
		return nil, err
	}

	l.Notify(ctx, NotifyInput{
		ProjectID:    update.ProjectID,
		ActorID:      in.AuthorID,
		AssigneeID:   assigneeID,
		UpdateID:     update.ID,
		InternalOnly: !update.ClientVisible,
		Template:     "project_update",
		Title:        updateTitle(update),
		Body:         update.Body,
		Link:         l.ProjectLink(update.ProjectID, "updates"),
	})

	return update, nil
}

func updateTitle(u *model.ProjectUpdate) string {
	if u.Title != "" {
		return u.Title
	}
	return "Project update"
}

// Audience is assignee + active members + parent author, deduplicated,
// without the actor and without blank ids. Order is stable.
func (l *Ledger) Audience(ctx context.Context, in NotifyInput) ([]string, error) {
	members, err := l.store.ListMembers(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var audience []string
	add := func(id string) {
		if id == "" || id == in.ActorID || seen[id] {
			return
		}
		seen[id] = true
		audience = append(audience, id)
	}

	add(in.AssigneeID)
	for _, m := range members {
		if m.Active {
			add(m.UserID)
		}
	}
	add(in.ParentAuthorID)

	return audience, nil
}

// Notify creates one notification and sends one email per audience member.
// Each member is handled independently; it returns how many were notified.
func (l *Ledger) Notify(ctx context.Context, in NotifyInput) int {
	log := logger.Get(ctx)
	m := metrics.Get()

	audience, err := l.Audience(ctx, in)
	if err != nil {
		log.Warn().Err(err).Str("project_id", in.ProjectID).Msg("Erro ao calcular audiência, notificações ignoradas")
		return 0
	}
	if len(audience) == 0 {
		return 0
	}

	users, err := l.store.GetUsers(ctx, audience)
	if err != nil {
		log.Warn().Err(err).Str("project_id", in.ProjectID).Msg("Erro ao carregar usuários da audiência")
		return 0
	}

	notified := 0
	for _, userID := range audience {
		user, ok := users[userID]
		if !ok {
			log.Warn().Str("user_id", userID).Msg("Usuário da audiência não encontrado")
			continue
		}
		if in.InternalOnly && user.Type != model.UserTypeInternal {
			continue
		}

		n := &model.Notification{
			UserID:    userID,
			ProjectID: in.ProjectID,
			Title:     in.Title,
			Body:      in.Body,
			Link:      in.Link,
			CreatedAt: l.now(),
		}
		if in.UpdateID != "" {
			updateID := in.UpdateID
			n.UpdateID = &updateID
		}

		if err := l.store.InsertNotification(ctx, n); err != nil {
			m.IncrementNotification(false)
			log.Warn().Err(err).Str("user_id", userID).Msg("Erro ao gravar notificação")
		} else {
			m.IncrementNotification(true)
			notified++
		}

		l.email(ctx, user, in)
	}

	log.Info().
		Str("project_id", in.ProjectID).
		Int("audience", len(audience)).
		Int("notified", notified).
		Msg("Notificações distribuídas")

	return notified
}

func (l *Ledger) email(ctx context.Context, user model.User, in NotifyInput) {
	if l.mailer == nil || user.Email == "" {
		return
	}
	log := logger.Get(ctx)

	// sem token o e-mail é descartado; a notificação já está gravada
	if !l.limiter.Allow() {
		metrics.Get().IncrementEmail(false)
		err := &model.DependencyError{Dependency: "email", Err: model.ErrRateLimited}
		log.Warn().Err(err).Str("user_id", user.ID).Msg("E-mail não enviado: limite de envio atingido")
		return
	}

	template := in.Template
	if template == "" {
		template = "notification"
	}
	msg := model.EmailMessage{
		Template:  template,
		Subject:   in.Title,
		ProjectID: in.ProjectID,
		Title:     in.Title,
		Body:      in.Body,
		Link:      in.Link,
	}

	if err := l.mailer.Send(ctx, user.Email, msg); err != nil {
		metrics.Get().IncrementEmail(false)
		err = &model.DependencyError{Dependency: "email", Err: err}
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Erro ao enviar e-mail")
		return
	}
	metrics.Get().IncrementEmail(true)
}
