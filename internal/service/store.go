package service

import (
	"context"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/model"
)

// Get* methods return an error wrapping model.ErrNotFound when the row is
// missing. Find* methods return nil, nil instead.

type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	UpdateProjectPhase(ctx context.Context, id string, phase model.Phase) error
	UpdateProjectDueDate(ctx context.Context, id string, due time.Time) error
}

type MemberStore interface {
	ListMembers(ctx context.Context, projectID string) ([]model.ProjectMember, error)
	GetMember(ctx context.Context, projectID, userID string) (*model.ProjectMember, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]model.User, error)
}

type MilestoneStore interface {
	GetMilestone(ctx context.Context, id string) (*model.Milestone, error)
	ListMilestones(ctx context.Context, projectID string) ([]model.Milestone, error)
	FindMilestoneByTitle(ctx context.Context, projectID, fragment string) (*model.Milestone, error)
	NextMilestoneOrder(ctx context.Context, projectID string) (int, error)
	CreateMilestone(ctx context.Context, m *model.Milestone) error
	SaveMilestone(ctx context.Context, m *model.Milestone) error
}

type SprintStore interface {
	GetSprint(ctx context.Context, id string) (*model.Sprint, error)
	ListSprints(ctx context.Context, projectID string) ([]model.Sprint, error)
	ListSprintsEndedBetween(ctx context.Context, from, to time.Time) ([]model.Sprint, error)
	CreateSprint(ctx context.Context, s *model.Sprint) error
	SaveSprint(ctx context.Context, s *model.Sprint) error
}

type DeliverableStore interface {
	GetDeliverable(ctx context.Context, id string) (*model.Deliverable, error)
	ListDeliverables(ctx context.Context, filter model.DeliverableFilter) ([]model.Deliverable, error)
	CreateDeliverable(ctx context.Context, d *model.Deliverable) error
	SaveDeliverable(ctx context.Context, d *model.Deliverable) error
}

type ChangeRequestStore interface {
	GetChangeRequest(ctx context.Context, id string) (*model.ChangeRequest, error)
	ListChangeRequests(ctx context.Context, projectID string) ([]model.ChangeRequest, error)
	CountChangeRequestsSince(ctx context.Context, projectID, authorID string, since time.Time) (int, error)
	CreateChangeRequest(ctx context.Context, cr *model.ChangeRequest) error
	SaveChangeRequest(ctx context.Context, cr *model.ChangeRequest) error
}

// UpdateStore is append-only: there is deliberately no save or delete.
type UpdateStore interface {
	InsertUpdate(ctx context.Context, u *model.ProjectUpdate) error
	FindUpdate(ctx context.Context, q model.UpdateQuery) (*model.ProjectUpdate, error)
	ListUpdates(ctx context.Context, projectID string, clientVisibleOnly bool) ([]model.ProjectUpdate, error)
}

type NotificationStore interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error
}

type CommentStore interface {
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	ListComments(ctx context.Context, deliverableID string) ([]model.Comment, error)
	CreateComment(ctx context.Context, c *model.Comment) error
}

// Store is everything the engine persists through.
type Store interface {
	ProjectStore
	MemberStore
	UserStore
	MilestoneStore
	SprintStore
	DeliverableStore
	ChangeRequestStore
	UpdateStore
	NotificationStore
	CommentStore
}

// Estimator returns an hour estimate in [model.MinEstimateHours, model.MaxEstimateHours].
type Estimator interface {
	Estimate(ctx context.Context, req model.EstimateRequest) (int, error)
}

// EmailSender hands one templated email to the delivery transport.
type EmailSender interface {
	Send(ctx context.Context, to string, msg model.EmailMessage) error
}

// Locker serializes work across processes. ok is false when another holder
// owns the key; release is always safe to call.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool)
}
