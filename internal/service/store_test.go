package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/model"
)

var errInjected = errors.New("falha injetada")

// memStore is an in-memory Store used by the engine tests.
type memStore struct {
	mu sync.Mutex
	seq int

	projects       map[string]model.Project
	members        []model.ProjectMember
	users          map[string]model.User
	milestones     map[string]model.Milestone
	sprints        map[string]model.Sprint
	deliverables   map[string]model.Deliverable
	changeRequests map[string]model.ChangeRequest
	updates        []model.ProjectUpdate
	notifications  []model.Notification
	comments       []model.Comment

	failUpdates       bool
	failMilestones    bool
	failNotifications bool
	failDueDate       bool
}

func newMemStore() *memStore {
	return &memStore{
		projects:       make(map[string]model.Project),
		users:          make(map[string]model.User),
		milestones:     make(map[string]model.Milestone),
		sprints:        make(map[string]model.Sprint),
		deliverables:   make(map[string]model.Deliverable),
		changeRequests: make(map[string]model.ChangeRequest),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// seeding helpers

func (s *memStore) addProject(p model.Project) model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.nextID("project")
	}
	if p.Phase == "" {
		p.Phase = model.PhaseDiscovery
	}
	s.projects[p.ID] = p
	return p
}

func (s *memStore) addUser(u model.User, projectID string, active bool) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.nextID("user")
	}
	if u.Email == "" {
		u.Email = u.ID + "@example.com"
	}
	s.users[u.ID] = u
	if projectID != "" {
		role := model.RoleContributor
		if u.Type == model.UserTypeClient {
			role = model.RoleClient
		}
		s.members = append(s.members, model.ProjectMember{
			ProjectID: projectID, UserID: u.ID, Role: role, Active: active, UserType: u.Type, Email: u.Email,
		})
	}
	return u
}

func (s *memStore) updatesOf(projectID string, t model.UpdateType) []model.ProjectUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ProjectUpdate
	for _, u := range s.updates {
		if u.ProjectID == projectID && (t == "" || u.Type == t) {
			out = append(out, u)
		}
	}
	return out
}

func (s *memStore) milestonesTitled(projectID, title string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.milestones {
		if m.ProjectID == projectID && m.Title == title {
			n++
		}
	}
	return n
}

// ProjectStore

func (s *memStore) GetProject(_ context.Context, id string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, model.NotFound("projeto")
	}
	return &p, nil
}

func (s *memStore) ListProjects(_ context.Context, userID string) ([]model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Project
	for _, p := range s.projects {
		if userID == "" {
			out = append(out, p)
			continue
		}
		for _, m := range s.members {
			if m.ProjectID == p.ID && m.UserID == userID && m.Active {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) UpdateProjectPhase(_ context.Context, id string, phase model.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return model.NotFound("projeto")
	}
	p.Phase = phase
	s.projects[id] = p
	return nil
}

func (s *memStore) UpdateProjectDueDate(_ context.Context, id string, due time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDueDate {
		return errInjected
	}
	p, ok := s.projects[id]
	if !ok {
		return model.NotFound("projeto")
	}
	p.DueDate = due
	s.projects[id] = p
	return nil
}

// MemberStore

func (s *memStore) ListMembers(_ context.Context, projectID string) ([]model.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ProjectMember
	for _, m := range s.members {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) GetMember(_ context.Context, projectID, userID string) (*model.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.ProjectID == projectID && m.UserID == userID {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

// UserStore

func (s *memStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, model.NotFound("usuário")
	}
	return &u, nil
}

func (s *memStore) GetUsers(_ context.Context, ids []string) (map[string]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.User)
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// MilestoneStore

func (s *memStore) GetMilestone(_ context.Context, id string) (*model.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.milestones[id]
	if !ok {
		return nil, model.NotFound("milestone")
	}
	return &m, nil
}

func (s *memStore) ListMilestones(_ context.Context, projectID string) ([]model.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Milestone
	for _, m := range s.milestones {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *memStore) FindMilestoneByTitle(_ context.Context, projectID, fragment string) (*model.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.milestones {
		if m.ProjectID == projectID && strings.Contains(strings.ToLower(m.Title), strings.ToLower(fragment)) {
			return &m, nil
		}
	}
	return nil, nil
}

func (s *memStore) NextMilestoneOrder(_ context.Context, projectID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 0
	for _, m := range s.milestones {
		if m.ProjectID == projectID && m.OrderIndex >= next {
			next = m.OrderIndex + 1
		}
	}
	return next, nil
}

func (s *memStore) CreateMilestone(_ context.Context, m *model.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMilestones {
		return errInjected
	}
	if m.ID == "" {
		m.ID = s.nextID("milestone")
	}
	s.milestones[m.ID] = *m
	return nil
}

func (s *memStore) SaveMilestone(_ context.Context, m *model.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.milestones[m.ID]; !ok {
		return model.NotFound("milestone")
	}
	s.milestones[m.ID] = *m
	return nil
}

// SprintStore

func (s *memStore) GetSprint(_ context.Context, id string) (*model.Sprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.sprints[id]
	if !ok {
		return nil, model.NotFound("sprint")
	}
	return &sp, nil
}

func (s *memStore) ListSprints(_ context.Context, projectID string) ([]model.Sprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Sprint
	for _, sp := range s.sprints {
		if sp.ProjectID == projectID {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *memStore) ListSprintsEndedBetween(_ context.Context, from, to time.Time) ([]model.Sprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Sprint
	for _, sp := range s.sprints {
		if !sp.EndDate.Before(from) && !sp.EndDate.After(to) {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (s *memStore) CreateSprint(_ context.Context, sp *model.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp.ID == "" {
		sp.ID = s.nextID("sprint")
	}
	s.sprints[sp.ID] = *sp
	return nil
}

func (s *memStore) SaveSprint(_ context.Context, sp *model.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sprints[sp.ID]; !ok {
		return model.NotFound("sprint")
	}
	s.sprints[sp.ID] = *sp
	return nil
}

// DeliverableStore

func (s *memStore) GetDeliverable(_ context.Context, id string) (*model.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliverables[id]
	if !ok {
		return nil, model.NotFound("deliverable")
	}
	return &d, nil
}

func (s *memStore) ListDeliverables(_ context.Context, f model.DeliverableFilter) ([]model.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Deliverable
	for _, d := range s.deliverables {
		switch {
		case f.ProjectID != "" && d.ProjectID != f.ProjectID,
			f.SprintID != "" && strValue(d.SprintID) != f.SprintID,
			f.MilestoneID != "" && strValue(d.MilestoneID) != f.MilestoneID,
			f.Status != "" && d.Status != f.Status:
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *memStore) CreateDeliverable(_ context.Context, d *model.Deliverable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = s.nextID("deliverable")
	}
	s.deliverables[d.ID] = *d
	return nil
}

func (s *memStore) SaveDeliverable(_ context.Context, d *model.Deliverable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliverables[d.ID]; !ok {
		return model.NotFound("deliverable")
	}
	s.deliverables[d.ID] = *d
	return nil
}

// ChangeRequestStore

func (s *memStore) GetChangeRequest(_ context.Context, id string) (*model.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cr, ok := s.changeRequests[id]
	if !ok {
		return nil, model.NotFound("change request")
	}
	return &cr, nil
}

func (s *memStore) ListChangeRequests(_ context.Context, projectID string) ([]model.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChangeRequest
	for _, cr := range s.changeRequests {
		if cr.ProjectID == projectID {
			out = append(out, cr)
		}
	}
	return out, nil
}

func (s *memStore) CountChangeRequestsSince(_ context.Context, projectID, authorID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, cr := range s.changeRequests {
		if cr.ProjectID == projectID && cr.AuthorID == authorID && !cr.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateChangeRequest(_ context.Context, cr *model.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cr.ID == "" {
		cr.ID = s.nextID("cr")
	}
	s.changeRequests[cr.ID] = *cr
	return nil
}

func (s *memStore) SaveChangeRequest(_ context.Context, cr *model.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.changeRequests[cr.ID]; !ok {
		return model.NotFound("change request")
	}
	s.changeRequests[cr.ID] = *cr
	return nil
}

// UpdateStore

func (s *memStore) InsertUpdate(_ context.Context, u *model.ProjectUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdates {
		return errInjected
	}
	if u.ID == "" {
		u.ID = s.nextID("update")
	}
	s.updates = append(s.updates, *u)
	return nil
}

func (s *memStore) FindUpdate(_ context.Context, q model.UpdateQuery) (*model.ProjectUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.updates {
		switch {
		case u.ProjectID != q.ProjectID,
			q.Type != "" && u.Type != q.Type,
			q.TitleContains != "" && !strings.Contains(u.Title, q.TitleContains),
			q.BodyContains != "" && !strings.Contains(u.Body, q.BodyContains),
			q.SourceKey != "" && strValue(u.SourceKey) != q.SourceKey:
			continue
		}
		u := u
		return &u, nil
	}
	return nil, nil
}

func (s *memStore) ListUpdates(_ context.Context, projectID string, clientVisibleOnly bool) ([]model.ProjectUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ProjectUpdate
	for i := len(s.updates) - 1; i >= 0; i-- {
		u := s.updates[i]
		if u.ProjectID == projectID && (!clientVisibleOnly || u.ClientVisible) {
			out = append(out, u)
		}
	}
	return out, nil
}

// NotificationStore

func (s *memStore) InsertNotification(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNotifications {
		return errInjected
	}
	if n.ID == "" {
		n.ID = s.nextID("notification")
	}
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *memStore) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) MarkNotificationRead(_ context.Context, id, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			s.notifications[i].Read = true
			if n.ReadAt == nil {
				s.notifications[i].ReadAt = &at
			}
			return nil
		}
	}
	return model.NotFound("notificação")
}

// CommentStore

func (s *memStore) GetComment(_ context.Context, id string) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.comments {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, model.NotFound("comentário")
}

func (s *memStore) ListComments(_ context.Context, deliverableID string) ([]model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Comment
	for _, c := range s.comments {
		if c.DeliverableID == deliverableID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) CreateComment(_ context.Context, c *model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = s.nextID("comment")
	}
	s.comments = append(s.comments, *c)
	return nil
}

// collaborators

type fakeEstimator struct {
	hours int
	err   error
	calls int
}

func (f *fakeEstimator) Estimate(context.Context, model.EstimateRequest) (int, error) {
	f.calls++
	return f.hours, f.err
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, to string, _ model.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errInjected
	}
	f.sent = append(f.sent, to)
	return nil
}

// fixedClock is a settable clock.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store    *memStore
	clock    *fixedClock
	mailer   *fakeMailer
	est      *fakeEstimator
	engine   *Engine
	project  model.Project
	internal model.Actor
	client   model.Actor
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFixture(now time.Time) *fixture {
	store := newMemStore()
	clock := &fixedClock{now: now}
	mailer := &fakeMailer{}
	est := &fakeEstimator{hours: 40}

	engine, err := NewEngine(Deps{
		Store:        store,
		Estimator:    est,
		Mailer:       mailer,
		Clock:        clock.Now,
		WeekLocation: time.UTC,
		BaseURL:      "https://app.example.com",
	})
	if err != nil {
		panic(err)
	}

	project := store.addProject(model.Project{Name: "Portal", DueDate: date(2025, 2, 22)})
	pm := store.addUser(model.User{FirstName: "Ana", LastName: "Lima", Type: model.UserTypeInternal}, project.ID, true)
	cl := store.addUser(model.User{FirstName: "Caio", Type: model.UserTypeClient}, project.ID, true)

	return &fixture{
		store:    store,
		clock:    clock,
		mailer:   mailer,
		est:      est,
		engine:   engine,
		project:  project,
		internal: model.Actor{UserID: pm.ID, Type: model.UserTypeInternal},
		client:   model.Actor{UserID: cl.ID, Type: model.UserTypeClient},
	}
}
