package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/middleware"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/cleberrangel/clientflow-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "segredo-de-teste"
	projectID    = "6f1c1f8e-1b2a-4c3d-9e8f-0a1b2c3d4e5f"
	clientID     = "0b7e2f14-8a5c-4d9e-b1f3-2c4d6e8fa0b1"
	outsiderID   = "9d8c7b6a-5f4e-4d3c-8b2a-1f0e9d8c7b6a"
	internalID   = "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
	serviceToken = "cron-token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubStore implementa só o que as rotas testadas usam; o resto entra em pânico
type stubStore struct {
	service.Store
	changeRequests int
	ended          []model.Sprint
}

func (s *stubStore) GetProject(_ context.Context, id string) (*model.Project, error) {
	if id != projectID {
		return nil, model.NotFound("projeto")
	}
	return &model.Project{ID: projectID, Name: "Portal", Phase: model.PhaseBuild}, nil
}

func (s *stubStore) GetMember(_ context.Context, pid, userID string) (*model.ProjectMember, error) {
	if pid == projectID && userID == clientID {
		return &model.ProjectMember{ProjectID: pid, UserID: userID, Active: true, UserType: model.UserTypeClient}, nil
	}
	return nil, nil
}

func (s *stubStore) ListDeliverables(_ context.Context, _ model.DeliverableFilter) ([]model.Deliverable, error) {
	return []model.Deliverable{
		{ID: "d1", ProjectID: projectID, Status: model.DeliverableDone},
		{ID: "d2", ProjectID: projectID, Status: model.DeliverableInProgress},
	}, nil
}

func (s *stubStore) CountChangeRequestsSince(context.Context, string, string, time.Time) (int, error) {
	return s.changeRequests, nil
}

func (s *stubStore) ListSprintsEndedBetween(context.Context, time.Time, time.Time) ([]model.Sprint, error) {
	return s.ended, nil
}

func newTestRouter(t *testing.T, store *stubStore) *gin.Engine {
	t.Helper()
	engine, err := service.NewEngine(service.Deps{Store: store, WeekLocation: time.UTC})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(serviceToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	return NewRouter(RouterConfig{
		Engine: engine,
		Health: NewHealthHandler(nil, "test", nil),
		Auth:   middleware.AuthConfig{JWTSecret: testSecret, ServiceTokenHash: string(hash)},
	})
}

func bearer(t *testing.T, userID string, typ model.UserType) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, model.Actor{UserID: userID, Type: typ}, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return "Bearer " + token
}

func perform(router http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetProject(t *testing.T) {
	router := newTestRouter(t, &stubStore{})

	tests := []struct {
		name string
		path string
		auth string
		want int
	}{
		{"no token", "/api/projects/" + projectID, "", http.StatusUnauthorized},
		{"client member", "/api/projects/" + projectID, bearer(t, clientID, model.UserTypeClient), http.StatusOK},
		{"internal", "/api/projects/" + projectID, bearer(t, internalID, model.UserTypeInternal), http.StatusOK},
		{"client outsider", "/api/projects/" + projectID, bearer(t, outsiderID, model.UserTypeClient), http.StatusNotFound},
		{"unknown project", "/api/projects/" + outsiderID, bearer(t, internalID, model.UserTypeInternal), http.StatusNotFound},
		{"malformed id", "/api/projects/42", bearer(t, internalID, model.UserTypeInternal), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodGet, tt.path, tt.auth, "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestGetProject_Progress(t *testing.T) {
	router := newTestRouter(t, &stubStore{})
	w := perform(router, http.MethodGet, "/api/projects/"+projectID, bearer(t, clientID, model.UserTypeClient), "")

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Name     string `json:"name"`
			Progress *int   `json:"progress"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || resp.Data.Name != "Portal" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Data.Progress == nil || *resp.Data.Progress != 50 {
		t.Errorf("progress = %v, want 50", resp.Data.Progress)
	}
}

func TestChangePhase_Errors(t *testing.T) {
	router := newTestRouter(t, &stubStore{})
	path := "/api/projects/" + projectID + "/phase"

	tests := []struct {
		name string
		auth string
		body string
		want int
	}{
		{"client is forbidden", bearer(t, clientID, model.UserTypeClient), `{"phase":"QA"}`, http.StatusForbidden},
		{"missing phase", bearer(t, internalID, model.UserTypeInternal), `{}`, http.StatusBadRequest},
		{"unknown phase", bearer(t, internalID, model.UserTypeInternal), `{"phase":"ARCHIVED"}`, http.StatusBadRequest},
		{"malformed JSON", bearer(t, internalID, model.UserTypeInternal), `{"phase":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodPatch, path, tt.auth, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCreateChangeRequest_RateLimited(t *testing.T) {
	router := newTestRouter(t, &stubStore{changeRequests: 1})
	w := perform(router, http.MethodPost, "/api/projects/"+projectID+"/change-requests",
		bearer(t, clientID, model.UserTypeClient), `{"title":"Exportar PDF","type":"FEATURE"}`)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 (body %s)", w.Code, w.Body.String())
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 || retryAfter > 7*24*3600 {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.RetryAt == nil || resp.RetryAt.In(time.UTC).Weekday() != time.Monday {
		t.Errorf("retry_at = %v, want a Monday", resp.RetryAt)
	}
}

func TestCreateChangeRequest_Validation(t *testing.T) {
	router := newTestRouter(t, &stubStore{})
	w := perform(router, http.MethodPost, "/api/projects/"+projectID+"/change-requests",
		bearer(t, clientID, model.UserTypeClient), `{"title":"   "}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCheckRecent(t *testing.T) {
	router := newTestRouter(t, &stubStore{})

	tests := []struct {
		name  string
		token string
		query string
		want  int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"wrong token", "x", "", http.StatusUnauthorized},
		{"bad window", serviceToken, "?window=semana", http.StatusBadRequest},
		{"default window", serviceToken, "", http.StatusOK},
		{"custom window", serviceToken, "?window=72h", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal/sprints/check-recent"+tt.query, nil)
			if tt.token != "" {
				req.Header.Set(middleware.HeaderServiceToken, tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, &stubStore{})

	if w := perform(router, http.MethodGet, "/health/live", "", ""); w.Code != http.StatusOK {
		t.Errorf("/health/live status = %d", w.Code)
	}
	// sem banco configurado o readiness falha
	if w := perform(router, http.MethodGet, "/health/ready", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("/health/ready status = %d, want 503", w.Code)
	}

	if w := perform(router, http.MethodGet, "/metrics/database", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("/metrics/database status = %d, want 503", w.Code)
	}

	w := perform(router, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "clientflow_http_requests_total") {
		t.Error("/metrics missing clientflow_http_requests_total")
	}
}

func TestHandleError_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", model.NotFound("milestone"), http.StatusNotFound},
		{"validation", model.Invalid("notas são obrigatórias"), http.StatusBadRequest},
		{"forbidden", model.Forbidden("restrito"), http.StatusForbidden},
		{"rate limited", &model.RateLimitError{RetryAt: time.Now().Add(time.Hour)}, http.StatusTooManyRequests},
		{"dependency", &model.DependencyError{Dependency: "smtp", Err: context.DeadlineExceeded}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			handleError(c, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
