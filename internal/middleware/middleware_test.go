package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "segredo-de-teste"

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(cfg AuthConfig) *gin.Engine {
	router := gin.New()
	router.Use(BearerAuth(cfg))
	router.GET("/me", func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, actor)
	})
	return router
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
}

func doGet(router http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Qualquer token assinado com o segredo correto deve resolver para o mesmo Actor
func TestBearerAuth_ActorRoundTrip(t *testing.T) {
	router := newAuthRouter(AuthConfig{JWTSecret: testSecret})
	properties := gopter.NewProperties(nil)

	properties.Property("signed token yields its actor", prop.ForAll(
		func(userID string, internal bool) bool {
			actor := model.Actor{UserID: userID, Type: model.UserTypeClient}
			if internal {
				actor.Type = model.UserTypeInternal
			}
			token, err := IssueToken(testSecret, actor, validClaims())
			if err != nil {
				return false
			}
			w := doGet(router, "/me", map[string]string{"Authorization": "Bearer " + token})
			if w.Code != http.StatusOK {
				t.Logf("status %d for %q", w.Code, userID)
				return false
			}
			return w.Body.String() == `{"user_id":"`+userID+`","type":"`+string(actor.Type)+`"}`
		},
		gen.RegexMatch(`^[a-z0-9]{1,24}$`),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestBearerAuth_Rejects(t *testing.T) {
	router := newAuthRouter(AuthConfig{JWTSecret: testSecret})
	actor := model.Actor{UserID: "u-1", Type: model.UserTypeClient}

	wrongSecret, _ := IssueToken("outro-segredo", actor, validClaims())
	expired, _ := IssueToken(testSecret, actor, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	noExpiry, _ := IssueToken(testSecret, actor, jwt.RegisteredClaims{})
	noSubject, _ := IssueToken(testSecret, model.Actor{Type: model.UserTypeClient}, validClaims())
	badType, _ := IssueToken(testSecret, model.Actor{UserID: "u-1", Type: "ADMIN"}, validClaims())
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserType:         model.UserTypeInternal,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: validClaims().ExpiresAt},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"no token", "Bearer"},
		{"garbage", "Bearer abc.def.ghi"},
		{"wrong secret", "Bearer " + wrongSecret},
		{"expired", "Bearer " + expired},
		{"no expiry", "Bearer " + noExpiry},
		{"no subject", "Bearer " + noSubject},
		{"unknown user type", "Bearer " + badType},
		{"alg none", "Bearer " + none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := doGet(router, "/me", headers)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestServiceAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("cron-token"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}

	tests := []struct {
		name  string
		hash  string
		token string
		want  int
	}{
		{"valid token", string(hash), "cron-token", http.StatusOK},
		{"wrong token", string(hash), "outro", http.StatusUnauthorized},
		{"missing token", string(hash), "", http.StatusUnauthorized},
		{"not configured", "", "cron-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(ServiceAuth(AuthConfig{ServiceTokenHash: tt.hash}))
			router.POST("/internal/sprints/check-recent", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodPost, "/internal/sprints/check-recent", nil)
			if tt.token != "" {
				req.Header.Set(HeaderServiceToken, tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestActorFrom_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := ActorFrom(c); ok {
		t.Error("ActorFrom() ok = true without auth")
	}
	c.Set(ActorKey, "not an actor")
	if _, ok := ActorFrom(c); ok {
		t.Error("ActorFrom() ok = true for wrong type")
	}
}

func TestRequireUUIDParams(t *testing.T) {
	router := gin.New()
	router.Use(RequireUUIDParams())
	router.GET("/api/projects/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		path string
		want int
	}{
		{"/api/projects/6f1c1f8e-1b2a-4c3d-9e8f-0a1b2c3d4e5f", http.StatusOK},
		{"/api/projects/123", http.StatusNotFound},
		{"/api/projects/'%20OR%201=1", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := doGet(router, tt.path, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := doGet(router, "/ping", map[string]string{HeaderRequestID: "abc12345"})
	if got := w.Header().Get(HeaderRequestID); got != "abc12345" {
		t.Errorf("X-Request-ID = %q, want abc12345", got)
	}

	w = doGet(router, "/ping", nil)
	if got := w.Header().Get(HeaderRequestID); len(got) != 8 {
		t.Errorf("generated X-Request-ID = %q, want 8 chars", got)
	}
	if w.Header().Get(HeaderTraceID) == "" {
		t.Error("X-Trace-ID not set")
	}
}

func TestShouldAudit(t *testing.T) {
	tests := []struct {
		method, path string
		want         bool
	}{
		{http.MethodPost, "/api/change-requests/1/approve", true},
		{http.MethodPatch, "/api/projects/1/phase", true},
		{http.MethodPut, "/api/milestones/1", true},
		{http.MethodGet, "/api/projects/1", false},
		{http.MethodPost, "/api/notifications/1/read", false},
		{http.MethodPost, "/health", false},
	}

	for _, tt := range tests {
		if got := shouldAudit(tt.method, tt.path); got != tt.want {
			t.Errorf("shouldAudit(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestRequestID_RejectsUnsafeHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, incoming := range []string{"a b", "<script>", strings.Repeat("x", 65)} {
		w := doGet(router, "/ping", map[string]string{HeaderRequestID: incoming})
		if got := w.Header().Get(HeaderRequestID); got == incoming || len(got) != 8 {
			t.Errorf("incoming %q: X-Request-ID = %q, want a generated id", incoming, got)
		}
	}
}
