package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"itops-backend/internal/platform/apierr"
)

type memStore struct {
	mu   sync.Mutex
	accs map[string]*Account
}

func newMemStore() *memStore { return &memStore{accs: map[string]*Account{}} }

func (m *memStore) GetByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accs[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) List(_ context.Context, role string) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Account
	for _, a := range m.accs {
		if !a.IsDisabled && (role == "" || a.Role == role) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accs[a.ID] = &cp
	return nil
}

func (m *memStore) Disable(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accs[id]
	if !ok || a.IsDisabled {
		return 0, nil
	}
	a.IsDisabled = true
	return 1, nil
}

var secret = []byte("test-secret")

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(newMemStore(), secret, time.Hour)
	_, err := svc.Register(context.Background(), RegisterRequest{
		ID: "somchai", Password: "password123", DisplayName: "Somchai", Role: RoleTechnician,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return svc
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "somchai", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.Account.Role != RoleTechnician {
		t.Errorf("result = %+v", res)
	}

	if _, err := svc.Login(ctx, "somchai", "wrong"); !apierr.Is(err, apierr.CodeUnauthenticated) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password123"); !apierr.Is(err, apierr.CodeUnauthenticated) {
		t.Errorf("unknown user: %v", err)
	}

	if err := svc.Disable(ctx, "somchai"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "somchai", "password123"); !apierr.Is(err, apierr.CodeForbidden) {
		t.Errorf("disabled: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{ID: "somchai", Password: "password123", DisplayName: "x"})
	if !apierr.Is(err, apierr.CodeConflict) {
		t.Errorf("duplicate: %v", err)
	}
	_, err = svc.Register(ctx, RegisterRequest{ID: "new", Password: "password123", DisplayName: "x", Role: "root"})
	if !apierr.Is(err, apierr.CodeInvalidArgument) {
		t.Errorf("bad role: %v", err)
	}
	a, err := svc.Register(ctx, RegisterRequest{ID: "new", Password: "password123", DisplayName: "x"})
	if err != nil || a.Role != RoleStaff {
		t.Errorf("default role: %+v %v", a, err)
	}
}

func TestDisplayNames(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	names, err := svc.DisplayNames(ctx, []string{"somchai"})
	if err != nil || len(names) != 1 || names[0] != "Somchai" {
		t.Errorf("names = %v, %v", names, err)
	}
	if _, err := svc.DisplayNames(ctx, []string{"somchai", "ghost"}); !apierr.Is(err, apierr.CodeInvalidArgument) {
		t.Errorf("unknown: %v", err)
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireAuth(secret), func(c *gin.Context) {
		a := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": a.ID, "name": a.Name, "role": a.Role})
	})
	r.GET("/admin", RequireAuth(secret), RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	svc := newTestService(t)
	res, err := svc.Login(context.Background(), "somchai", "password123")
	if err != nil {
		t.Fatal(err)
	}
	r := newRouter()

	if w := do(r, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", w.Code)
	}
	if w := do(r, "/me", "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: %d", w.Code)
	}
	if w := do(r, "/me", res.Token); w.Code != http.StatusOK {
		t.Errorf("valid token: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, "/admin", res.Token); w.Code != http.StatusForbidden {
		t.Errorf("technician on admin route: %d", w.Code)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "somchai", "role": RoleAdmin, "exp": time.Now().Add(-time.Minute).Unix(),
	})
	s, _ := expired.SignedString(secret)
	if w := do(r, "/admin", s); w.Code != http.StatusUnauthorized {
		t.Errorf("expired token: %d", w.Code)
	}

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "x", "role": RoleAdmin, "exp": time.Now().Add(time.Hour).Unix(),
	})
	s, _ = other.SignedString([]byte("another-secret"))
	if w := do(r, "/admin", s); w.Code != http.StatusUnauthorized {
		t.Errorf("foreign signature: %d", w.Code)
	}
}
