package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/auth"
	"github.com/HanzKay/KrasandApps-V1/internal/config"
	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/router"
	"github.com/google/uuid"
)

const testSecret = "router-secret"

// newTestRouter builds the full router without a database. Only routes that
// are rejected before reaching a store may be exercised.
func newTestRouter() http.Handler {
	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Auth:   config.AuthConfig{JWTSecret: testSecret},
	}
	return router.New(cfg, router.Deps{Queries: database.New(nil)})
}

func request(t *testing.T, h http.Handler, method, path, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, err := auth.GenerateToken(testSecret, uuid.New(), role+"@example.com", role, time.Hour)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := request(t, newTestRouter(), "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body: %s", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter()
	request(t, h, "GET", "/health", "")

	rr := request(t, h, "GET", "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Error("expected http_requests_total in metrics output")
	}
}

func TestRequestIDHeaderPropagates(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
}

func TestRoleGuards(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		role   string
		want   int
	}{
		{"admin subtree anonymous", "GET", "/admin/stats", "", http.StatusUnauthorized},
		{"admin subtree kitchen", "GET", "/admin/stats", enum.RoleKitchen, http.StatusForbidden},
		{"admin users cashier", "GET", "/admin/users", enum.RoleCashier, http.StatusForbidden},
		{"admin programs customer", "GET", "/admin/programs", enum.RoleCustomer, http.StatusForbidden},
		{"cogs cashier", "GET", "/cogs", enum.RoleCashier, http.StatusForbidden},
		{"cogs anonymous", "GET", "/cogs", "", http.StatusUnauthorized},
		{"ingredients waiter", "GET", "/ingredients", enum.RoleWaiter, http.StatusForbidden},
		{"tables customer", "GET", "/tables", enum.RoleCustomer, http.StatusForbidden},
		{"transactions kitchen", "GET", "/transactions", enum.RoleKitchen, http.StatusForbidden},
		{"orders list anonymous", "GET", "/orders", "", http.StatusUnauthorized},
		{"me anonymous", "GET", "/auth/me", "", http.StatusUnauthorized},
		{"payment waiter", "PUT", "/orders/" + uuid.NewString() + "/payment", enum.RoleWaiter, http.StatusForbidden},
	}
	h := newTestRouter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := request(t, h, tc.method, tc.path, tc.role)
			if rr.Code != tc.want {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

func TestInvalidTokenRejectedOnPublicRoute(t *testing.T) {
	req := httptest.NewRequest("GET", "/products", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest("OPTIONS", "/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin: got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(strings.ToLower(got), "idempotency-key") {
		t.Errorf("allow headers: got %q", got)
	}
}
