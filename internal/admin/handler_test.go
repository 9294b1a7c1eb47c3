package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/admin"
	"neurolearn-backend/internal/profiles"
	"neurolearn-backend/internal/usage"
)

func newRouter(svc *admin.Service, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("userRole", role)
		c.Set("isGuest", false)
		c.Next()
	})
	api := router.Group("/api/v1")
	admin.NewHandler(svc).RegisterRoutes(api)
	return router
}

func TestListUsersRequiresAdmin(t *testing.T) {
	svc, _, _ := newService(t)
	router := newRouter(svc, "user-1", "member")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestListUsersAsAdmin(t *testing.T) {
	svc, p, _ := newService(t)
	seedUser(t, p, "user-1", "one@example.com")
	router := newRouter(svc, "admin-1", "admin")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users?q=one", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Users []admin.UserRow `json:"users"`
		Total int             `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Users) != 1 || body.Users[0].Profile.Email != "one@example.com" {
		t.Fatalf("unexpected users: %+v", body.Users)
	}
	if body.Total != 1 {
		t.Fatalf("expected total 1, got %d", body.Total)
	}
}

func TestSetPlanEndpoint(t *testing.T) {
	svc, p, _ := newService(t)
	seedUser(t, p, "user-1", "one@example.com")
	router := newRouter(svc, "admin-1", "admin")

	payload, _ := json.Marshal(map[string]string{"plan": "pro"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/users/user-1/plan", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var row admin.UserRow
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row.Profile.Plan != profiles.PlanPro {
		t.Fatalf("expected pro plan, got %q", row.Profile.Plan)
	}
}

func TestSetPlanEndpointValidation(t *testing.T) {
	svc, p, _ := newService(t)
	seedUser(t, p, "user-1", "one@example.com")
	router := newRouter(svc, "admin-1", "admin")

	payload, _ := json.Marshal(map[string]string{"plan": "platinum"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/users/user-1/plan", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSetPlanEndpointUnknownUser(t *testing.T) {
	svc, _, _ := newService(t)
	router := newRouter(svc, "admin-1", "admin")

	payload, _ := json.Marshal(map[string]string{"plan": "pro"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/users/nobody/plan", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	p := profiles.NewService(profiles.NewMemoryRepo())
	svc := admin.NewService(p, usage.NewService(), admin.StatsFunc(func(ctx context.Context) (admin.Stats, error) {
		return admin.Stats{Users: 2, Documents: 5, Generations: map[string]map[string]int{
			"quiz": {"completed": 1},
		}}, nil
	}), nil)
	router := newRouter(svc, "admin-1", "admin")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var st admin.Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Users != 2 || st.Documents != 5 || st.Generations["quiz"]["completed"] != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}
