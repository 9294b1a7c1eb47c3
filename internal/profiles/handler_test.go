package profiles_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/profiles"
)

func newRouter(svc *profiles.Service, userID string, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	api := router.Group("/api/v1")
	profiles.NewHandler(svc).RegisterRoutes(api)
	return router
}

func seedProfile(t *testing.T, svc *profiles.Service, userID string) {
	t.Helper()
	_, err := svc.UpsertFromAuth(context.Background(), profiles.Profile{
		UserID:   userID,
		Email:    "student@example.com",
		FullName: "Sam Student",
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestGetProfile(t *testing.T) {
	svc := profiles.NewService(profiles.NewMemoryRepo())
	seedProfile(t, svc, "user-1")
	router := newRouter(svc, "user-1", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var p profiles.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Email != "student@example.com" || p.Plan != profiles.PlanFree {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestGetProfileGuest(t *testing.T) {
	svc := profiles.NewService(profiles.NewMemoryRepo())
	router := newRouter(svc, "guest:abc", true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	// Guests have no profile row, so the lookup misses.
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestPutProfile(t *testing.T) {
	svc := profiles.NewService(profiles.NewMemoryRepo())
	seedProfile(t, svc, "user-1")
	router := newRouter(svc, "user-1", false)

	body := []byte(`{"fullName":"Sam Senior","dailyGoalMinutes":90}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var p profiles.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.FullName != "Sam Senior" || p.DailyGoalMinutes != 90 {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestPutProfileBadBody(t *testing.T) {
	svc := profiles.NewService(profiles.NewMemoryRepo())
	seedProfile(t, svc, "user-1")
	router := newRouter(svc, "user-1", false)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOnboardingConflict(t *testing.T) {
	svc := profiles.NewService(profiles.NewMemoryRepo())
	seedProfile(t, svc, "user-1")
	router := newRouter(svc, "user-1", false)

	body := []byte(`{"studyGoal":"Pass finals","dailyGoalMinutes":45}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/onboarding", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	again := httptest.NewRequest(http.MethodPost, "/api/v1/profile/onboarding", bytes.NewReader(body))
	again.Header.Set("Content-Type", "application/json")
	againResp := httptest.NewRecorder()
	router.ServeHTTP(againResp, again)

	if againResp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", againResp.Code)
	}

	var errBody struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(againResp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errBody.Error.Code != "conflict" {
		t.Fatalf("expected conflict code, got %s", errBody.Error.Code)
	}
}
