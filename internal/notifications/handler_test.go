package notifications_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/notifications"
)

func newRouter(svc *notifications.Service, userID string, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	api := router.Group("/api/v1")
	notifications.NewHandler(svc).RegisterRoutes(api)
	return router
}

func TestListNotifications(t *testing.T) {
	repo := notifications.NewMemoryRepo()
	svc := notifications.NewService(repo)

	now := time.Now().UTC()
	seed := []notifications.Notification{
		{ID: "n-1", UserID: "user-1", Kind: "welcome", Title: "Welcome", CreatedAt: now},
		{ID: "n-2", UserID: "user-1", Kind: "summary_ready", Title: "Summary ready", CreatedAt: now.Add(time.Second)},
	}
	for _, n := range seed {
		if err := repo.Create(context.Background(), n); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	router := newRouter(svc, "user-1", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Notifications []notifications.Notification `json:"notifications"`
		UnreadCount   int                          `json:"unreadCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(body.Notifications))
	}
	if body.UnreadCount != 2 {
		t.Fatalf("expected unreadCount 2, got %d", body.UnreadCount)
	}
	if body.Notifications[0].ID != "n-2" {
		t.Fatalf("expected newest first, got %s", body.Notifications[0].ID)
	}
}

func TestListNotificationsGuest(t *testing.T) {
	svc := notifications.NewService(notifications.NewMemoryRepo())
	router := newRouter(svc, "guest:abc", true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "login_required" {
		t.Fatalf("expected login_required, got %s", body.Error.Code)
	}
}

func TestMarkReadEndpoints(t *testing.T) {
	repo := notifications.NewMemoryRepo()
	svc := notifications.NewService(repo)
	router := newRouter(svc, "user-1", false)

	n := notifications.Notification{ID: "n-1", UserID: "user-1", Kind: "welcome", Title: "Welcome", CreatedAt: time.Now().UTC()}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/n-1/read", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/nope/read", nil)
	missingResp := httptest.NewRecorder()
	router.ServeHTTP(missingResp, missing)
	if missingResp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missingResp.Code)
	}

	all := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil)
	allResp := httptest.NewRecorder()
	router.ServeHTTP(allResp, all)
	if allResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", allResp.Code)
	}
}

func TestDeleteNotification(t *testing.T) {
	repo := notifications.NewMemoryRepo()
	svc := notifications.NewService(repo)
	router := newRouter(svc, "user-1", false)

	n := notifications.Notification{ID: "n-1", UserID: "user-1", Kind: "welcome", Title: "Welcome", CreatedAt: time.Now().UTC()}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/n-1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	again := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/n-1", nil)
	againResp := httptest.NewRecorder()
	router.ServeHTTP(againResp, again)
	if againResp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", againResp.Code)
	}
}
