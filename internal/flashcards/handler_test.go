package flashcards_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/flashcards"
	"neurolearn-backend/internal/generation"
)

func newRouter(f *fixture, userID string, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	api := router.Group("/api/v1")
	flashcards.NewHandler(f.svc).RegisterRoutes(api)
	return router
}

func TestCreateDeckAccepted(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle produces ATP.")
	router := newRouter(f, "user-1", false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID+"/flashcards",
		strings.NewReader(`{"count":5}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		DeckID string `json:"deckId"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.DeckID == "" || payload.Status != generation.StatusQueued {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestListDecksGuestRejected(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f, "guest:abc", true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/flashcards", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestReviewCardEndpoint(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle produces ATP.")
	deck := f.seedQueued(t, "user-1", doc.ID, 1)
	if err := f.svc.Process(context.Background(), deck.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	full, _ := f.repo.GetDeckWithCards(context.Background(), "user-1", deck.ID)
	cardID := full.Cards[0].ID

	router := newRouter(f, "user-1", false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/flashcards/"+deck.ID+"/review",
		strings.NewReader(`{"cardId":"`+cardID+`","correct":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var card flashcards.Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.TimesReviewed != 1 || card.CorrectStreak != 1 {
		t.Fatalf("review not recorded: %+v", card)
	}
}

func TestReviewUnknownCard(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle produces ATP.")
	deck := f.seedQueued(t, "user-1", doc.ID, 1)
	if err := f.svc.Process(context.Background(), deck.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	router := newRouter(f, "user-1", false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/flashcards/"+deck.ID+"/review",
		strings.NewReader(`{"cardId":"missing","correct":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
