package flashcards

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/documents"
	"neurolearn-backend/internal/generation"
	"neurolearn-backend/internal/shared/server/middleware"
	"neurolearn-backend/internal/shared/server/respond"
	"neurolearn-backend/internal/usage"
)

// Handler wires HTTP handlers to the flashcards service.
type Handler struct {
	Svc     *Service
	Limiter *generation.PollLimiter
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:     svc,
		Limiter: generation.NewPollLimiter(0, nil),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/flashcards", h.create)
	rg.GET("/flashcards", h.list)
	rg.GET("/flashcards/:id", h.get)
	rg.POST("/flashcards/:id/review", h.review)
	rg.DELETE("/flashcards/:id", h.delete)
}

type createRequest struct {
	Count int    `json:"count"`
	Title string `json:"title"`
}

type reviewRequest struct {
	CardID  string `json:"cardId"`
	Correct bool   `json:"correct"`
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	deck, err := h.Svc.Create(c.Request.Context(), userID, c.Param("id"), req.Count, req.Title)
	if err != nil {
		switch {
		case errors.Is(err, usage.ErrLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "limit_reached", "You've reached your generation limit. Upgrade your plan to continue.", nil)
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start flashcard generation", nil)
		}
		return
	}

	respond.Accepted(c, gin.H{
		"deckId": deck.ID,
		"status": deck.Status,
	})
}

func (h *Handler) list(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)

	filter := ListFilter{
		DocumentID: c.Query("documentId"),
		Limit:      20,
	}

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Limit = parsed
		}
	}
	if filter.Limit < 0 {
		filter.Limit = 0
	}
	if filter.Limit > 50 {
		filter.Limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Offset = parsed
		}
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	decks, err := h.Svc.List(c.Request.Context(), userID, filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list flashcard decks", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"decks": decks})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")

	if !h.Limiter.Allow(userID, id) {
		c.Header("Retry-After", strconv.Itoa(h.Limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Polling too fast. Retry shortly.", nil)
		return
	}

	deck, err := h.Svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "flashcard deck not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch flashcard deck", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, deck)
}

func (h *Handler) review(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CardID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "cardId is required", nil)
		return
	}

	card, err := h.Svc.Review(c.Request.Context(), userID, c.Param("id"), req.CardID, req.Correct)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "flashcard deck not found", nil)
		case errors.Is(err, ErrCardNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "flashcard not found", nil)
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "conflict", "deck generation has not finished", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record review", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, card)
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "flashcard deck not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete flashcard deck", nil)
		}
		return
	}

	respond.NoContent(c)
}
