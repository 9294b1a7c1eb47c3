package summaries

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

// Handler wires HTTP handlers to the summaries service.
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
	rg.POST("/documents/:id/summaries", h.create)
	rg.GET("/summaries", h.list)
	rg.GET("/summaries/:id", h.get)
	rg.PATCH("/summaries/:id", h.update)
	rg.DELETE("/summaries/:id", h.delete)
}

type createRequest struct {
	Format string `json:"format"`
	Title  string `json:"title"`
}

type metaRequest struct {
	Title      *string `json:"title"`
	IsFavorite *bool   `json:"isFavorite"`
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	row, err := h.Svc.Create(c.Request.Context(), userID, c.Param("id"), req.Format, req.Title)
	if err != nil {
		switch {
		case errors.Is(err, usage.ErrLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "limit_reached", "You've reached your generation limit. Upgrade your plan to continue.", nil)
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start summary generation", nil)
		}
		return
	}

	respond.Accepted(c, gin.H{
		"summaryId": row.ID,
		"status":    row.Status,
	})
}

func (h *Handler) list(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)

	filter := ListFilter{
		DocumentID:   c.Query("documentId"),
		FavoriteOnly: c.Query("favorite") == "true",
		Limit:        20,
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

	rows, err := h.Svc.List(c.Request.Context(), userID, filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list summaries", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"summaries": rows})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")

	if !h.Limiter.Allow(userID, id) {
		c.Header("Retry-After", strconv.Itoa(h.Limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Polling too fast. Retry shortly.", nil)
		return
	}

	row, err := h.Svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "summary not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch summary", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, row)
}

func (h *Handler) update(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req metaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	row, err := h.Svc.UpdateMeta(c.Request.Context(), userID, c.Param("id"), MetaUpdate{
		Title:      req.Title,
		IsFavorite: req.IsFavorite,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "summary not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update summary", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, row)
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "summary not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete summary", nil)
		}
		return
	}

	respond.NoContent(c)
}
