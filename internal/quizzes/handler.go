package quizzes

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

// Handler wires HTTP handlers to the quizzes service.
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
	rg.POST("/documents/:id/quizzes", h.create)
	rg.GET("/quizzes", h.list)
	rg.GET("/quizzes/:id", h.get)
	rg.POST("/quizzes/:id/attempts", h.submitAttempt)
	rg.GET("/quizzes/:id/attempts", h.listAttempts)
	rg.DELETE("/quizzes/:id", h.delete)
}

type createRequest struct {
	QuestionCount int    `json:"questionCount"`
	Difficulty    string `json:"difficulty"`
}

type attemptRequest struct {
	Answers []int `json:"answers"`
}

// questionView is a question rendered for clients. Answer fields are only
// present when answers were requested.
type questionView struct {
	ID           string   `json:"id"`
	Position     int      `json:"position"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	quiz, err := h.Svc.Create(c.Request.Context(), userID, c.Param("id"), req.QuestionCount, req.Difficulty)
	if err != nil {
		switch {
		case errors.Is(err, usage.ErrLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "limit_reached", "You've reached your generation limit. Upgrade your plan to continue.", nil)
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start quiz generation", nil)
		}
		return
	}

	respond.Accepted(c, gin.H{
		"quizId": quiz.ID,
		"status": quiz.Status,
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
		Status:     c.Query("status"),
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

	quizzes, err := h.Svc.List(c.Request.Context(), userID, filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list quizzes", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")

	if !h.Limiter.Allow(userID, id) {
		c.Header("Retry-After", strconv.Itoa(h.Limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Polling too fast. Retry shortly.", nil)
		return
	}

	quiz, err := h.Svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "quiz not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch quiz", nil)
		}
		return
	}

	includeAnswers := c.Query("includeAnswers") == "true"
	views := make([]questionView, len(quiz.Questions))
	for i, q := range quiz.Questions {
		views[i] = questionView{
			ID:       q.ID,
			Position: q.Position,
			Prompt:   q.Prompt,
			Options:  q.Options,
		}
		if includeAnswers {
			idx := q.CorrectIndex
			views[i].CorrectIndex = &idx
			views[i].Explanation = q.Explanation
		}
	}
	quiz.Questions = nil

	respond.JSON(c, http.StatusOK, gin.H{
		"quiz":      quiz,
		"questions": views,
	})
}

func (h *Handler) submitAttempt(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req attemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	attempt, results, err := h.Svc.SubmitAttempt(c.Request.Context(), userID, c.Param("id"), req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "quiz not found", nil)
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "conflict", "quiz generation has not finished", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to grade attempt", nil)
		}
		return
	}

	respond.Created(c, gin.H{
		"attempt": attempt,
		"results": results,
	})
}

func (h *Handler) listAttempts(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			limit = parsed
		}
	}
	if limit > 50 {
		limit = 50
	}
	offset := 0
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	attempts, err := h.Svc.ListAttempts(c.Request.Context(), userID, c.Param("id"), limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "quiz not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list attempts", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"attempts": attempts})
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "quiz not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete quiz", nil)
		}
		return
	}

	respond.NoContent(c)
}
