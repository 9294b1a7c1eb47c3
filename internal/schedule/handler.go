package schedule

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/shared/server/middleware"
	"neurolearn-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the schedule service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/tasks", h.createTask)
	rg.GET("/tasks", h.listTasks)
	rg.PATCH("/tasks/:id", h.updateTask)
	rg.DELETE("/tasks/:id", h.deleteTask)
	rg.GET("/schedule", h.schedule)
}

type taskRequest struct {
	Title string  `json:"title"`
	Notes string  `json:"notes"`
	Kind  string  `json:"kind"`
	DueAt *string `json:"dueAt"`
}

type taskPatch struct {
	Title  *string `json:"title"`
	Notes  *string `json:"notes"`
	Kind   *string `json:"kind"`
	Status *string `json:"status"`
	DueAt  *string `json:"dueAt"`
}

func (h *Handler) createTask(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	var dueAt *time.Time
	if req.DueAt != nil && *req.DueAt != "" {
		parsed, err := time.Parse(time.RFC3339, *req.DueAt)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "dueAt must be RFC3339", nil)
			return
		}
		utc := parsed.UTC()
		dueAt = &utc
	}

	task, err := h.Svc.CreateTask(c.Request.Context(), userID, req.Title, req.Notes, req.Kind, dueAt)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create task", nil)
		}
		return
	}

	respond.Created(c, task)
}

func (h *Handler) listTasks(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view tasks", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)

	filter := ListFilter{
		Status: c.Query("status"),
		Limit:  20,
	}

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "from must be RFC3339", nil)
			return
		}
		utc := parsed.UTC()
		filter.From = &utc
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "to must be RFC3339", nil)
			return
		}
		utc := parsed.UTC()
		filter.To = &utc
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

	tasks, err := h.Svc.ListTasks(c.Request.Context(), userID, filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list tasks", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"tasks": tasks})
}

func (h *Handler) updateTask(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req taskPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	update := TaskUpdate{
		Title:  req.Title,
		Notes:  req.Notes,
		Kind:   req.Kind,
		Status: req.Status,
	}
	if req.DueAt != nil {
		if *req.DueAt == "" {
			// Explicit empty string clears the due date.
			update.DueAt = &time.Time{}
		} else {
			parsed, err := time.Parse(time.RFC3339, *req.DueAt)
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "dueAt must be RFC3339", nil)
				return
			}
			utc := parsed.UTC()
			update.DueAt = &utc
		}
	}

	task, err := h.Svc.UpdateTask(c.Request.Context(), userID, c.Param("id"), update)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "task not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update task", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, task)
}

func (h *Handler) deleteTask(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.DeleteTask(c.Request.Context(), userID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "task not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete task", nil)
		}
		return
	}

	respond.NoContent(c)
}

func (h *Handler) schedule(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	days := DefaultWindowDays
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "days must be a positive integer", nil)
			return
		}
		days = parsed
	}

	view, err := h.Svc.Schedule(c.Request.Context(), userID, days)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to build schedule", nil)
		return
	}

	respond.JSON(c, http.StatusOK, view)
}
