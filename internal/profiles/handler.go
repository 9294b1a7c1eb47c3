package profiles

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/shared/server/middleware"
	"neurolearn-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.get)
	rg.PUT("/profile", h.update)
	rg.POST("/profile/onboarding", h.onboarding)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	profile, err := h.Svc.Get(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "profile not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load profile", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, profile)
}

type updateRequest struct {
	FullName         *string `json:"fullName"`
	StudyGoal        *string `json:"studyGoal"`
	DailyGoalMinutes *int    `json:"dailyGoalMinutes"`
}

func (h *Handler) update(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	profile, err := h.Svc.Update(c.Request.Context(), userID, UpdateInput{
		FullName:         req.FullName,
		StudyGoal:        req.StudyGoal,
		DailyGoalMinutes: req.DailyGoalMinutes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "profile not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update profile", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, profile)
}

type onboardingRequest struct {
	StudyGoal        string `json:"studyGoal"`
	DailyGoalMinutes int    `json:"dailyGoalMinutes"`
}

func (h *Handler) onboarding(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req onboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	profile, err := h.Svc.CompleteOnboarding(c.Request.Context(), userID, req.StudyGoal, req.DailyGoalMinutes)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "profile not found", nil)
		case errors.Is(err, ErrAlreadyOnboarded):
			respond.Error(c, http.StatusConflict, "conflict", "onboarding already completed", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to complete onboarding", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, profile)
}
