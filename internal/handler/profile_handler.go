package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mandarin-tutor-api/internal/dto"
	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/response"
)

type profileStore interface {
	Save(ctx context.Context, profile *models.StudentProfile) error
	Load(ctx context.Context, sessionID string) (*models.StudentProfile, error)
}

// ProfileHandler exposes learner profile endpoints.
type ProfileHandler struct {
	profiles  profileStore
	validator *validator.Validate
}

// NewProfileHandler builds a new handler.
func NewProfileHandler(profiles profileStore, validate *validator.Validate) *ProfileHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileHandler{profiles: profiles, validator: validate}
}

// Get godoc
// @Summary Load a learner profile
// @Tags Profiles
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /profiles/{id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profiles.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// RecordWord godoc
// @Summary Credit practice of a vocabulary word
// @Tags Profiles
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.RecordWordRequest true "Word payload"
// @Success 200 {object} response.Envelope
// @Router /profiles/{id}/words [post]
func (h *ProfileHandler) RecordWord(c *gin.Context) {
	var req dto.RecordWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid word payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid word payload"))
		return
	}

	profile, err := h.profiles.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	increment := models.DefaultMasteryIncrement
	if req.Increment != nil {
		increment = *req.Increment
	}
	if err := profile.RecordWordUsage(req.Word, increment); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.profiles.Save(c.Request.Context(), profile); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"word":    req.Word,
		"mastery": profile.WordMastery(req.Word),
	})
}
