package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mandarin-tutor-api/internal/dto"
	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	"github.com/noah-isme/mandarin-tutor-api/internal/service"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/response"
)

type sessionService interface {
	Start(ctx context.Context, sessionID string) (*models.StudentProfile, error)
	ProcessMessage(ctx context.Context, sessionID, content string) (*service.TurnResult, error)
	Summary(sessionID string) (*service.SessionSummary, error)
	End(ctx context.Context, sessionID string) (string, error)
}

// SessionHandler exposes the live tutoring session endpoints.
type SessionHandler struct {
	service   sessionService
	validator *validator.Validate
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(svc sessionService, validate *validator.Validate) *SessionHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &SessionHandler{service: svc, validator: validate}
}

// Start godoc
// @Summary Start a tutoring session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.StartSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Start(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload"))
		return
	}
	profile, err := h.service.Start(c.Request.Context(), req.SessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// Message godoc
// @Summary Send a message to a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SessionMessageRequest true "Message payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/messages [post]
func (h *SessionHandler) Message(c *gin.Context) {
	var req dto.SessionMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload"))
		return
	}
	result, err := h.service.ProcessMessage(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Summary godoc
// @Summary Get a live session summary
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/summary [get]
func (h *SessionHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// End godoc
// @Summary End a tutoring session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/end [post]
func (h *SessionHandler) End(c *gin.Context) {
	farewell, err := h.service.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"farewell": farewell})
}
