package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/response"
)

type reportSessionSource interface {
	Session(sessionID string) (*models.ChatSession, error)
}

type reportRenderer interface {
	SessionStatistics(session *models.ChatSession) models.TrajectoryStatistics
	SessionReportPDF(session *models.ChatSession, profile *models.StudentProfile, stats models.TrajectoryStatistics) ([]byte, error)
}

type reportProfileSource interface {
	Load(ctx context.Context, sessionID string) (*models.StudentProfile, error)
}

// ReportHandler renders PDF progress reports for live sessions.
type ReportHandler struct {
	sessions reportSessionSource
	profiles reportProfileSource
	reports  reportRenderer
}

// NewReportHandler builds a new handler.
func NewReportHandler(sessions reportSessionSource, profiles reportProfileSource, reports reportRenderer) *ReportHandler {
	return &ReportHandler{sessions: sessions, profiles: profiles, reports: reports}
}

// SessionReport godoc
// @Summary Render a PDF progress report for a session
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Success 200 {string} string "PDF payload"
// @Router /reports/sessions/{id} [get]
func (h *ReportHandler) SessionReport(c *gin.Context) {
	sessionID := c.Param("id")
	session, err := h.sessions.Session(sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	profile, err := h.profiles.Load(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, err := h.reports.SessionReportPDF(session, profile, h.reports.SessionStatistics(session))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report"))
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+sessionID+"_report.pdf")
	c.Data(http.StatusOK, "application/pdf", payload)
}
