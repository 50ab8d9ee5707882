package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/response"
)

type authService interface {
	IssueToken(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error)
}

// AuthHandler exposes the client-credential token endpoint.
type AuthHandler struct {
	service authService
}

// NewAuthHandler builds a new handler.
func NewAuthHandler(service authService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Token godoc
// @Summary Exchange client credentials for an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.TokenRequest true "Credential payload"
// @Success 200 {object} response.Envelope
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid credential payload"))
		return
	}
	token, err := h.service.IssueToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, token)
}
