package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/response"
)

type wordService interface {
	Categories() []string
	WordsForLevel(level models.LanguageLevel) []models.WordKnowledge
	Lookup(word string) (models.WordKnowledge, bool)
}

// WordHandler exposes the vocabulary knowledge base.
type WordHandler struct {
	service wordService
}

// NewWordHandler builds a new handler.
func NewWordHandler(service wordService) *WordHandler {
	return &WordHandler{service: service}
}

// List godoc
// @Summary List vocabulary for a level
// @Tags Words
// @Produce json
// @Param level query string false "Language level (default L5, i.e. everything)"
// @Success 200 {object} response.Envelope
// @Router /words [get]
func (h *WordHandler) List(c *gin.Context) {
	level := models.LevelL5
	if raw := c.Query("level"); raw != "" {
		parsed, err := models.ParseLanguageLevel(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown language level"))
			return
		}
		level = parsed
	}
	response.JSON(c, http.StatusOK, h.service.WordsForLevel(level))
}

// Categories godoc
// @Summary List vocabulary categories
// @Tags Words
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /words/categories [get]
func (h *WordHandler) Categories(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Categories())
}

// Get godoc
// @Summary Look up one vocabulary entry
// @Tags Words
// @Produce json
// @Param word path string true "Chinese word"
// @Success 200 {object} response.Envelope
// @Router /words/{word} [get]
func (h *WordHandler) Get(c *gin.Context) {
	entry, ok := h.service.Lookup(c.Param("word"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "word not found"))
		return
	}
	response.JSON(c, http.StatusOK, entry)
}
