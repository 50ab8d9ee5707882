package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/dto"
	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	"github.com/noah-isme/mandarin-tutor-api/internal/service"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/response"
)

type trajectoryGenerator interface {
	Generate(ctx context.Context, session *models.ChatSession) []models.TrajectoryStep
	Statistics(steps []models.TrajectoryStep) models.TrajectoryStatistics
}

type trajectoryStore interface {
	Save(ctx context.Context, filename string, steps []models.TrajectoryStep) error
	Load(ctx context.Context, filename string) ([]models.TrajectoryStep, error)
}

type sessionLogParser interface {
	Parse(ctx context.Context, filename string) (*models.ChatSession, error)
}

type trajectoryCSVRenderer interface {
	TrajectoryCSV(steps []models.TrajectoryStep) ([]byte, error)
}

type trajectoryJobEnqueuer interface {
	Enqueue(payload service.TrajectoryJobPayload) (string, error)
}

// TrajectoryHandler exposes trajectory generation, retrieval, statistics
// and CSV export.
type TrajectoryHandler struct {
	generator trajectoryGenerator
	store     trajectoryStore
	logs      sessionLogParser
	reports   trajectoryCSVRenderer
	jobs      trajectoryJobEnqueuer
	cache     *service.CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTrajectoryHandler builds a new handler. The jobs enqueuer may be nil,
// in which case async generation requests are rejected.
func NewTrajectoryHandler(generator trajectoryGenerator, store trajectoryStore, logs sessionLogParser, reports trajectoryCSVRenderer, jobQueue trajectoryJobEnqueuer, cache *service.CacheService, validate *validator.Validate, logger *zap.Logger) *TrajectoryHandler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrajectoryHandler{
		generator: generator,
		store:     store,
		logs:      logs,
		reports:   reports,
		jobs:      jobQueue,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Generate godoc
// @Summary Generate a trajectory from a session
// @Tags Trajectories
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTrajectoryRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /trajectories/generate [post]
func (h *TrajectoryHandler) Generate(c *gin.Context) {
	var req dto.GenerateTrajectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload"))
		return
	}
	if (req.Session == nil) == (req.LogFilename == "") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exactly one of session and log_filename must be provided"))
		return
	}

	if req.Async {
		if h.jobs == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "async generation is not enabled"))
			return
		}
		jobID, err := h.jobs.Enqueue(service.TrajectoryJobPayload{
			Session:     req.Session,
			LogFilename: req.LogFilename,
			Filename:    req.Filename,
		})
		if err != nil {
			response.Error(c, err)
			return
		}
		h.invalidate(c, req.Filename)
		response.JSON(c, http.StatusAccepted, dto.AsyncTrajectoryResponse{JobID: jobID, Filename: req.Filename})
		return
	}

	session := req.Session
	if session == nil {
		parsed, err := h.logs.Parse(c.Request.Context(), req.LogFilename)
		if err != nil {
			response.Error(c, err)
			return
		}
		session = parsed
	}

	steps := h.generator.Generate(c.Request.Context(), session)
	if err := h.store.Save(c.Request.Context(), req.Filename, steps); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c, req.Filename)

	response.Created(c, dto.GenerateTrajectoryResponse{
		Filename:      req.Filename,
		Steps:         len(steps),
		ParseWarnings: session.ParseWarnings,
		Statistics:    h.generator.Statistics(steps),
	})
}

// Get godoc
// @Summary Load a stored trajectory
// @Tags Trajectories
// @Produce json
// @Param name path string true "Trajectory file name"
// @Success 200 {object} response.Envelope
// @Router /trajectories/{name} [get]
func (h *TrajectoryHandler) Get(c *gin.Context) {
	steps, err := h.store.Load(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, steps)
}

// Statistics godoc
// @Summary Aggregate statistics for a stored trajectory
// @Tags Trajectories
// @Produce json
// @Param name path string true "Trajectory file name"
// @Success 200 {object} response.Envelope
// @Router /trajectories/{name}/statistics [get]
func (h *TrajectoryHandler) Statistics(c *gin.Context) {
	name := c.Param("name")

	var cached models.TrajectoryStatistics
	if hit, err := h.cache.Get(c.Request.Context(), statsCacheKey(name), &cached); err == nil && hit {
		response.JSON(c, http.StatusOK, cached)
		return
	}

	steps, err := h.store.Load(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats := h.generator.Statistics(steps)
	if err := h.cache.Set(c.Request.Context(), statsCacheKey(name), stats, 10*time.Minute); err != nil {
		h.logger.Warn("failed to cache trajectory statistics", zap.Error(err))
	}
	response.JSON(c, http.StatusOK, stats)
}

// Export godoc
// @Summary Export a stored trajectory as CSV
// @Tags Trajectories
// @Produce text/csv
// @Param name path string true "Trajectory file name"
// @Success 200 {string} string "CSV payload"
// @Router /trajectories/{name}/export [get]
func (h *TrajectoryHandler) Export(c *gin.Context) {
	steps, err := h.store.Load(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.reports.TrajectoryCSV(steps)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+c.Param("name")+".csv")
	c.Data(http.StatusOK, "text/csv", payload)
}

func (h *TrajectoryHandler) invalidate(c *gin.Context, name string) {
	if err := h.cache.Invalidate(c.Request.Context(), statsCacheKey(name)); err != nil {
		h.logger.Warn("failed to invalidate trajectory cache", zap.Error(err))
	}
}

func statsCacheKey(name string) string {
	return "trajectory:stats:" + name
}
