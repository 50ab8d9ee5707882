package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/jobs"
)

// TrajectoryJobPayload describes one background build: either an inline
// session or a transcript file to parse, plus the output file name.
type TrajectoryJobPayload struct {
	Session     *models.ChatSession
	LogFilename string
	Filename    string
}

type jobSessionLogParser interface {
	Parse(ctx context.Context, filename string) (*models.ChatSession, error)
}

type jobTrajectoryStore interface {
	Save(ctx context.Context, filename string, steps []models.TrajectoryStep) error
}

// TrajectoryJobService runs trajectory builds on a background worker pool
// so large transcripts do not block the request path.
type TrajectoryJobService struct {
	generator *TrajectoryService
	store     jobTrajectoryStore
	logs      jobSessionLogParser
	queue     *jobs.Queue[TrajectoryJobPayload]
	logger    *zap.Logger
}

// NewTrajectoryJobService constructs the service and its queue. Call Start
// before enqueueing and Stop on shutdown.
func NewTrajectoryJobService(generator *TrajectoryService, store jobTrajectoryStore, logs jobSessionLogParser, cfg jobs.QueueConfig, logger *zap.Logger) *TrajectoryJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TrajectoryJobService{
		generator: generator,
		store:     store,
		logs:      logs,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("trajectories", s.handle, cfg)
	return s
}

// Start launches the worker pool.
func (s *TrajectoryJobService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *TrajectoryJobService) Stop() {
	s.queue.Stop()
}

// Enqueue schedules a background build and returns the job id.
func (s *TrajectoryJobService) Enqueue(payload TrajectoryJobPayload) (string, error) {
	id := uuid.NewString()
	err := s.queue.Enqueue(jobs.Job[TrajectoryJobPayload]{
		ID:      id,
		Payload: payload,
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue trajectory build")
	}
	return id, nil
}

func (s *TrajectoryJobService) handle(ctx context.Context, job jobs.Job[TrajectoryJobPayload]) error {
	payload := job.Payload
	session := payload.Session
	if session == nil {
		parsed, err := s.logs.Parse(ctx, payload.LogFilename)
		if err != nil {
			return fmt.Errorf("parse transcript %s: %w", payload.LogFilename, err)
		}
		session = parsed
	}

	steps := s.generator.Generate(ctx, session)
	if err := s.store.Save(ctx, payload.Filename, steps); err != nil {
		return fmt.Errorf("save trajectory %s: %w", payload.Filename, err)
	}
	s.logger.Info("background trajectory built",
		zap.String("job_id", job.ID),
		zap.String("filename", payload.Filename),
		zap.Int("steps", len(steps)))
	return nil
}
