package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	"github.com/noah-isme/mandarin-tutor-api/internal/service"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

type trajectoryGeneratorMock struct{}

func (m *trajectoryGeneratorMock) Generate(ctx context.Context, session *models.ChatSession) []models.TrajectoryStep {
	steps := make([]models.TrajectoryStep, 0, len(session.Messages))
	for _, msg := range session.Messages {
		if msg.Role != models.RoleUser {
			continue
		}
		steps = append(steps, models.TrajectoryStep{
			State:     msg.Content,
			Action:    "Keep going!",
			Reward:    models.EmotionNeutral,
			Timestamp: msg.Timestamp,
		})
	}
	return steps
}

func (m *trajectoryGeneratorMock) Statistics(steps []models.TrajectoryStep) models.TrajectoryStatistics {
	return models.TrajectoryStatistics{TotalSteps: len(steps)}
}

type trajectoryStoreMock struct {
	saved map[string][]models.TrajectoryStep
}

func (m *trajectoryStoreMock) Save(ctx context.Context, filename string, steps []models.TrajectoryStep) error {
	if m.saved == nil {
		m.saved = make(map[string][]models.TrajectoryStep)
	}
	m.saved[filename] = steps
	return nil
}

func (m *trajectoryStoreMock) Load(ctx context.Context, filename string) ([]models.TrajectoryStep, error) {
	steps, ok := m.saved[filename]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "trajectory not found")
	}
	return steps, nil
}

type logParserMock struct{}

func (m *logParserMock) Parse(ctx context.Context, filename string) (*models.ChatSession, error) {
	if filename == "ghost.log" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session log not found")
	}
	return &models.ChatSession{
		SessionID: "kid-1",
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: "hello", Timestamp: time.Now()},
		},
	}, nil
}

type jobEnqueuerMock struct {
	payloads []service.TrajectoryJobPayload
}

func (m *jobEnqueuerMock) Enqueue(payload service.TrajectoryJobPayload) (string, error) {
	m.payloads = append(m.payloads, payload)
	return "job-1", nil
}

func newTrajectoryTestHandler(jobQueue trajectoryJobEnqueuer) (*TrajectoryHandler, *trajectoryStoreMock) {
	store := &trajectoryStoreMock{}
	handler := NewTrajectoryHandler(&trajectoryGeneratorMock{}, store, &logParserMock{}, service.NewReportService(nil, nil, nil), jobQueue, nil, nil, nil)
	return handler, store
}

func TestTrajectoryHandlerGenerateFromLog(t *testing.T) {
	handler, store := newTrajectoryTestHandler(nil)
	c, w := postContext(t, `{"log_filename": "kid-1_session_x.log", "filename": "kid-1_trajectory.json"}`)

	handler.Generate(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.saved["kid-1_trajectory.json"], 1)
}

func TestTrajectoryHandlerGenerateRequiresExactlyOneSource(t *testing.T) {
	handler, _ := newTrajectoryTestHandler(nil)

	// Neither source.
	c, w := postContext(t, `{"filename": "out.json"}`)
	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Both sources.
	c, w = postContext(t, `{"log_filename": "a.log", "filename": "out.json", "session": {"session_id": "kid-1", "start_time": "2025-03-01T10:00:00Z", "messages": []}}`)
	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrajectoryHandlerGenerateMissingLog(t *testing.T) {
	handler, _ := newTrajectoryTestHandler(nil)
	c, w := postContext(t, `{"log_filename": "ghost.log", "filename": "out.json"}`)

	handler.Generate(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrajectoryHandlerGenerateAsync(t *testing.T) {
	jobs := &jobEnqueuerMock{}
	handler, store := newTrajectoryTestHandler(jobs)
	c, w := postContext(t, `{"log_filename": "kid-1_session_x.log", "filename": "out.json", "async": true}`)

	handler.Generate(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), "job-1")
	require.Len(t, jobs.payloads, 1)
	require.Empty(t, store.saved, "async generation must not write inline")
}

func TestTrajectoryHandlerGenerateAsyncDisabled(t *testing.T) {
	handler, _ := newTrajectoryTestHandler(nil)
	c, w := postContext(t, `{"log_filename": "kid-1_session_x.log", "filename": "out.json", "async": true}`)

	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrajectoryHandlerGetAndStatistics(t *testing.T) {
	handler, store := newTrajectoryTestHandler(nil)
	store.saved = map[string][]models.TrajectoryStep{
		"out.json": {{State: "hi", Action: "a", Reward: models.EmotionHappy, Timestamp: time.Now()}},
	}

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "name", Value: "out.json"}}
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "name", Value: "out.json"}}
	handler.Statistics(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "total_steps")
}

func TestTrajectoryHandlerExport(t *testing.T) {
	handler, store := newTrajectoryTestHandler(nil)
	store.saved = map[string][]models.TrajectoryStep{
		"out.json": {{State: "hi", Action: "a", Reward: models.EmotionHappy, Timestamp: time.Now()}},
	}

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "name", Value: "out.json"}}
	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, w.Body.String(), "happy")
}
