package service

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
)

func TestTrajectoryCSV(t *testing.T) {
	svc := NewReportService(nil, nil, nil)

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	steps := []models.TrajectoryStep{
		{
			State:     "我喜欢猫",
			Action:    "Keep going!",
			Reward:    models.EmotionHappy,
			Timestamp: start,
			Metadata: map[string]interface{}{
				models.StepMetaLevel: "L2",
				models.StepMetaTrend: "stable",
			},
		},
		{
			State:     "this is hard",
			Action:    "Slow down.",
			Reward:    models.EmotionFrustrated,
			Timestamp: start.Add(2 * time.Minute),
		},
	}

	data, err := svc.TrajectoryCSV(steps)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, trajectoryCSVHeaders, records[0])
	assert.Equal(t, []string{"0", "2025-03-01T10:00:00Z", "我喜欢猫", "Keep going!", "happy", "L2", "stable"}, records[1])
	// Steps without metadata leave the derived columns blank.
	assert.Equal(t, "frustrated", records[2][4])
	assert.Equal(t, "", records[2][5])
	assert.Equal(t, "", records[2][6])
}

func TestTrajectoryCSVEmpty(t *testing.T) {
	svc := NewReportService(nil, nil, nil)

	data, err := svc.TrajectoryCSV(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, trajectoryCSVHeaders, records[0])
}

func TestSessionStatisticsDefaultsToNeutral(t *testing.T) {
	svc := NewReportService(nil, nil, nil)

	happy := models.EmotionHappy
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	session := &models.ChatSession{
		SessionID: "kid-1",
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: "hi", Timestamp: start, EmotionDetected: &happy},
			{Role: models.RoleAssistant, Content: "你好!", Timestamp: start.Add(time.Minute)},
			{Role: models.RoleUser, Content: "ok", Timestamp: start.Add(2 * time.Minute)},
		},
	}

	stats := svc.SessionStatistics(session)
	assert.Equal(t, 2, stats.TotalSteps)
	assert.Equal(t, 1, stats.EmotionCounts["happy"])
	assert.Equal(t, 1, stats.EmotionCounts["neutral"], "unlabeled turns count as neutral")
	assert.InDelta(t, 0.5, stats.PositiveEmotionRatio, 1e-9)
}

func TestSessionReportPDF(t *testing.T) {
	svc := NewReportService(nil, nil, nil)

	session := &models.ChatSession{
		SessionID: "kid-1",
		StartTime: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: "hi", Timestamp: time.Now()},
		},
	}
	profile := &models.StudentProfile{
		SessionID:     "kid-1",
		LanguageLevel: models.LevelL2,
		LearnedWords:  map[string]int{"猫": 30, "苹果": 10},
	}

	data, err := svc.SessionReportPDF(session, profile, svc.SessionStatistics(session))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}
