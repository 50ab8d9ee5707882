package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

type emotionOracleStub struct {
	state models.EmotionState
	err   error
	calls int
}

func (s *emotionOracleStub) Classify(ctx context.Context, text string) (models.EmotionState, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.state, nil
}

func TestEmotionClassifyUsesOracle(t *testing.T) {
	oracle := &emotionOracleStub{state: models.EmotionExcited}
	svc := NewEmotionService(oracle, nil, nil)

	state := svc.Classify(context.Background(), "wow this is amazing")
	assert.Equal(t, models.EmotionExcited, state)
	assert.Equal(t, 1, oracle.calls)
}

func TestEmotionClassifyFallsBackOnOracleError(t *testing.T) {
	oracle := &emotionOracleStub{err: appErrors.ErrOracleUnavailable}
	svc := NewEmotionService(oracle, nil, nil)

	state := svc.Classify(context.Background(), "this is too hard, I'm confused")
	assert.Equal(t, models.EmotionFrustrated, state)
}

func TestEmotionClassifyWithoutOracleUsesKeywords(t *testing.T) {
	svc := NewEmotionService(nil, nil, nil)

	assert.Equal(t, models.EmotionExcited, svc.Classify(context.Background(), "Wow, so cool!"))
	assert.Equal(t, models.EmotionTired, svc.Classify(context.Background(), "I'm sleepy, can we stop"))
	assert.Equal(t, models.EmotionSad, svc.Classify(context.Background(), "I miss my mom"))
	assert.Equal(t, models.EmotionNeutral, svc.Classify(context.Background(), "the weather today"))
}

func TestCalculateTrendShortHistoryIsStable(t *testing.T) {
	svc := NewEmotionService(nil, nil, nil)

	assert.Equal(t, models.TrendStable, svc.CalculateTrend(nil))
	assert.Equal(t, models.TrendStable, svc.CalculateTrend([]models.EmotionState{models.EmotionSad}))
	assert.Equal(t, models.TrendStable, svc.CalculateTrend([]models.EmotionState{models.EmotionSad, models.EmotionSad}))
}

func TestCalculateTrendImproving(t *testing.T) {
	svc := NewEmotionService(nil, nil, nil)

	history := []models.EmotionState{
		models.EmotionSad, models.EmotionSad, models.EmotionSad,
		models.EmotionExcited, models.EmotionExcited,
	}
	// Recent three average (0+5+5)/3 ≈ 3.33 against older average 0.
	assert.Equal(t, models.TrendImproving, svc.CalculateTrend(history))
}

func TestCalculateTrendDeclining(t *testing.T) {
	svc := NewEmotionService(nil, nil, nil)

	history := []models.EmotionState{
		models.EmotionExcited, models.EmotionHappy,
		models.EmotionFrustrated, models.EmotionSad, models.EmotionTired,
	}
	assert.Equal(t, models.TrendDeclining, svc.CalculateTrend(history))
}

func TestCalculateTrendStableWithinThreshold(t *testing.T) {
	svc := NewEmotionService(nil, nil, nil)

	history := []models.EmotionState{
		models.EmotionNeutral, models.EmotionNeutral,
		models.EmotionNeutral, models.EmotionNeutral, models.EmotionHappy,
	}
	// Recent average 3.33 vs older 3.0: inside the 0.5 band.
	assert.Equal(t, models.TrendStable, svc.CalculateTrend(history))
}

func TestCalculateTrendUsesOnlyLastFive(t *testing.T) {
	svc := NewEmotionService(nil, nil, nil)

	history := []models.EmotionState{
		models.EmotionExcited, models.EmotionExcited, models.EmotionExcited,
		models.EmotionSad, models.EmotionSad,
		models.EmotionExcited, models.EmotionExcited, models.EmotionExcited,
	}
	// Window is the last five: [sad, sad, excited, excited, excited].
	assert.Equal(t, models.TrendImproving, svc.CalculateTrend(history))
}

func TestCalculateTrendExactlyThree(t *testing.T) {
	svc := NewEmotionService(nil, nil, nil)

	// With exactly three entries the baseline is the first entry.
	history := []models.EmotionState{models.EmotionSad, models.EmotionHappy, models.EmotionExcited}
	assert.Equal(t, models.TrendImproving, svc.CalculateTrend(history))

	history = []models.EmotionState{models.EmotionExcited, models.EmotionSad, models.EmotionSad}
	assert.Equal(t, models.TrendDeclining, svc.CalculateTrend(history))
}

func TestNeedsIntervention(t *testing.T) {
	svc := NewEmotionService(nil, nil, nil)

	assert.True(t, svc.NeedsIntervention(models.EmotionFrustrated, models.TrendStable))
	assert.True(t, svc.NeedsIntervention(models.EmotionSad, models.TrendImproving))
	assert.True(t, svc.NeedsIntervention(models.EmotionTired, models.TrendStable))
	assert.True(t, svc.NeedsIntervention(models.EmotionHappy, models.TrendDeclining))
	assert.False(t, svc.NeedsIntervention(models.EmotionHappy, models.TrendStable))
	assert.False(t, svc.NeedsIntervention(models.EmotionNeutral, models.TrendImproving))
}
