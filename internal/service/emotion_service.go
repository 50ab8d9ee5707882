package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	"github.com/noah-isme/mandarin-tutor-api/internal/oracle"
)

// trendWindow is the number of most recent emotions considered for trend
// calculation; trendRecent is the slice of that window treated as "recent".
const (
	trendWindow = 5
	trendRecent = 3
)

// trendThreshold is the minimum average-ordinal shift before the trend
// leaves stable.
const trendThreshold = 0.5

// EmotionOracle is the model-backed classifier contract.
type EmotionOracle interface {
	Classify(ctx context.Context, text string) (models.EmotionState, error)
}

type oracleFallbackRecorder interface {
	RecordOracleFallback(oracleName string)
}

// EmotionService classifies per-turn emotions and derives the short-window
// trend. Classification never fails: when the model oracle is absent or
// errors, the keyword fallback answers instead.
type EmotionService struct {
	oracle   EmotionOracle
	fallback oracle.KeywordClassifier
	metrics  oracleFallbackRecorder
	logger   *zap.Logger
}

// NewEmotionService constructs an EmotionService. A nil oracle means the
// keyword fallback handles every turn.
func NewEmotionService(emotionOracle EmotionOracle, metrics oracleFallbackRecorder, logger *zap.Logger) *EmotionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmotionService{
		oracle:  emotionOracle,
		metrics: metrics,
		logger:  logger,
	}
}

// Classify returns the emotion for a single student message.
func (s *EmotionService) Classify(ctx context.Context, text string) models.EmotionState {
	if s.oracle != nil {
		state, err := s.oracle.Classify(ctx, text)
		if err == nil {
			return state
		}
		s.logger.Warn("emotion oracle failed, using keyword fallback", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordOracleFallback("emotion")
	}
	return s.fallback.Classify(text)
}

// CalculateTrend derives the direction of the last few emotions. Fewer than
// three entries is always stable. The window is the last five entries; the
// last three of the window are compared against the average of the entries
// before them (or the window's first entry when the window holds exactly
// three).
func (s *EmotionService) CalculateTrend(history []models.EmotionState) models.EmotionTrend {
	if len(history) < trendRecent {
		return models.TrendStable
	}

	window := history
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}

	recent := window[len(window)-trendRecent:]
	recentSum := 0
	for _, state := range recent {
		recentSum += state.Ordinal()
	}
	recentAvg := float64(recentSum) / float64(len(recent))

	var olderAvg float64
	if older := window[:len(window)-trendRecent]; len(older) > 0 {
		olderSum := 0
		for _, state := range older {
			olderSum += state.Ordinal()
		}
		olderAvg = float64(olderSum) / float64(len(older))
	} else {
		olderAvg = float64(window[0].Ordinal())
	}

	switch {
	case recentAvg > olderAvg+trendThreshold:
		return models.TrendImproving
	case recentAvg < olderAvg-trendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// NeedsIntervention reports whether the tutor should shift into support
// mode: either the current emotion is a distress state or the trend is
// declining.
func (s *EmotionService) NeedsIntervention(current models.EmotionState, trend models.EmotionTrend) bool {
	return current.NeedsSupport() || trend == models.TrendDeclining
}
