package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
)

// PolicyOracle is the model-backed policy generation contract.
type PolicyOracle interface {
	Generate(ctx context.Context, emotion models.EmotionState, level models.LanguageLevel, trend models.EmotionTrend, extra map[string]string) (string, error)
}

// fallbackPolicyLeads are the fixed per-emotion openings of the
// deterministic policy. Stored trajectories embed these strings, so they
// must not change.
var fallbackPolicyLeads = map[models.EmotionState]string{
	models.EmotionExcited:    "Match their excitement with engaging activities!",
	models.EmotionHappy:      "Keep the positive momentum with fun challenges.",
	models.EmotionNeutral:    "Spark interest with interactive content.",
	models.EmotionFrustrated: "Provide support and easier content.",
	models.EmotionTired:      "Use gentle, low-energy activities.",
	models.EmotionSad:        "Offer comfort and emotional support.",
}

// PolicyService produces the teaching action for a turn, preferring the
// model oracle and falling back to a deterministic template.
type PolicyService struct {
	oracle  PolicyOracle
	metrics oracleFallbackRecorder
	logger  *zap.Logger
}

// NewPolicyService constructs a PolicyService. A nil oracle means the
// deterministic fallback answers every turn.
func NewPolicyService(policyOracle PolicyOracle, metrics oracleFallbackRecorder, logger *zap.Logger) *PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{
		oracle:  policyOracle,
		metrics: metrics,
		logger:  logger,
	}
}

// Generate returns an adaptive teaching policy. It never fails.
func (s *PolicyService) Generate(ctx context.Context, emotion models.EmotionState, level models.LanguageLevel, trend models.EmotionTrend, extra map[string]string) string {
	if s.oracle != nil {
		policy, err := s.oracle.Generate(ctx, emotion, level, trend, extra)
		if err == nil && policy != "" {
			return policy
		}
		if err != nil {
			s.logger.Warn("policy oracle failed, using fallback", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.RecordOracleFallback("policy")
	}
	return FallbackPolicy(emotion, level, trend)
}

// FallbackPolicy composes the deterministic policy string for a turn.
func FallbackPolicy(emotion models.EmotionState, level models.LanguageLevel, trend models.EmotionTrend) string {
	lead, ok := fallbackPolicyLeads[emotion]
	if !ok {
		lead = fallbackPolicyLeads[models.EmotionNeutral]
	}
	return fmt.Sprintf("%s Focus on %s level content. Emotion trend: %s.", lead, level, trend)
}
