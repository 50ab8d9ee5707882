package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

type policyOracleStub struct {
	policy string
	err    error
}

func (s *policyOracleStub) Generate(ctx context.Context, emotion models.EmotionState, level models.LanguageLevel, trend models.EmotionTrend, extra map[string]string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.policy, nil
}

func TestPolicyGenerateUsesOracle(t *testing.T) {
	svc := NewPolicyService(&policyOracleStub{policy: "Play an animal naming game with 猫 and 狗."}, nil, nil)

	policy := svc.Generate(context.Background(), models.EmotionHappy, models.LevelL2, models.TrendStable, nil)
	assert.Equal(t, "Play an animal naming game with 猫 and 狗.", policy)
}

func TestPolicyGenerateFallsBackOnError(t *testing.T) {
	svc := NewPolicyService(&policyOracleStub{err: appErrors.ErrOracleUnavailable}, nil, nil)

	policy := svc.Generate(context.Background(), models.EmotionFrustrated, models.LevelL2, models.TrendDeclining, nil)
	assert.Equal(t, "Provide support and easier content. Focus on L2 level content. Emotion trend: declining.", policy)
}

func TestFallbackPolicyPerEmotion(t *testing.T) {
	cases := map[models.EmotionState]string{
		models.EmotionExcited:    "Match their excitement with engaging activities! Focus on L1 level content. Emotion trend: stable.",
		models.EmotionHappy:      "Keep the positive momentum with fun challenges. Focus on L1 level content. Emotion trend: stable.",
		models.EmotionNeutral:    "Spark interest with interactive content. Focus on L1 level content. Emotion trend: stable.",
		models.EmotionFrustrated: "Provide support and easier content. Focus on L1 level content. Emotion trend: stable.",
		models.EmotionTired:      "Use gentle, low-energy activities. Focus on L1 level content. Emotion trend: stable.",
		models.EmotionSad:        "Offer comfort and emotional support. Focus on L1 level content. Emotion trend: stable.",
	}
	for emotion, want := range cases {
		assert.Equal(t, want, FallbackPolicy(emotion, models.LevelL1, models.TrendStable))
	}
}

func TestFallbackPolicyUnknownEmotionActsNeutral(t *testing.T) {
	policy := FallbackPolicy(models.EmotionState("confident"), models.LevelL3, models.TrendImproving)
	assert.Equal(t, "Spark interest with interactive content. Focus on L3 level content. Emotion trend: improving.", policy)
}
