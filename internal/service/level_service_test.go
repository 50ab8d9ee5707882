package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

type levelOracleStub struct {
	response string
	err      error
	messages []string
}

func (s *levelOracleStub) Evaluate(ctx context.Context, messages []string, levelDescriptions map[models.LanguageLevel]string) (string, error) {
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func userMessages(texts ...string) []models.ChatMessage {
	msgs := make([]models.ChatMessage, 0, len(texts))
	for _, text := range texts {
		msgs = append(msgs, models.ChatMessage{Role: models.RoleUser, Content: text, Timestamp: time.Now()})
	}
	return msgs
}

func TestEstimateTooFewMessages(t *testing.T) {
	oracle := &levelOracleStub{response: "LEVEL: L5\nCONFIDENCE: 0.9"}
	svc := NewLevelService(oracle, nil, nil)

	estimate := svc.Estimate(context.Background(), userMessages("你好", "hello"))
	assert.Equal(t, models.LevelL1, estimate.Level)
	assert.Equal(t, 0.5, estimate.Confidence)
	assert.Empty(t, oracle.messages, "oracle must not be consulted below the floor")
}

func TestEstimateParsesOracleResponse(t *testing.T) {
	oracle := &levelOracleStub{response: "LEVEL: L3\nCONFIDENCE: 0.85\nREASONING: full sentences with mixed vocabulary"}
	svc := NewLevelService(oracle, nil, nil)

	estimate := svc.Estimate(context.Background(), userMessages("我喜欢猫", "我有一只狗", "今天很好"))
	assert.Equal(t, models.LevelL3, estimate.Level)
	assert.Equal(t, 0.85, estimate.Confidence)
}

func TestEstimateRejectsMalformedOracleOutput(t *testing.T) {
	cases := []string{
		"I think the student is around level three.",
		"LEVEL: L7\nCONFIDENCE: 0.8",
		"LEVEL: L3\nCONFIDENCE: 1.4",
		"LEVEL: L3",
		"CONFIDENCE: 0.8",
	}
	for _, response := range cases {
		oracle := &levelOracleStub{response: response}
		svc := NewLevelService(oracle, nil, nil)
		estimate := svc.Estimate(context.Background(), userMessages("hi", "hello there", "good morning"))
		// Three short English messages land on L1 via the heuristic.
		assert.Equal(t, models.LevelL1, estimate.Level, "response: %q", response)
		assert.Equal(t, 0.7, estimate.Confidence, "response: %q", response)
	}
}

func TestEstimateFallsBackOnOracleError(t *testing.T) {
	oracle := &levelOracleStub{err: appErrors.ErrOracleUnavailable}
	svc := NewLevelService(oracle, nil, nil)

	estimate := svc.Estimate(context.Background(), userMessages("hi", "hello", "hey"))
	assert.Equal(t, models.LevelL1, estimate.Level)
	assert.Equal(t, 0.7, estimate.Confidence)
}

func TestEstimateWindowsLastTenUserMessages(t *testing.T) {
	oracle := &levelOracleStub{response: "LEVEL: L2\nCONFIDENCE: 0.8"}
	svc := NewLevelService(oracle, nil, nil)

	texts := make([]string, 14)
	for i := range texts {
		texts[i] = "message"
	}
	svc.Estimate(context.Background(), userMessages(texts...))
	assert.Len(t, oracle.messages, 10)
}

func TestHeuristicThresholds(t *testing.T) {
	// Twelve Chinese characters and sixteen space-separated tokens per message.
	rich := "我今天在学校学了很多东西 and I can tell you about it in great detail because it was so fun"
	estimate := heuristicEstimate([]string{rich, rich, rich})
	assert.Equal(t, models.LevelL5, estimate.Level)
	assert.Equal(t, 0.7, estimate.Confidence)

	// One Chinese character, seven tokens.
	basic := "好 I want to play a game"
	estimate = heuristicEstimate([]string{basic, basic, basic})
	assert.Equal(t, models.LevelL2, estimate.Level)

	// No Chinese at all.
	estimate = heuristicEstimate([]string{"hello", "hi", "hey"})
	assert.Equal(t, models.LevelL1, estimate.Level)
}

func TestHeuristicIgnoresAssistantMessages(t *testing.T) {
	svc := NewLevelService(nil, nil, nil)
	msgs := []models.ChatMessage{
		{Role: models.RoleAssistant, Content: "我今天在学校学了很多东西跟朋友们一起玩 with many many extra tokens to inflate the averages a lot here"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleUser, Content: "hey"},
	}
	estimate := svc.Estimate(context.Background(), msgs)
	assert.Equal(t, models.LevelL1, estimate.Level)
}
