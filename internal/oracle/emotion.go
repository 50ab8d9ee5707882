package oracle

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

const emotionSystemPrompt = `You classify the emotional state of a young language learner from a single chat message.
Answer with exactly one word from this list: excited, happy, neutral, frustrated, tired, sad.`

// EmotionClassifier asks the model for a single emotion label.
type EmotionClassifier struct {
	client *Client
}

// NewEmotionClassifier returns nil when no oracle client is configured.
func NewEmotionClassifier(client *Client) *EmotionClassifier {
	if client == nil {
		return nil
	}
	return &EmotionClassifier{client: client}
}

// Classify returns the detected emotion or an oracle error the caller
// recovers from via the keyword fallback.
func (c *EmotionClassifier) Classify(ctx context.Context, text string) (models.EmotionState, error) {
	raw, err := c.client.complete(ctx, emotionSystemPrompt, fmt.Sprintf("Student says: %s", text), 0)
	if err != nil {
		return "", err
	}

	label := strings.ToLower(strings.TrimSpace(raw))
	// Models occasionally add punctuation or a sentence; keep the first word.
	if fields := strings.Fields(label); len(fields) > 0 {
		label = strings.Trim(fields[0], ".!,")
	}
	state, parseErr := models.ParseEmotionState(label)
	if parseErr != nil {
		c.client.logger.Warn("emotion oracle returned unknown label",
			zap.String("label", truncate(label, 40)))
		return "", appErrors.Wrap(parseErr, appErrors.ErrOracleUnavailable.Code, appErrors.ErrOracleUnavailable.Status, "unparseable emotion label")
	}
	return state, nil
}

// keywordTable drives the deterministic fallback classifier. Scores are a
// plain keyword hit count; the highest scoring emotion wins.
var keywordTable = map[models.EmotionState][]string{
	models.EmotionExcited:    {"wow", "awesome", "cool", "amazing", "yay", "fun", "great", "love", "!"},
	models.EmotionHappy:      {"happy", "good", "nice", "like", "yes", "okay", "thanks"},
	models.EmotionFrustrated: {"hard", "difficult", "can't", "don't know", "confused", "no", "wrong"},
	models.EmotionTired:      {"tired", "sleepy", "boring", "enough", "stop", "later"},
	models.EmotionSad:        {"sad", "miss", "lonely", "cry", "hurt"},
}

// keywordOrder makes tie-breaking deterministic across runs.
var keywordOrder = []models.EmotionState{
	models.EmotionExcited, models.EmotionHappy, models.EmotionFrustrated,
	models.EmotionTired, models.EmotionSad,
}

// KeywordClassifier is the rule-based fallback used when no model oracle is
// available or the oracle fails for a turn.
type KeywordClassifier struct{}

// Classify scores keyword hits and returns neutral when nothing matches.
func (KeywordClassifier) Classify(text string) models.EmotionState {
	lower := strings.ToLower(text)

	best := models.EmotionNeutral
	bestScore := 0
	for _, emotion := range keywordOrder {
		score := 0
		for _, keyword := range keywordTable[emotion] {
			if strings.Contains(lower, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = emotion
			bestScore = score
		}
	}
	return best
}
