package oracle

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
)

const policySystemPrompt = `You are an expert in adaptive teaching strategies for young language learners.
Your policies should be:
- Emotionally responsive and empathetic
- Developmentally appropriate
- Engaging and playful
- Specific and actionable
- Focused on maintaining a positive learning experience`

const policyPromptTemplate = `You are an expert in child education and adaptive teaching strategies for Chinese language learning.

Generate a specific teaching policy based on the current context:

Current Student State:
- Emotional State: %s
- Language Level: %s
- Emotion Trend: %s
- Additional Context: %s

Create an adaptive teaching policy that:
1. Responds appropriately to the student's emotional state
2. Matches activities to their language level
3. Considers the emotion trend (improving, stable, declining)
4. Provides specific, actionable guidance
5. Maintains engagement and fun

Format your policy as clear, concise instructions that the teaching agent can follow.

ADAPTIVE TEACHING POLICY:
`

var emotionDescriptions = map[models.EmotionState]string{
	models.EmotionExcited:    "Excited and energetic - high engagement and enthusiasm",
	models.EmotionHappy:      "Happy and positive - good mood and receptive to learning",
	models.EmotionNeutral:    "Neutral - calm but may need engagement boost",
	models.EmotionFrustrated: "Frustrated - struggling and needs support",
	models.EmotionTired:      "Tired - low energy, needs gentle approach",
	models.EmotionSad:        "Sad - needs emotional support and comfort",
}

var levelDescriptionsShort = map[models.LanguageLevel]string{
	models.LevelL1: "L1 (Emerging Awareness) - Just beginning, focus on single words",
	models.LevelL2: "L2 (Basic Expression) - Simple phrases and basic patterns",
	models.LevelL3: "L3 (Sentence Development) - Building complete sentences",
	models.LevelL4: "L4 (Interactive Communication) - Conversational level",
	models.LevelL5: "L5 (Structured & Logical) - Advanced communication",
}

// PolicyGenerator asks the model for a free-form coaching instruction.
type PolicyGenerator struct {
	client *Client
}

// NewPolicyGenerator returns nil when no oracle client is configured.
func NewPolicyGenerator(client *Client) *PolicyGenerator {
	if client == nil {
		return nil
	}
	return &PolicyGenerator{client: client}
}

// Generate produces the coaching text for a turn. Errors are recovered by
// the caller with the deterministic fallback policy.
func (g *PolicyGenerator) Generate(ctx context.Context, emotion models.EmotionState, level models.LanguageLevel, trend models.EmotionTrend, extra map[string]string) (string, error) {
	prompt := fmt.Sprintf(policyPromptTemplate,
		emotionDescriptions[emotion],
		levelDescriptionsShort[level],
		string(trend),
		formatContext(extra),
	)

	raw, err := g.client.complete(ctx, policySystemPrompt, prompt, g.client.temperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func formatContext(extra map[string]string) string {
	if len(extra) == 0 {
		return "No additional context"
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, fmt.Sprintf("%s: %s", k, extra[k]))
	}
	return strings.Join(items, "; ")
}
