package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
)

const levelSystemPrompt = `You are an expert in child language development and Chinese language education.
You assess a young learner's Chinese proficiency from their chat messages.`

const levelPromptTemplate = `You are an expert in Chinese language education for children.

Evaluate the student's Chinese language level based on their recent messages.

Level descriptions:
%s

Recent student messages:
%s

Analyze vocabulary range, sentence structure, mixing of Chinese and English, and expressive ability.

Respond in exactly this format:
LEVEL: <one of L1, L2, L3, L4, L5>
CONFIDENCE: <a number between 0.0 and 1.0>
REASONING: <one or two sentences>
`

// LevelEvaluator asks the model for a level assessment over a window of
// recent student messages. It returns the raw completion text; the caller
// parses the LEVEL and CONFIDENCE lines and falls back to the length-based
// heuristic when the output is unusable.
type LevelEvaluator struct {
	client *Client
}

// NewLevelEvaluator returns nil when no oracle client is configured.
func NewLevelEvaluator(client *Client) *LevelEvaluator {
	if client == nil {
		return nil
	}
	return &LevelEvaluator{client: client}
}

// Evaluate formats the message window and level rubric into the assessment
// prompt and returns the model's raw response.
func (e *LevelEvaluator) Evaluate(ctx context.Context, messages []string, levelDescriptions map[models.LanguageLevel]string) (string, error) {
	var rubric strings.Builder
	for _, level := range models.AllLanguageLevels() {
		if desc, ok := levelDescriptions[level]; ok {
			fmt.Fprintf(&rubric, "- %s: %s\n", level, desc)
		}
	}

	var window strings.Builder
	for i, msg := range messages {
		fmt.Fprintf(&window, "Message %d: %s\n", i+1, msg)
	}

	prompt := fmt.Sprintf(levelPromptTemplate, strings.TrimRight(rubric.String(), "\n"), strings.TrimRight(window.String(), "\n"))
	return e.client.complete(ctx, levelSystemPrompt, prompt, 0)
}
