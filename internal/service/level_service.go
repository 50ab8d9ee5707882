package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
)

// levelWindowSize caps how many recent user messages feed an assessment.
const levelWindowSize = 10

// minAssessableMessages is the floor below which no assessment runs and the
// entry level is returned with low confidence.
const minAssessableMessages = 3

const (
	heuristicConfidence = 0.7
	floorConfidence     = 0.5
)

// LevelDescriptions is the rubric shared by the model oracle prompt and the
// progress report.
var LevelDescriptions = map[models.LanguageLevel]string{
	models.LevelL1: "Emerging Awareness: repeats single familiar words, mostly responds in English, needs heavy scaffolding",
	models.LevelL2: "Basic Expression: produces short memorized phrases, mixes Chinese words into English sentences",
	models.LevelL3: "Sentence Development: forms simple complete sentences, growing vocabulary, occasional grammar slips",
	models.LevelL4: "Interactive Communication: sustains short conversations, asks and answers questions, self-corrects",
	models.LevelL5: "Structured & Logical Speech: expresses opinions and reasons, connects sentences logically, broad vocabulary",
}

// LevelFeedback is the encouragement line attached to a level in reports.
var LevelFeedback = map[models.LanguageLevel]string{
	models.LevelL1: "Great start! Keep listening and repeating new words.",
	models.LevelL2: "Nice progress! Try putting your words into short phrases.",
	models.LevelL3: "Well done! Your sentences are really coming together.",
	models.LevelL4: "Impressive! You can hold real conversations now.",
	models.LevelL5: "Outstanding! You express complex ideas with confidence.",
}

// LevelOracle is the model-backed assessment contract. It returns the raw
// completion; the service parses it.
type LevelOracle interface {
	Evaluate(ctx context.Context, messages []string, levelDescriptions map[models.LanguageLevel]string) (string, error)
}

// LevelEstimate is the outcome of one assessment.
type LevelEstimate struct {
	Level      models.LanguageLevel `json:"level"`
	Confidence float64              `json:"confidence"`
}

// LevelService estimates a student's proficiency from their recent
// messages, preferring the model oracle and falling back to a message
// length heuristic.
type LevelService struct {
	oracle  LevelOracle
	metrics oracleFallbackRecorder
	logger  *zap.Logger
}

// NewLevelService constructs a LevelService. A nil oracle means the
// heuristic handles every assessment.
func NewLevelService(levelOracle LevelOracle, metrics oracleFallbackRecorder, logger *zap.Logger) *LevelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LevelService{
		oracle:  levelOracle,
		metrics: metrics,
		logger:  logger,
	}
}

// Estimate assesses the student from the user turns of a transcript.
// Fewer than three user messages yields the entry level at low confidence
// without consulting the oracle or the heuristic.
func (s *LevelService) Estimate(ctx context.Context, messages []models.ChatMessage) LevelEstimate {
	texts := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleUser {
			texts = append(texts, msg.Content)
		}
	}

	if len(texts) < minAssessableMessages {
		return LevelEstimate{Level: models.LevelL1, Confidence: floorConfidence}
	}
	if len(texts) > levelWindowSize {
		texts = texts[len(texts)-levelWindowSize:]
	}

	if s.oracle != nil {
		raw, err := s.oracle.Evaluate(ctx, texts, LevelDescriptions)
		if err == nil {
			if estimate, ok := parseLevelResponse(raw); ok {
				return estimate
			}
			s.logger.Warn("level oracle response unparseable, using heuristic",
				zap.Int("length", len(raw)))
		} else {
			s.logger.Warn("level oracle failed, using heuristic", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordOracleFallback("level")
		}
	}

	return heuristicEstimate(texts)
}

// parseLevelResponse extracts the LEVEL and CONFIDENCE lines. Both must be
// present and in range or the response is rejected.
func parseLevelResponse(raw string) (LevelEstimate, bool) {
	var (
		level         models.LanguageLevel
		confidence    float64
		hasLevel      bool
		hasConfidence bool
	)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "LEVEL:"):
			value := strings.TrimSpace(strings.TrimPrefix(line, "LEVEL:"))
			parsed, err := models.ParseLanguageLevel(strings.ToUpper(value))
			if err != nil {
				return LevelEstimate{}, false
			}
			level = parsed
			hasLevel = true
		case strings.HasPrefix(line, "CONFIDENCE:"):
			value := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil || parsed < 0 || parsed > 1 {
				return LevelEstimate{}, false
			}
			confidence = parsed
			hasConfidence = true
		}
	}
	if !hasLevel || !hasConfidence {
		return LevelEstimate{}, false
	}
	return LevelEstimate{Level: level, Confidence: confidence}, true
}

// heuristicEstimate maps average Chinese character count and average word
// count per message onto the scale, checking thresholds top-down.
func heuristicEstimate(texts []string) LevelEstimate {
	totalChinese := 0
	totalWords := 0
	for _, text := range texts {
		totalChinese += countHanRunes(text)
		totalWords += len(strings.Fields(text))
	}
	n := float64(len(texts))
	avgChinese := float64(totalChinese) / n
	avgWords := float64(totalWords) / n

	level := models.LevelL1
	switch {
	case avgChinese >= 8 && avgWords >= 15:
		level = models.LevelL5
	case avgChinese >= 5 && avgWords >= 12:
		level = models.LevelL4
	case avgChinese >= 3 && avgWords >= 10:
		level = models.LevelL3
	case avgChinese >= 1 && avgWords >= 7:
		level = models.LevelL2
	}
	return LevelEstimate{Level: level, Confidence: heuristicConfidence}
}

// countHanRunes counts CJK Unified Ideographs (U+4E00..U+9FFF). The fixed
// range keeps heuristic results stable across Unicode table updates.
func countHanRunes(text string) int {
	count := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			count++
		}
	}
	return count
}
