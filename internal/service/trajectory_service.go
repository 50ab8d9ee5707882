package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
)

// levelReviewInterval is how many processed user turns pass between level
// advancement checks during trajectory generation.
const levelReviewInterval = 5

// advancePositiveMin is the minimum count of positive emotions among the
// last five before a level advance.
const advancePositiveMin = 4

type trajectoryEmotionClassifier interface {
	Classify(ctx context.Context, text string) models.EmotionState
	CalculateTrend(history []models.EmotionState) models.EmotionTrend
}

type trajectoryPolicyGenerator interface {
	Generate(ctx context.Context, emotion models.EmotionState, level models.LanguageLevel, trend models.EmotionTrend, extra map[string]string) string
}

type turnRecorder interface {
	RecordTurnProcessed()
	RecordTrajectoryBuilt(steps int)
}

// TrajectoryService converts chat sessions into (State, Action, Reward)
// step sequences for downstream policy learning.
type TrajectoryService struct {
	emotions trajectoryEmotionClassifier
	policies trajectoryPolicyGenerator
	metrics  turnRecorder
	logger   *zap.Logger
}

// NewTrajectoryService constructs a TrajectoryService.
func NewTrajectoryService(emotions trajectoryEmotionClassifier, policies trajectoryPolicyGenerator, metrics turnRecorder, logger *zap.Logger) *TrajectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrajectoryService{
		emotions: emotions,
		policies: policies,
		metrics:  metrics,
		logger:   logger,
	}
}

// Generate walks a session's user turns in order and emits one step per
// turn. The emotion trend is recomputed at every step from the history
// accumulated so far; a turn never sees later emotions. The student level
// starts at the session's recorded level and is reviewed every fifth
// processed turn. A turn that panics during processing is logged and
// skipped without advancing the emotion history or the turn counter.
func (s *TrajectoryService) Generate(ctx context.Context, session *models.ChatSession) []models.TrajectoryStep {
	level := session.StudentLevel
	if !level.Valid() {
		level = models.LevelL1
	}

	userTurns := session.UserMessages()
	steps := make([]models.TrajectoryStep, 0, len(userTurns))
	var emotionHistory []models.EmotionState
	processed := 0

	for idx, msg := range userTurns {
		step, emotion, ok := s.buildStep(ctx, session, msg, idx, len(userTurns), level, emotionHistory)
		if !ok {
			continue
		}

		emotionHistory = append(emotionHistory, emotion)
		steps = append(steps, step)
		processed++
		if s.metrics != nil {
			s.metrics.RecordTurnProcessed()
		}

		if processed%levelReviewInterval == 0 {
			if next, advanced := reviewLevel(level, emotionHistory); advanced {
				s.logger.Info("student level advanced during trajectory build",
					zap.String("session_id", session.SessionID),
					zap.String("from", string(level)),
					zap.String("to", string(next)))
				level = next
			}
		}
	}

	if s.metrics != nil {
		s.metrics.RecordTrajectoryBuilt(len(steps))
	}
	return steps
}

// buildStep processes one user turn. idx is the turn's ordinal among the
// session's user turns, which is also the persisted message_index. A panic
// inside classification or policy generation is converted into a skipped
// turn.
func (s *TrajectoryService) buildStep(ctx context.Context, session *models.ChatSession, msg models.ChatMessage, idx, totalTurns int, level models.LanguageLevel, history []models.EmotionState) (step models.TrajectoryStep, emotion models.EmotionState, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("turn processing failed, skipping",
				zap.String("session_id", session.SessionID),
				zap.Int("message_index", idx),
				zap.Any("panic", r))
			ok = false
		}
	}()

	if msg.EmotionDetected != nil && msg.EmotionDetected.Valid() {
		emotion = *msg.EmotionDetected
	} else {
		emotion = s.emotions.Classify(ctx, msg.Content)
	}

	trend := s.emotions.CalculateTrend(append(append([]models.EmotionState{}, history...), emotion))

	extra := map[string]string{
		"session_progress":  fmt.Sprintf("%d/%d", idx+1, totalTurns),
		"previous_emotions": formatRecentEmotions(history),
		"turn_index":        fmt.Sprintf("%d", idx),
	}
	action := s.policies.Generate(ctx, emotion, level, trend, extra)

	step = models.TrajectoryStep{
		State:     msg.Content,
		Action:    action,
		Reward:    emotion,
		Timestamp: msg.Timestamp,
		Metadata: map[string]interface{}{
			models.StepMetaMessageIndex: idx,
			models.StepMetaLevel:        string(level),
			models.StepMetaTrend:        string(trend),
			models.StepMetaSessionID:    session.SessionID,
		},
	}
	return step, emotion, true
}

// reviewLevel advances one level when at least four of the last five
// emotions are positive, clamped at the top of the scale.
func reviewLevel(level models.LanguageLevel, history []models.EmotionState) (models.LanguageLevel, bool) {
	if level.Max() || len(history) < levelReviewInterval {
		return level, false
	}
	recent := history[len(history)-levelReviewInterval:]
	positives := 0
	for _, state := range recent {
		if state.Positive() {
			positives++
		}
	}
	if positives < advancePositiveMin {
		return level, false
	}
	return level.Next(), true
}

func formatRecentEmotions(history []models.EmotionState) string {
	if len(history) == 0 {
		return "none"
	}
	start := 0
	if len(history) > 3 {
		start = len(history) - 3
	}
	out := ""
	for i, state := range history[start:] {
		if i > 0 {
			out += ", "
		}
		out += string(state)
	}
	return out
}

// Statistics aggregates an ordered step list. Counts include every valid
// emotion, zero or not, so distributions are directly comparable across
// trajectories.
func (s *TrajectoryService) Statistics(steps []models.TrajectoryStep) models.TrajectoryStatistics {
	return aggregateStatistics(steps)
}

func aggregateStatistics(steps []models.TrajectoryStep) models.TrajectoryStatistics {
	stats := models.TrajectoryStatistics{
		TotalSteps:          len(steps),
		EmotionCounts:       make(map[string]int, 6),
		EmotionDistribution: make(map[string]float64, 6),
	}
	for _, state := range models.AllEmotionStates() {
		stats.EmotionCounts[string(state)] = 0
		stats.EmotionDistribution[string(state)] = 0
	}
	if len(steps) == 0 {
		return stats
	}

	positives := 0
	for _, step := range steps {
		stats.EmotionCounts[string(step.Reward)]++
		if step.Reward.Positive() {
			positives++
		}
	}
	total := float64(len(steps))
	for label, count := range stats.EmotionCounts {
		stats.EmotionDistribution[label] = float64(count) / total
	}
	stats.PositiveEmotionRatio = float64(positives) / total
	stats.StartTime = steps[0].Timestamp
	stats.EndTime = steps[len(steps)-1].Timestamp
	stats.SessionDurationMinutes = stats.EndTime.Sub(stats.StartTime).Minutes()
	return stats
}
