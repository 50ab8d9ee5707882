package models

import "time"

// TrajectoryStep is one (State, Action, Reward) tuple emitted per user turn.
type TrajectoryStep struct {
	State     string                 `json:"state"`
	Action    string                 `json:"action"`
	Reward    EmotionState           `json:"reward"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Metadata keys attached to every step.
const (
	StepMetaMessageIndex = "message_index"
	StepMetaLevel        = "language_level"
	StepMetaTrend        = "emotion_trend"
	StepMetaSessionID    = "session_id"
)

// TrajectoryStatistics is a pure aggregate over an ordered step list.
type TrajectoryStatistics struct {
	TotalSteps             int                `json:"total_steps"`
	EmotionDistribution    map[string]float64 `json:"emotion_distribution"`
	EmotionCounts          map[string]int     `json:"emotion_counts"`
	PositiveEmotionRatio   float64            `json:"positive_emotion_ratio"`
	SessionDurationMinutes float64            `json:"session_duration_minutes"`
	StartTime              time.Time          `json:"start_time"`
	EndTime                time.Time          `json:"end_time"`
}
