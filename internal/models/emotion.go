package models

import "fmt"

// EmotionState is the closed set of emotions the engine tracks per turn.
type EmotionState string

const (
	EmotionExcited    EmotionState = "excited"
	EmotionHappy      EmotionState = "happy"
	EmotionNeutral    EmotionState = "neutral"
	EmotionFrustrated EmotionState = "frustrated"
	EmotionTired      EmotionState = "tired"
	EmotionSad        EmotionState = "sad"
)

// emotionOrdinals maps each emotion to the value used for trend arithmetic.
// The mapping is a behavioral contract: changing it would make newly built
// trajectories incompatible with previously stored ones.
var emotionOrdinals = map[EmotionState]int{
	EmotionSad:        0,
	EmotionTired:      1,
	EmotionFrustrated: 2,
	EmotionNeutral:    3,
	EmotionHappy:      4,
	EmotionExcited:    5,
}

// AllEmotionStates returns every valid emotion in ordinal order.
func AllEmotionStates() []EmotionState {
	return []EmotionState{
		EmotionSad, EmotionTired, EmotionFrustrated,
		EmotionNeutral, EmotionHappy, EmotionExcited,
	}
}

// ParseEmotionState validates a raw label.
func ParseEmotionState(raw string) (EmotionState, error) {
	state := EmotionState(raw)
	if !state.Valid() {
		return "", fmt.Errorf("unknown emotion label %q", raw)
	}
	return state, nil
}

// Valid reports whether the state belongs to the closed set.
func (e EmotionState) Valid() bool {
	_, ok := emotionOrdinals[e]
	return ok
}

// Ordinal returns the numeric value used for trend calculation.
func (e EmotionState) Ordinal() int {
	return emotionOrdinals[e]
}

// Positive reports whether the emotion counts toward level advancement.
func (e EmotionState) Positive() bool {
	return e == EmotionHappy || e == EmotionExcited
}

// NeedsSupport reports whether the emotion alone warrants intervention.
func (e EmotionState) NeedsSupport() bool {
	return e == EmotionFrustrated || e == EmotionSad || e == EmotionTired
}

// EmotionTrend is the short-window direction of a student's emotional state.
type EmotionTrend string

const (
	TrendImproving EmotionTrend = "improving"
	TrendStable    EmotionTrend = "stable"
	TrendDeclining EmotionTrend = "declining"
)
