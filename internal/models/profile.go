package models

import (
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

// MasteryCap is the saturation point for per-word mastery.
const MasteryCap = 100

// DefaultMasteryIncrement is applied when a word is explicitly practiced.
// Words merely used inside assistant replies are credited less (see
// AssistantMasteryIncrement).
const (
	DefaultMasteryIncrement   = 10
	AssistantMasteryIncrement = 5
)

// StudentProfile aggregates everything persisted per learner session id.
type StudentProfile struct {
	SessionID            string         `json:"session_id"`
	LanguageLevel        LanguageLevel  `json:"language_level"`
	EmotionHistory       []EmotionState `json:"emotion_history"`
	LearnedWords         map[string]int `json:"learned_words"`
	SessionCount         int            `json:"session_count"`
	TotalInteractionTime float64        `json:"total_interaction_time"`
	PreferredTopics      []string       `json:"preferred_topics"`
}

// NewStudentProfile creates an empty profile at the entry level.
func NewStudentProfile(sessionID string) *StudentProfile {
	return &StudentProfile{
		SessionID:     sessionID,
		LanguageLevel: LevelL1,
		LearnedWords:  make(map[string]int),
	}
}

// RecordWordUsage raises the mastery counter for a word, saturating at 100.
// Negative increments are rejected rather than clamped.
func (p *StudentProfile) RecordWordUsage(word string, increment int) error {
	if increment < 0 {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "mastery increment must be non-negative")
	}
	if p.LearnedWords == nil {
		p.LearnedWords = make(map[string]int)
	}
	next := p.LearnedWords[word] + increment
	if next > MasteryCap {
		next = MasteryCap
	}
	p.LearnedWords[word] = next
	return nil
}

// WordMastery returns the current mastery for a word, 0 when unseen.
func (p *StudentProfile) WordMastery(word string) int {
	return p.LearnedWords[word]
}

// AppendEmotion records a detected emotion in the append-only history.
func (p *StudentProfile) AppendEmotion(state EmotionState) {
	p.EmotionHistory = append(p.EmotionHistory, state)
}
