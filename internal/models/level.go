package models

import "fmt"

// LanguageLevel is the ordered proficiency scale L1 < L2 < L3 < L4 < L5.
type LanguageLevel string

const (
	LevelL1 LanguageLevel = "L1" // Emerging Awareness
	LevelL2 LanguageLevel = "L2" // Basic Expression
	LevelL3 LanguageLevel = "L3" // Sentence Development
	LevelL4 LanguageLevel = "L4" // Interactive Communication
	LevelL5 LanguageLevel = "L5" // Structured & Logical Speech
)

var levelOrder = []LanguageLevel{LevelL1, LevelL2, LevelL3, LevelL4, LevelL5}

var levelOrdinals = map[LanguageLevel]int{
	LevelL1: 0, LevelL2: 1, LevelL3: 2, LevelL4: 3, LevelL5: 4,
}

// AllLanguageLevels returns the scale from lowest to highest.
func AllLanguageLevels() []LanguageLevel {
	return levelOrder
}

// ParseLanguageLevel validates a raw level label.
func ParseLanguageLevel(raw string) (LanguageLevel, error) {
	level := LanguageLevel(raw)
	if !level.Valid() {
		return "", fmt.Errorf("unknown language level %q", raw)
	}
	return level, nil
}

// Valid reports whether the level belongs to the scale.
func (l LanguageLevel) Valid() bool {
	_, ok := levelOrdinals[l]
	return ok
}

// Ordinal returns the zero-based position on the scale.
func (l LanguageLevel) Ordinal() int {
	return levelOrdinals[l]
}

// Next returns the level one step up, clamped at L5.
func (l LanguageLevel) Next() LanguageLevel {
	idx := levelOrdinals[l] + 1
	if idx >= len(levelOrder) {
		return LevelL5
	}
	return levelOrder[idx]
}

// Max reports whether the level is the top of the scale.
func (l LanguageLevel) Max() bool {
	return l == LevelL5
}
