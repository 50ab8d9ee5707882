package models

// WordKnowledge is one entry of the Chinese vocabulary knowledge base.
type WordKnowledge struct {
	Chinese         string        `json:"chinese"`
	Pinyin          string        `json:"pinyin"`
	English         string        `json:"english"`
	Category        string        `json:"category"`
	DifficultyLevel LanguageLevel `json:"level"`
	UsageExamples   []string      `json:"examples,omitempty"`
	Emoji           string        `json:"emoji,omitempty"`
}
