package models

import "time"

// Message roles. Only these two appear in transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single immutable transcript entry.
type ChatMessage struct {
	Role            string        `json:"role"`
	Content         string        `json:"content"`
	Timestamp       time.Time     `json:"timestamp"`
	EmotionDetected *EmotionState `json:"emotion_detected,omitempty"`
	ChineseWords    []string      `json:"chinese_words_used,omitempty"`
}

// ChatSession is the read-only input to trajectory generation.
type ChatSession struct {
	SessionID     string                 `json:"session_id"`
	Messages      []ChatMessage          `json:"messages"`
	StartTime     time.Time              `json:"start_time"`
	EndTime       *time.Time             `json:"end_time,omitempty"`
	StudentLevel  LanguageLevel          `json:"student_language_level"`
	Metadata      map[string]interface{} `json:"session_metadata,omitempty"`
	ParseWarnings int                    `json:"-"`
}

// UserMessages returns the user-authored turns in chronological order.
func (s *ChatSession) UserMessages() []ChatMessage {
	out := make([]ChatMessage, 0, len(s.Messages))
	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			out = append(out, msg)
		}
	}
	return out
}
