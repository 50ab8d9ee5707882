package dto

// StartSessionRequest opens a tutoring session for a learner.
type StartSessionRequest struct {
	SessionID string `json:"session_id" validate:"required,min=1,max=128"`
}

// SessionMessageRequest is one user turn sent to a live session.
type SessionMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}
