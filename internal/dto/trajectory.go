package dto

import "github.com/noah-isme/mandarin-tutor-api/internal/models"

// GenerateTrajectoryRequest builds a trajectory either from an inline
// session document or from a previously written transcript file. Exactly
// one of Session and LogFilename must be set.
type GenerateTrajectoryRequest struct {
	Session     *models.ChatSession `json:"session,omitempty"`
	LogFilename string              `json:"log_filename,omitempty"`
	Filename    string              `json:"filename" validate:"required,min=1,max=256"`
	Async       bool                `json:"async,omitempty"`
}

// AsyncTrajectoryResponse acknowledges a queued background build.
type AsyncTrajectoryResponse struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
}

// GenerateTrajectoryResponse reports the build outcome.
type GenerateTrajectoryResponse struct {
	Filename      string                      `json:"filename"`
	Steps         int                         `json:"steps"`
	ParseWarnings int                         `json:"parse_warnings,omitempty"`
	Statistics    models.TrajectoryStatistics `json:"statistics"`
}
