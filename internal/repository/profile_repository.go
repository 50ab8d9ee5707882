package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/storage"
)

// ProfileEmotionHistoryLimit caps the stored emotion history: only the most
// recent entries survive a save.
const ProfileEmotionHistoryLimit = 50

// ProfileRepository is the persistence contract shared by the file and
// Postgres backed implementations.
type ProfileRepository interface {
	Save(ctx context.Context, profile *models.StudentProfile) error
	Load(ctx context.Context, sessionID string) (*models.StudentProfile, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
}

// FileProfileRepository stores one pretty-printed JSON document per learner
// under the data directory.
type FileProfileRepository struct {
	storage      *storage.LocalStorage
	historyLimit int
	logger       *zap.Logger
}

// NewFileProfileRepository constructs the file backed store. A non-positive
// history limit falls back to the default.
func NewFileProfileRepository(store *storage.LocalStorage, historyLimit int, logger *zap.Logger) *FileProfileRepository {
	if historyLimit <= 0 {
		historyLimit = ProfileEmotionHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileProfileRepository{
		storage:      store,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

func profileFilename(sessionID string) string {
	return fmt.Sprintf("%s_profile.json", sessionID)
}

// Save truncates the emotion history to the retention limit and atomically
// replaces the profile document.
func (r *FileProfileRepository) Save(ctx context.Context, profile *models.StudentProfile) error {
	if profile == nil || profile.SessionID == "" {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "profile requires a session id")
	}
	if len(profile.EmotionHistory) > r.historyLimit {
		profile.EmotionHistory = profile.EmotionHistory[len(profile.EmotionHistory)-r.historyLimit:]
	}
	if profile.LearnedWords == nil {
		profile.LearnedWords = make(map[string]int)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode profile")
	}
	if err := r.storage.WriteAtomic(profileFilename(profile.SessionID), data); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write profile")
	}
	r.logger.Debug("profile saved", zap.String("session_id", profile.SessionID))
	return nil
}

// Load reads a profile document. A missing file is ErrNotFound; a document
// that fails to decode or carries invalid labels is ErrCorruptData and is
// never silently repaired.
func (r *FileProfileRepository) Load(ctx context.Context, sessionID string) (*models.StudentProfile, error) {
	data, err := r.storage.Read(profileFilename(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("profile %s not found", sessionID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read profile")
	}

	var profile models.StudentProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCorruptData.Code, appErrors.ErrCorruptData.Status, "profile document is not valid JSON")
	}
	if err := validateProfile(&profile); err != nil {
		return nil, err
	}
	if profile.LearnedWords == nil {
		profile.LearnedWords = make(map[string]int)
	}
	return &profile, nil
}

// Exists reports whether a profile document is on disk.
func (r *FileProfileRepository) Exists(ctx context.Context, sessionID string) (bool, error) {
	return r.storage.Exists(profileFilename(sessionID)), nil
}

func validateProfile(profile *models.StudentProfile) error {
	if !profile.LanguageLevel.Valid() {
		return appErrors.Clone(appErrors.ErrCorruptData, fmt.Sprintf("profile carries unknown language level %q", profile.LanguageLevel))
	}
	for _, state := range profile.EmotionHistory {
		if !state.Valid() {
			return appErrors.Clone(appErrors.ErrCorruptData, fmt.Sprintf("profile carries unknown emotion label %q", state))
		}
	}
	for word, mastery := range profile.LearnedWords {
		if mastery < 0 || mastery > models.MasteryCap {
			return appErrors.Clone(appErrors.ErrCorruptData, fmt.Sprintf("profile mastery for %q out of range", word))
		}
	}
	return nil
}
