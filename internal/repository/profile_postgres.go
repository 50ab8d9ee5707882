package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

// PostgresProfileRepository stores profiles in the student_profiles table,
// with the variable-shaped parts (emotion history, learned words, topics)
// held as JSONB columns.
type PostgresProfileRepository struct {
	db           *sqlx.DB
	historyLimit int
}

type profileRow struct {
	SessionID            string          `db:"session_id"`
	LanguageLevel        string          `db:"language_level"`
	EmotionHistory       json.RawMessage `db:"emotion_history"`
	LearnedWords         json.RawMessage `db:"learned_words"`
	SessionCount         int             `db:"session_count"`
	TotalInteractionTime float64         `db:"total_interaction_time"`
	PreferredTopics      json.RawMessage `db:"preferred_topics"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

// NewPostgresProfileRepository constructs the Postgres backed store.
func NewPostgresProfileRepository(db *sqlx.DB, historyLimit int) *PostgresProfileRepository {
	if historyLimit <= 0 {
		historyLimit = ProfileEmotionHistoryLimit
	}
	return &PostgresProfileRepository{db: db, historyLimit: historyLimit}
}

// Save upserts the profile, truncating the emotion history to the
// retention limit first.
func (r *PostgresProfileRepository) Save(ctx context.Context, profile *models.StudentProfile) error {
	if profile == nil || profile.SessionID == "" {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "profile requires a session id")
	}
	if len(profile.EmotionHistory) > r.historyLimit {
		profile.EmotionHistory = profile.EmotionHistory[len(profile.EmotionHistory)-r.historyLimit:]
	}
	if profile.LearnedWords == nil {
		profile.LearnedWords = make(map[string]int)
	}

	row, err := profileToRow(profile)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode profile")
	}

	const query = `INSERT INTO student_profiles
(session_id, language_level, emotion_history, learned_words, session_count, total_interaction_time, preferred_topics, updated_at)
VALUES (:session_id, :language_level, :emotion_history, :learned_words, :session_count, :total_interaction_time, :preferred_topics, :updated_at)
ON CONFLICT (session_id)
DO UPDATE SET language_level = EXCLUDED.language_level, emotion_history = EXCLUDED.emotion_history,
              learned_words = EXCLUDED.learned_words, session_count = EXCLUDED.session_count,
              total_interaction_time = EXCLUDED.total_interaction_time, preferred_topics = EXCLUDED.preferred_topics,
              updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert profile")
	}
	return nil
}

// Load fetches one profile. Missing rows map to ErrNotFound; rows whose
// JSON columns fail validation map to ErrCorruptData.
func (r *PostgresProfileRepository) Load(ctx context.Context, sessionID string) (*models.StudentProfile, error) {
	const query = `SELECT session_id, language_level, emotion_history, learned_words, session_count, total_interaction_time, preferred_topics, updated_at
FROM student_profiles WHERE session_id = $1`
	var row profileRow
	if err := r.db.GetContext(ctx, &row, query, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("profile %s not found", sessionID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return rowToProfile(&row)
}

// Exists reports whether a profile row is present.
func (r *PostgresProfileRepository) Exists(ctx context.Context, sessionID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM student_profiles WHERE session_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, sessionID); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check profile existence")
	}
	return exists, nil
}

func profileToRow(profile *models.StudentProfile) (*profileRow, error) {
	history, err := json.Marshal(profile.EmotionHistory)
	if err != nil {
		return nil, fmt.Errorf("encode emotion history: %w", err)
	}
	words, err := json.Marshal(profile.LearnedWords)
	if err != nil {
		return nil, fmt.Errorf("encode learned words: %w", err)
	}
	topics, err := json.Marshal(profile.PreferredTopics)
	if err != nil {
		return nil, fmt.Errorf("encode preferred topics: %w", err)
	}
	return &profileRow{
		SessionID:            profile.SessionID,
		LanguageLevel:        string(profile.LanguageLevel),
		EmotionHistory:       history,
		LearnedWords:         words,
		SessionCount:         profile.SessionCount,
		TotalInteractionTime: profile.TotalInteractionTime,
		PreferredTopics:      topics,
		UpdatedAt:            time.Now().UTC(),
	}, nil
}

func rowToProfile(row *profileRow) (*models.StudentProfile, error) {
	profile := &models.StudentProfile{
		SessionID:            row.SessionID,
		LanguageLevel:        models.LanguageLevel(row.LanguageLevel),
		SessionCount:         row.SessionCount,
		TotalInteractionTime: row.TotalInteractionTime,
	}
	if len(row.EmotionHistory) > 0 {
		if err := json.Unmarshal(row.EmotionHistory, &profile.EmotionHistory); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCorruptData.Code, appErrors.ErrCorruptData.Status, "emotion history column is not valid JSON")
		}
	}
	if len(row.LearnedWords) > 0 {
		if err := json.Unmarshal(row.LearnedWords, &profile.LearnedWords); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCorruptData.Code, appErrors.ErrCorruptData.Status, "learned words column is not valid JSON")
		}
	}
	if len(row.PreferredTopics) > 0 {
		if err := json.Unmarshal(row.PreferredTopics, &profile.PreferredTopics); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCorruptData.Code, appErrors.ErrCorruptData.Status, "preferred topics column is not valid JSON")
		}
	}
	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	if profile.LearnedWords == nil {
		profile.LearnedWords = make(map[string]int)
	}
	return profile, nil
}
