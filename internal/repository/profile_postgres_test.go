package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

func newMockProfileDB(t *testing.T) (*PostgresProfileRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPostgresProfileRepository(sqlxDB, 0), mock
}

var profileColumns = []string{
	"session_id", "language_level", "emotion_history", "learned_words",
	"session_count", "total_interaction_time", "preferred_topics", "updated_at",
}

func TestPostgresProfileSaveUpserts(t *testing.T) {
	repo, mock := newMockProfileDB(t)

	mock.ExpectExec("INSERT INTO student_profiles").
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := &models.StudentProfile{
		SessionID:      "kid-1",
		LanguageLevel:  models.LevelL2,
		EmotionHistory: []models.EmotionState{models.EmotionHappy},
		LearnedWords:   map[string]int{"猫": 20},
		SessionCount:   2,
	}
	require.NoError(t, repo.Save(context.Background(), profile))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfileSaveTruncatesHistory(t *testing.T) {
	repo, mock := newMockProfileDB(t)

	mock.ExpectExec("INSERT INTO student_profiles").
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := models.NewStudentProfile("kid-2")
	for i := 0; i < 70; i++ {
		profile.AppendEmotion(models.EmotionNeutral)
	}
	require.NoError(t, repo.Save(context.Background(), profile))
	assert.Len(t, profile.EmotionHistory, ProfileEmotionHistoryLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfileSaveRequiresSessionID(t *testing.T) {
	repo, mock := newMockProfileDB(t)

	err := repo.Save(context.Background(), &models.StudentProfile{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidArgument.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfileLoad(t *testing.T) {
	repo, mock := newMockProfileDB(t)

	rows := sqlmock.NewRows(profileColumns).AddRow(
		"kid-3", "L3",
		[]byte(`["happy","excited"]`), []byte(`{"猫": 45}`),
		5, 120.5, []byte(`["animals"]`), time.Now(),
	)
	mock.ExpectQuery("SELECT session_id, language_level").
		WithArgs("kid-3").
		WillReturnRows(rows)

	profile, err := repo.Load(context.Background(), "kid-3")
	require.NoError(t, err)
	assert.Equal(t, models.LevelL3, profile.LanguageLevel)
	assert.Equal(t, []models.EmotionState{models.EmotionHappy, models.EmotionExcited}, profile.EmotionHistory)
	assert.Equal(t, 45, profile.WordMastery("猫"))
	assert.Equal(t, 5, profile.SessionCount)
	assert.Equal(t, []string{"animals"}, profile.PreferredTopics)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfileLoadNotFound(t *testing.T) {
	repo, mock := newMockProfileDB(t)

	mock.ExpectQuery("SELECT session_id, language_level").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Load(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfileLoadRejectsCorruptRow(t *testing.T) {
	repo, mock := newMockProfileDB(t)

	rows := sqlmock.NewRows(profileColumns).AddRow(
		"kid-4", "L1",
		[]byte(`["furious"]`), []byte(`{}`),
		1, 0.0, []byte(`[]`), time.Now(),
	)
	mock.ExpectQuery("SELECT session_id, language_level").
		WithArgs("kid-4").
		WillReturnRows(rows)

	_, err := repo.Load(context.Background(), "kid-4")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCorruptData.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfileExists(t *testing.T) {
	repo, mock := newMockProfileDB(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("kid-5").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "kid-5")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
