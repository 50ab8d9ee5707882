package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

func TestRecordWordUsageSaturates(t *testing.T) {
	profile := NewStudentProfile("kid-1")

	require.NoError(t, profile.RecordWordUsage("猫", 95))
	require.NoError(t, profile.RecordWordUsage("猫", 10))
	assert.Equal(t, 100, profile.WordMastery("猫"))

	require.NoError(t, profile.RecordWordUsage("猫", 5))
	assert.Equal(t, 100, profile.WordMastery("猫"))
}

func TestRecordWordUsageRejectsNegative(t *testing.T) {
	profile := NewStudentProfile("kid-1")
	require.NoError(t, profile.RecordWordUsage("狗", 10))

	err := profile.RecordWordUsage("狗", -5)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidArgument.Code, appErr.Code)
	assert.Equal(t, 10, profile.WordMastery("狗"))
}

func TestWordMasteryUnseenWordIsZero(t *testing.T) {
	profile := NewStudentProfile("kid-1")
	assert.Equal(t, 0, profile.WordMastery("鸟"))
}

func TestRecordWordUsageZeroIncrement(t *testing.T) {
	profile := NewStudentProfile("kid-1")
	require.NoError(t, profile.RecordWordUsage("水", 0))
	assert.Equal(t, 0, profile.WordMastery("水"))
}
