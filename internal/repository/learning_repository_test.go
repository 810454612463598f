package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/studysaathi/learning-backend/internal/model"
)

func TestLatestScorePerStudent(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []model.LearningScoreLog{
		{StudentID: 1, Score: 40, RecordedAt: t0},
		{StudentID: 2, Score: 90, RecordedAt: t0},
		{StudentID: 1, Score: 55, RecordedAt: t0.Add(time.Minute)},
		{StudentID: 1, Score: 10, RecordedAt: t0.Add(-time.Minute)},
	}

	got := LatestScorePerStudent(batch)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, got[0].StudentID)
	assert.Equal(t, 55.0, got[0].Score)
	assert.Equal(t, 2, got[1].StudentID)
	assert.Equal(t, 90.0, got[1].Score)
}

func TestLatestScorePerStudentEmpty(t *testing.T) {
	assert.Empty(t, LatestScorePerStudent(nil))
}
