package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/model"
)

func TestShouldFlush(t *testing.T) {
	assert.False(t, shouldFlush(0, time.Hour))
	assert.False(t, shouldFlush(3, time.Millisecond))
	assert.True(t, shouldFlush(3, ScoreBatchTimeout))
	assert.True(t, shouldFlush(ScoreBatchSize, 0))
}

type flakyScores struct {
	calls [][]model.LearningScoreLog
	// rowErr fails single-row inserts by session id.
	rowErr map[string]error
}

func (f *flakyScores) InsertScores(_ context.Context, batch []model.LearningScoreLog) error {
	f.calls = append(f.calls, batch)
	if len(batch) > 1 {
		return errors.New("batch rejected")
	}
	return f.rowErr[batch[0].SessionID]
}

func TestFlushSafeFallsBackToSingleRows(t *testing.T) {
	store := &flakyScores{}
	w := newScoreWorker(store, &memQueue{}, &memQueue{}, zerolog.Nop())

	batch := []model.LearningScoreLog{
		{SessionID: "a", StudentID: 1, Score: 10},
		{SessionID: "b", StudentID: 2, Score: 20},
	}
	w.flushSafe(context.Background(), batch)

	if assert.Len(t, store.calls, 3) {
		assert.Len(t, store.calls[0], 2)
		assert.Equal(t, "a", store.calls[1][0].SessionID)
		assert.Equal(t, "b", store.calls[2][0].SessionID)
	}
}

func TestFlushSafeSkipsEmptyBatch(t *testing.T) {
	store := &flakyScores{}
	newScoreWorker(store, &memQueue{}, &memQueue{}, zerolog.Nop()).flushSafe(context.Background(), nil)
	assert.Empty(t, store.calls)
}

func TestFlushSafeSeparatesRejectedFromRetryable(t *testing.T) {
	store := &flakyScores{rowErr: map[string]error{
		"a": errors.New("connection reset"),
		"b": &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"},
	}}
	queue, dead := &memQueue{}, &memQueue{}
	w := newScoreWorker(store, queue, dead, zerolog.Nop())

	w.flushSafe(context.Background(), []model.LearningScoreLog{
		{SessionID: "a", StudentID: 1, Score: 10},
		{SessionID: "b", StudentID: 2, Score: 20},
		{SessionID: "c", StudentID: 3, Score: 30},
	})

	require.Equal(t, 1, queue.len())
	raw, _ := queue.TryPop(context.Background())
	assert.Contains(t, raw, `"session_id":"a"`)

	require.Equal(t, 1, dead.len())
	raw, _ = dead.TryPop(context.Background())
	assert.Contains(t, raw, config.WorkerKey.PersistLearningScoresQueue)
	assert.Contains(t, raw, "foreign key")
}
