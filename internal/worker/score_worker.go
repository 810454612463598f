package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/model"
)

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second
)

// ScoreStore persists score batches.
type ScoreStore interface {
	InsertScores(ctx context.Context, batch []model.LearningScoreLog) error
}

// ScoreWorker batches queued scores into the score history and keeps each
// student's current score up to date for the teacher roster.
type ScoreWorker struct {
	store     ScoreStore
	queue     Queue
	dead      Queue
	queueName string
	log       zerolog.Logger
}

func NewScoreWorker(store ScoreStore, rdb *redis.Client, log zerolog.Logger) *ScoreWorker {
	return newScoreWorker(
		store,
		NewRedisQueue(rdb, config.WorkerKey.PersistLearningScoresQueue),
		NewRedisQueue(rdb, config.WorkerKey.PersistLearningDeadLetter),
		log,
	)
}

func newScoreWorker(store ScoreStore, queue, dead Queue, log zerolog.Logger) *ScoreWorker {
	return &ScoreWorker{
		store:     store,
		queue:     queue,
		dead:      dead,
		queueName: config.WorkerKey.PersistLearningScoresQueue,
		log:       logger.Component(log, "score_worker"),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ScoreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoreWorker started")

	batch := make([]model.LearningScoreLog, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		if shouldFlush(len(batch), time.Since(lastFlush)) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.queue.Pop(ctx, ScorePollTimeout)
			if err != nil {
				if !errors.Is(err, ErrQueueEmpty) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Queue pop error")
				}
				continue
			}

			var p model.LearningScoreLog
			if err := json.Unmarshal([]byte(item), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				if perr := parkDead(context.WithoutCancel(ctx), w.dead, w.queueName, item, err); perr != nil {
					w.log.Error().Err(perr).Msg("Dead-letter push failed")
				}
				continue
			}
			batch = append(batch, p)
		}
	}
}

func shouldFlush(size int, sinceFlush time.Duration) bool {
	return size > 0 && (size >= ScoreBatchSize || sinceFlush >= ScoreBatchTimeout)
}

// flushSafe writes the batch, falling back to one row at a time so a single
// bad row cannot hold back the rest. Rows the database rejects outright are
// dead-lettered; other failures are requeued.
func (w *ScoreWorker) flushSafe(ctx context.Context, batch []model.LearningScoreLog) {
	if len(batch) == 0 {
		return
	}

	err := w.store.InsertScores(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("size", len(batch)).Msg("Bulk score insert failed, using fallback")

	bg := context.WithoutCancel(ctx)
	for _, p := range batch {
		err := w.store.InsertScores(ctx, []model.LearningScoreLog{p})
		if err == nil {
			continue
		}
		raw, _ := json.Marshal(p)
		if isPermanent(err) {
			w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("Score rejected by database, dead-lettered")
			if perr := parkDead(bg, w.dead, w.queueName, string(raw), err); perr != nil {
				w.log.Error().Err(perr).Msg("Dead-letter push failed")
			}
			continue
		}
		w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("Single score insert failed, requeueing")
		if perr := w.queue.Push(bg, string(raw)); perr != nil {
			w.log.Error().Err(perr).Msg("Requeue failed")
		}
	}
}
