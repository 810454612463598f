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
	answerRetryDelay  = 5 * time.Second
	answerPollTimeout = time.Second
)

// AnswerStore persists submitted answers.
type AnswerStore interface {
	InsertAnswer(ctx context.Context, a *model.LearningAnswerLog) error
}

// AnswerWorker consumes persist_learning_answers_queue and inserts answers into PostgreSQL.
type AnswerWorker struct {
	store      AnswerStore
	queue      Queue
	dead       Queue
	queueName  string
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(store AnswerStore, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	return newAnswerWorker(
		store,
		NewRedisQueue(rdb, config.WorkerKey.PersistLearningAnswersQueue),
		NewRedisQueue(rdb, config.WorkerKey.PersistLearningDeadLetter),
		log,
	)
}

func newAnswerWorker(store AnswerStore, queue, dead Queue, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		store:      store,
		queue:      queue,
		dead:       dead,
		queueName:  config.WorkerKey.PersistLearningAnswersQueue,
		retryDelay: answerRetryDelay,
		log:        logger.Component(log, "answer_worker"),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerWorker) processNext(ctx context.Context) {
	item, err := w.queue.Pop(ctx, answerPollTimeout)
	if err != nil {
		if !errors.Is(err, ErrQueueEmpty) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Queue pop error")
		}
		return
	}

	if err := w.persist(ctx, item); err != nil {
		// Back onto the queue; a restart must not lose it.
		if perr := w.queue.Push(context.WithoutCancel(ctx), item); perr != nil {
			w.log.Error().Err(perr).Msg("Requeue failed")
		}
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

// persist stores one queued answer. Only transient failures are returned;
// items that can never be stored are parked on the dead-letter list.
func (w *AnswerWorker) persist(ctx context.Context, item string) error {
	var payload model.LearningAnswerLog
	if err := json.Unmarshal([]byte(item), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		w.park(ctx, item, err)
		return nil
	}

	err := w.store.InsertAnswer(ctx, &payload)
	switch {
	case err == nil:
		return nil
	case isPermanent(err):
		w.log.Error().Err(err).
			Int("student_id", payload.StudentID).
			Str("session_id", payload.SessionID).
			Msg("Answer rejected by database, dead-lettered")
		w.park(ctx, item, err)
		return nil
	default:
		w.log.Error().Err(err).
			Int("student_id", payload.StudentID).
			Str("session_id", payload.SessionID).
			Msg("Persist error, retrying")
		return err
	}
}

func (w *AnswerWorker) park(ctx context.Context, item string, cause error) {
	if err := parkDead(context.WithoutCancel(ctx), w.dead, w.queueName, item, cause); err != nil {
		w.log.Error().Err(err).Msg("Dead-letter push failed")
	}
}

// drain persists what is left in the queue before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		item, err := w.queue.TryPop(ctx)
		if err != nil {
			break
		}
		if err := w.persist(ctx, item); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			_ = w.queue.Push(ctx, item)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
