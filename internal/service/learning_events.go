package service

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/model"
)

// LearningEvents receives everything a learning session emits: state changes
// for live subscribers and logs for the persistence workers.
type LearningEvents interface {
	Publish(ctx context.Context, teacherID int, ev model.LearningEvent)
	QueueAnswer(ctx context.Context, rec model.LearningAnswerLog)
	QueueScore(ctx context.Context, rec model.LearningScoreLog)
}

// EventFeed delivers the raw payloads published on a PubSub channel. The
// returned channel closes once ctx is done or the close func is called.
type EventFeed interface {
	Subscribe(ctx context.Context, channel string) (<-chan string, func() error)
}

// RedisLearningEvents publishes over Redis PubSub and queues logs on Redis lists.
type RedisLearningEvents struct {
	rdb *redis.Client
	log zerolog.Logger
}

var (
	_ LearningEvents = (*RedisLearningEvents)(nil)
	_ EventFeed      = (*RedisLearningEvents)(nil)
)

func NewRedisLearningEvents(rdb *redis.Client, log zerolog.Logger) *RedisLearningEvents {
	return &RedisLearningEvents{
		rdb: rdb,
		log: logger.Component(log, "learning_events"),
	}
}

// Publish sends the event to the session channel and, when the student has a
// teacher, to the teacher's activity channel.
func (e *RedisLearningEvents) Publish(ctx context.Context, teacherID int, ev model.LearningEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		e.log.Error().Err(err).Msg("Marshal learning event")
		return
	}

	pipe := e.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.LearningEventsChannel(ev.State.SessionID), raw)
	if teacherID > 0 {
		pipe.Publish(ctx, config.CacheKey.TeacherActivityChannel(strconv.Itoa(teacherID)), raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		e.log.Warn().Err(err).Str("session_id", ev.State.SessionID).Msg("Publish learning event failed")
	}
}

func (e *RedisLearningEvents) Subscribe(ctx context.Context, channel string) (<-chan string, func() error) {
	pubsub := e.rdb.Subscribe(ctx, channel)
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close
}

func (e *RedisLearningEvents) QueueAnswer(ctx context.Context, rec model.LearningAnswerLog) {
	e.push(ctx, config.WorkerKey.PersistLearningAnswersQueue, rec)
}

func (e *RedisLearningEvents) QueueScore(ctx context.Context, rec model.LearningScoreLog) {
	e.push(ctx, config.WorkerKey.PersistLearningScoresQueue, rec)
}

func (e *RedisLearningEvents) push(ctx context.Context, queue string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		e.log.Error().Err(err).Str("queue", queue).Msg("Marshal queue payload")
		return
	}
	if err := e.rdb.RPush(ctx, queue, raw).Err(); err != nil {
		e.log.Error().Err(err).Str("queue", queue).Msg("Queue push failed")
	}
}
