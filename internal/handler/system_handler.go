package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/service"
)

const healthTimeout = 3 * time.Second

// Pinger is anything with a context-aware health check, e.g. *pgxpool.Pool
// or the question service client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports dependency health, queue depths and runtime stats.
type SystemHandler struct {
	db              Pinger
	rdb             *redis.Client
	questions       Pinger
	learningService *service.LearningService
	startTime       time.Time
	log             zerolog.Logger
}

func NewSystemHandler(db Pinger, rdb *redis.Client, questions Pinger, learningService *service.LearningService, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:              db,
		rdb:             rdb,
		questions:       questions,
		learningService: learningService,
		startTime:       time.Now(),
		log:             logger.Component(log, "system_handler"),
	}
}

type healthReport struct {
	Status         string            `json:"status"`
	Uptime         string            `json:"uptime"`
	Checks         map[string]string `json:"checks"`
	LearningActive int               `json:"learning_sessions_active"`
	QueueAnswers   int64             `json:"queue_learning_answers"`
	QueueScores    int64             `json:"queue_learning_scores"`
	Goroutines     int               `json:"goroutines"`
	HeapAllocBytes uint64            `json:"heap_alloc_bytes"`
	GoVersion      string            `json:"go_version"`
}

// Health godoc
// GET /health
// Postgres and Redis are required; an unreachable question service only
// degrades the report.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:    "ok",
		Uptime:    formatDuration(time.Since(h.startTime)),
		Checks:    make(map[string]string, 3),
		GoVersion: runtime.Version(),
	}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		report.Checks["postgres"] = err.Error()
		report.Status = "down"
		status = http.StatusServiceUnavailable
	} else {
		report.Checks["postgres"] = "ok"
	}

	pipe := h.rdb.Pipeline()
	pingCmd := pipe.Ping(ctx)
	answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistLearningAnswersQueue)
	scoresCmd := pipe.LLen(ctx, config.WorkerKey.PersistLearningScoresQueue)
	if _, err := pipe.Exec(ctx); err != nil || pingCmd.Err() != nil {
		if err == nil {
			err = pingCmd.Err()
		}
		report.Checks["redis"] = err.Error()
		report.Status = "down"
		status = http.StatusServiceUnavailable
	} else {
		report.Checks["redis"] = "ok"
		report.QueueAnswers, _ = answersCmd.Result()
		report.QueueScores, _ = scoresCmd.Result()
	}

	if err := h.questions.Ping(ctx); err != nil {
		report.Checks["question_service"] = err.Error()
		if report.Status == "ok" {
			report.Status = "degraded"
		}
	} else {
		report.Checks["question_service"] = "ok"
	}

	report.LearningActive = h.learningService.Active()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	report.Goroutines = runtime.NumGoroutine()
	report.HeapAllocBytes = ms.HeapAlloc

	if status != http.StatusOK {
		h.log.Warn().Interface("checks", report.Checks).Msg("Health check failed")
		response.FailWithData(c, status, response.ErrInternal, report)
		return
	}
	response.Success(c, status, report)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
