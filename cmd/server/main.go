package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/database"
	"github.com/studysaathi/learning-backend/internal/handler"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/questionclient"
	"github.com/studysaathi/learning-backend/internal/repository"
	"github.com/studysaathi/learning-backend/internal/router"
	"github.com/studysaathi/learning-backend/internal/scheduler"
	"github.com/studysaathi/learning-backend/internal/service"
	"github.com/studysaathi/learning-backend/internal/storage"
	"github.com/studysaathi/learning-backend/internal/validator"
	"github.com/studysaathi/learning-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("question_service", cfg.QuestionServiceURL).
		Msg("Starting StudySaathi Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Migrate Schema (optional) ─────────────────────────────────────
	if cfg.AutoMigrate {
		if err := database.MigrateUp(cfg.DatabaseURL, cfg.MigrationsDir, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate schema")
		}
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── File Storage ──────────────────────────────────────────────────
	store, err := storage.NewFSStore(cfg.StorageDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.StorageDir).Msg("Failed to open file storage")
	}
	signer := storage.NewURLSigner(cfg.JWTSecret, cfg.SignedURLTTL, cfg.PublicBaseURL)

	// ─── Question Service Client ───────────────────────────────────────
	questions := questionclient.New(questionclient.Config{
		BaseURL:    cfg.QuestionServiceURL,
		Timeout:    cfg.QuestionServiceTimeout,
		MaxRetries: cfg.QuestionServiceMaxRetries,
		RetryWait:  cfg.QuestionServiceRetryWait,
	}, log)

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	learningRepo := repository.NewLearningRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	accountService := service.NewAccountService(userRepo, studentRepo, authService, log)
	courseService := service.NewCourseService(courseRepo, rdb, log)
	assignmentService := service.NewAssignmentService(cfg, assignmentRepo, studentRepo, store, signer, log)
	dashboardService := service.NewDashboardService(dashboardRepo, studentRepo)
	feedbackService := service.NewFeedbackService(feedbackRepo, userRepo, log)
	learningEvents := service.NewRedisLearningEvents(rdb, log)
	learningService := service.NewLearningService(
		accountService,
		courseService,
		questions,
		learningEvents,
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, accountService),
		Course:     handler.NewCourseHandler(courseService),
		Learning:   handler.NewLearningHandler(learningService),
		WS:         handler.NewWSHandler(learningEvents, learningService, log, cfg.AllowedOrigins),
		Assignment: handler.NewAssignmentHandler(assignmentService),
		File:       handler.NewFileHandler(assignmentService, log),
		Teacher:    handler.NewTeacherHandler(dashboardService),
		Activity:   handler.NewActivityHandler(learningEvents, dashboardService, log),
		Feedback:   handler.NewFeedbackHandler(feedbackService),
		System:     handler.NewSystemHandler(pool, rdb, questions, learningService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	answerWorker := worker.NewAnswerWorker(learningRepo, rdb, log)
	scoreWorker := worker.NewScoreWorker(learningRepo, rdb, log)

	workers.Add(2)
	go func() { defer workers.Done(); answerWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); scoreWorker.Start(workerCtx) }()

	// ─── Schedule Idle Session Reaper ─────────────────────────────────
	jobs := scheduler.New(ctx, log)
	if err := jobs.AddIdleReaper(scheduler.ReapSpec, learningService, cfg.LearningIdleTimeout); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule idle reaper")
	}
	jobs.Start()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	if _, err := courseService.GetAll(ctx); err != nil {
		log.Warn().Err(err).Msg("Course catalog prewarm failed")
	}
	if err := questions.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Question service not reachable yet")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the reaper, then close every learning session so subscribers see it.
	jobs.Stop()
	learningService.CloseAll(shutdownCtx)
	cancel()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
