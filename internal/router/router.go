package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/handler"
	"github.com/studysaathi/learning-backend/internal/middleware"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/response"
)

// Authenticator validates access tokens and the login session behind them.
type Authenticator interface {
	middleware.TokenValidator
	middleware.SessionValidator
}

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Course     *handler.CourseHandler
	Learning   *handler.LearningHandler
	WS         *handler.WSHandler
	Assignment *handler.AssignmentHandler
	File       *handler.FileHandler
	Teacher    *handler.TeacherHandler
	Activity   *handler.ActivityHandler
	Feedback   *handler.FeedbackHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background goroutines such as the rate limiter cleanup.
func SetupRouter(
	ctx context.Context,
	auth Authenticator,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// Signed download links carry their own token.
	router.GET("/files/:bucket/*key", handlers.File.Download)

	// ─── 1. Public Group ───────────────────────────────────────────────
	router.GET("/api/v1/courses", middleware.CacheControl(300), handlers.Course.GetAll)

	// ─── 2. Auth Group (Rate Limited) ──────────────────────────────────
	// 30 requests per minute per IP.
	authLimiter := middleware.NewRateLimiter(ctx, 30, time.Minute)

	authAPI := router.Group("/api/v1/auth")
	authAPI.Use(authLimiter.Middleware())
	{
		authAPI.POST("/register", handlers.Auth.Register)
		authAPI.POST("/login", handlers.Auth.Login)
	}

	signedIn := []gin.HandlerFunc{
		middleware.RequireJWT(auth),
		middleware.CheckSingleDeviceSession(auth),
	}

	session := router.Group("/api/v1")
	session.Use(signedIn...)
	{
		session.POST("/auth/logout", handlers.Auth.Logout)
		session.GET("/auth/me", middleware.NoStore(), handlers.Auth.Me)
		session.POST("/feedback", handlers.Feedback.Create)
	}

	// ─── 3. Student Group (JWT + Single Device + Role) ─────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(signedIn...)
	studentAPI.Use(middleware.RequireRole(model.RoleStudent))
	{
		studentAPI.GET("/assignments", handlers.Assignment.ListForStudent)
		studentAPI.POST("/assignments/:id/submission", handlers.Assignment.Submit)

		learning := studentAPI.Group("/learning/sessions", middleware.NoStore())
		{
			learning.POST("", handlers.Learning.Start)
			learning.GET("/current", handlers.Learning.Current)
			learning.GET("/:id", handlers.Learning.Get)
			learning.POST("/:id/select", handlers.Learning.Select)
			learning.POST("/:id/submit", handlers.Learning.Submit)
			learning.POST("/:id/advance", handlers.Learning.Advance)
			learning.POST("/:id/retry", handlers.Learning.Retry)
			learning.DELETE("/:id", handlers.Learning.Abandon)
		}
	}

	// ─── 4. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireStudentWSAuth(auth),
		middleware.CheckSingleDeviceSession(auth),
	)
	{
		ws.GET("/student/learning/:id/stream", handlers.WS.LearningStream)
	}

	// ─── 5. Teacher Group (JWT + Single Device + Role) ─────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(signedIn...)
	teacherAPI.Use(middleware.RequireRole(model.RoleTeacher))
	{
		teacherAPI.GET("/dashboard", handlers.Teacher.GetDashboard)
		teacherAPI.GET("/students", handlers.Teacher.GetStudents)
		teacherAPI.GET("/activity", handlers.Activity.ActivitySSE)

		teacherAPI.GET("/assignments", handlers.Assignment.ListForTeacher)
		teacherAPI.POST("/assignments", handlers.Assignment.Create)
		teacherAPI.GET("/assignments/:id/submissions", handlers.Assignment.ListSubmissions)
	}

	return router
}
