package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/classboard/classboard-api/api/swagger"
	"github.com/classboard/classboard-api/internal/handler"
	"github.com/classboard/classboard-api/internal/middleware"
	"github.com/classboard/classboard-api/internal/models"
	"github.com/classboard/classboard-api/internal/repository"
	"github.com/classboard/classboard-api/internal/service"
	"github.com/classboard/classboard-api/pkg/cache"
	"github.com/classboard/classboard-api/pkg/config"
	"github.com/classboard/classboard-api/pkg/database"
	"github.com/classboard/classboard-api/pkg/logger"
	corsmiddleware "github.com/classboard/classboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classboard/classboard-api/pkg/middleware/requestid"
	"github.com/classboard/classboard-api/pkg/storage"
)

// @title ClassBoard API
// @version 1.0.0
// @description Classroom management backend: tutoring sessions, activities, grading and class metrics
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()

	cacheEnabled := cfg.Cache.Enabled
	var cacheRepo service.CacheRepository
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, metrics cache disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Cache.TTL, logr, cacheEnabled)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	forumRepo := repository.NewForumRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	classService := service.NewClassService(classRepo, membershipRepo, userRepo, cacheService, validate, logr)
	analyticsService := service.NewAnalyticsService(membershipRepo, sessionRepo, classRepo, cacheService, metricsService, logr)
	sessionService := service.NewSessionService(sessionRepo, userRepo, cacheService, metricsService, validate, logr)
	activityService := service.NewActivityService(activityRepo, submissionRepo, classRepo, membershipRepo, metricsService, validate, logr)
	submissionService := service.NewSubmissionService(submissionRepo, activityRepo, userRepo, activityService, validate, logr)
	forumService := service.NewForumService(forumRepo, classRepo, validate, logr)
	reportService := service.NewReportService(classRepo, membershipRepo, activityRepo, submissionRepo, analyticsService, logr)

	fileStore, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Fatal("attachment storage init failed", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)
	attachmentService := service.NewAttachmentService(activityRepo, submissionRepo, fileStore, signer, cfg.Attachments.MaxFileSizeBytes, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sweep *service.StatusSweepService
	if cfg.StatusSweep.Enabled {
		sweep = service.NewStatusSweepService(activityService, cfg.StatusSweep.Interval, cfg.StatusSweep.Workers, logr)
		sweep.Start(ctx)
		defer sweep.Stop()
	}

	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler(sessionService, analyticsService)
	classHandler := handler.NewClassHandler(classService, analyticsService, reportService)
	activityHandler := handler.NewActivityHandler(activityService, attachmentService)
	submissionHandler := handler.NewSubmissionHandler(submissionService, attachmentService)
	forumHandler := handler.NewForumHandler(forumService)
	metricsHandler := handler.NewMetricsHandler(metricsService, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authRequired := middleware.JWT(authService)
	teacherOnly := middleware.RequireRoles(models.RoleTeacher)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", authRequired, authHandler.Me)

	// Session lifecycle and class metrics keep the legacy open contract.
	api.POST("/session/start", sessionHandler.Start)
	api.POST("/session/end", sessionHandler.End)
	api.GET("/session/list/total/time/:classId", sessionHandler.AverageTime)
	api.GET("/classes/summary", classHandler.Summary)
	api.POST("/submissions/:id/grade", submissionHandler.Grade)

	api.GET("/classes", classHandler.List)
	api.GET("/classes/:id", classHandler.Get)
	api.POST("/classes", authRequired, teacherOnly, classHandler.Create)
	api.PUT("/classes/:id", authRequired, teacherOnly, classHandler.Update)
	api.DELETE("/classes/:id", authRequired, teacherOnly, classHandler.Delete)
	api.GET("/classes/:id/members", authRequired, classHandler.Members)
	api.POST("/classes/:id/members", authRequired, teacherOnly, classHandler.AddMember)
	api.DELETE("/classes/:id/members/:memberId", authRequired, teacherOnly, classHandler.RemoveMember)
	if cfg.Reports.Enabled {
		api.GET("/classes/:id/report", authRequired, teacherOnly, classHandler.Report)
	}

	api.GET("/classes/:id/activities", activityHandler.ListByClass)
	api.GET("/activities/:id", activityHandler.Get)
	api.POST("/activities", authRequired, teacherOnly, activityHandler.Create)
	api.PUT("/activities/:id", authRequired, teacherOnly, activityHandler.Update)
	api.DELETE("/activities/:id", authRequired, teacherOnly, activityHandler.Delete)
	api.POST("/activities/:id/attachment", authRequired, teacherOnly, activityHandler.UploadAttachment)
	api.GET("/activities/:id/attachment", authRequired, activityHandler.AttachmentURL)
	api.GET("/files/:token", activityHandler.DownloadAttachment)

	api.GET("/activities/:id/submissions", authRequired, submissionHandler.ListByActivity)
	api.POST("/activities/:id/submissions", authRequired, studentOnly, submissionHandler.Submit)
	api.POST("/submissions/:id/attachment", authRequired, studentOnly, submissionHandler.UploadAttachment)
	api.GET("/submissions/:id/attachment", authRequired, submissionHandler.AttachmentURL)

	api.GET("/classes/:id/forum", forumHandler.ListPosts)
	api.POST("/classes/:id/forum", authRequired, forumHandler.CreatePost)
	api.PUT("/forum/posts/:id", authRequired, forumHandler.UpdatePost)
	api.DELETE("/forum/posts/:id", authRequired, forumHandler.DeletePost)
	api.GET("/forum/posts/:id/comments", forumHandler.ListComments)
	api.POST("/forum/posts/:id/comments", authRequired, forumHandler.CreateComment)
	api.DELETE("/forum/comments/:id", authRequired, forumHandler.DeleteComment)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
