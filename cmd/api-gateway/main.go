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

	_ "github.com/campuskit/dept-admin-api/api/swagger"
	"github.com/campuskit/dept-admin-api/internal/handler"
	"github.com/campuskit/dept-admin-api/internal/middleware"
	"github.com/campuskit/dept-admin-api/internal/models"
	"github.com/campuskit/dept-admin-api/internal/repository"
	"github.com/campuskit/dept-admin-api/internal/service"
	"github.com/campuskit/dept-admin-api/pkg/cache"
	"github.com/campuskit/dept-admin-api/pkg/config"
	"github.com/campuskit/dept-admin-api/pkg/database"
	"github.com/campuskit/dept-admin-api/pkg/jobs"
	"github.com/campuskit/dept-admin-api/pkg/logger"
	corsmiddleware "github.com/campuskit/dept-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/dept-admin-api/pkg/middleware/requestid"
	"github.com/campuskit/dept-admin-api/pkg/notify"
	"github.com/campuskit/dept-admin-api/pkg/storage"
)

// @title Department Admin API
// @version 1.0.0
// @description Department administration and subject enrollment service
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, notifications and dashboard cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	windowRepo := repository.NewWindowRepository(db)
	reportRepo := repository.NewReportRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	metrics := service.NewMetricsService()
	policy := service.CapacityPolicy{
		Default:     cfg.Enrollment.DefaultCapacity,
		YearTwoCore: cfg.Enrollment.YearTwoCoreCapacity,
	}

	var publisher *notify.Publisher
	if cfg.Notify.Enabled {
		publisher = notify.NewPublisher(redisClient, cfg.Notify.ChannelPrefix, cfg.Notify.PublishTimeout, logr)
	}

	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer, logr)
	windowSvc := service.NewWindowService(windowRepo, cfg.Enrollment.ClosedWindowFallback, logr)
	enrollmentSvc := service.NewEnrollmentService(
		enrollmentRepo, studentRepo, publisher, metrics,
		policy, cfg.Enrollment.ClosedWindowFallback, logr,
	)
	validate := validator.New()
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	facultySvc := service.NewFacultyService(facultyRepo, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	offeringSvc := service.NewOfferingService(offeringRepo, subjectRepo, facultyRepo, policy, logr)
	reportSvc := service.NewReportService(reportRepo)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(exportJobRepo, reportSvc, store, signer, logr)

		queue := jobs.NewQueue("report-exports", exportSvc.Process, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		exportSvc.SetQueue(queue)
	}

	var dashboardSvc *service.DashboardService
	if cfg.Dashboard.Enabled {
		dashboardSvc = service.NewDashboardService(offeringRepo, studentRepo, redisClient, policy, cfg.Dashboard.CacheTTL, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	facultyHandler := handler.NewFacultyHandler(facultySvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	offeringHandler := handler.NewOfferingHandler(offeringSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	windowHandler := handler.NewWindowHandler(windowSvc)
	reportHandler := handler.NewReportHandler(reportSvc, exportSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/reports/exports/download", reportHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWTAuth(authSvc))
	{
		authed.PUT("/auth/password", authHandler.ChangePassword)

		authed.GET("/windows/status", windowHandler.Status)

		enroll := authed.Group("/enrollments")
		enroll.POST("", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), enrollmentHandler.Enroll)
		enroll.GET("/me", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.ListMine)
		enroll.GET("/me/completion", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.Completion)
		enroll.DELETE("/:offeringId", enrollmentHandler.Unenroll)

		admin := authed.Group("", middleware.RequireRoles(models.RoleAdmin), middleware.DepartmentScope("department"))
		{
			admin.POST("/students", studentHandler.Register)
			admin.GET("/students", studentHandler.List)
			admin.GET("/students/:id", studentHandler.Get)
			admin.PUT("/students/:id", studentHandler.Update)
			admin.DELETE("/students/:id", studentHandler.Delete)
			admin.GET("/students/:id/enrollments", enrollmentHandler.ListByStudent)

			admin.POST("/faculty", facultyHandler.Create)
			admin.GET("/faculty", facultyHandler.List)
			admin.GET("/faculty/:id", facultyHandler.Get)
			admin.PUT("/faculty/:id", facultyHandler.Update)
			admin.DELETE("/faculty/:id", facultyHandler.Delete)

			admin.POST("/subjects", subjectHandler.Create)
			admin.GET("/subjects", subjectHandler.List)
			admin.GET("/subjects/:id", subjectHandler.Get)
			admin.PUT("/subjects/:id", subjectHandler.Update)
			admin.DELETE("/subjects/:id", subjectHandler.Delete)

			admin.POST("/offerings", offeringHandler.Create)
			admin.GET("/offerings", offeringHandler.List)
			admin.GET("/offerings/:id", offeringHandler.Get)
			admin.DELETE("/offerings/:id", offeringHandler.Delete)

			admin.GET("/windows", windowHandler.List)
			admin.PUT("/windows", windowHandler.Upsert)
			admin.DELETE("/windows/:id", windowHandler.Delete)

			admin.GET("/reports/enrollments", reportHandler.Rows)
			admin.POST("/reports/enrollments/export", reportHandler.RequestExport)
			admin.GET("/reports/exports/:id", reportHandler.ExportStatus)

			admin.GET("/dashboard", dashboardHandler.Snapshot)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
