package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutor-payroll-api/api/swagger"
	"github.com/noah-isme/tutor-payroll-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tutor-payroll-api/internal/middleware"
	"github.com/noah-isme/tutor-payroll-api/internal/repository"
	"github.com/noah-isme/tutor-payroll-api/internal/service"
	"github.com/noah-isme/tutor-payroll-api/pkg/cache"
	"github.com/noah-isme/tutor-payroll-api/pkg/config"
	"github.com/noah-isme/tutor-payroll-api/pkg/database"
	"github.com/noah-isme/tutor-payroll-api/pkg/export"
	"github.com/noah-isme/tutor-payroll-api/pkg/jobs"
	"github.com/noah-isme/tutor-payroll-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-payroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-payroll-api/pkg/middleware/requestid"
	"github.com/noah-isme/tutor-payroll-api/pkg/storage"
)

// @title Tutor Payroll API
// @version 1.0.0
// @description Teacher payment, incentive and payment confirmation engine
// @BasePath /api/v1
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
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.LocksEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	} else {
		logr.Warn("redis locks disabled; concurrent payroll writes rely on database constraints only")
	}
	locker := cache.NewRedisLocker(redisClient, "payroll", cfg.Payroll.LockTTL)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	classRepo := repository.NewClassSessionRepository(db)
	rateRepo := repository.NewRateRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	incentiveRepo := repository.NewIncentiveRepository(db)
	confirmationRepo := repository.NewConfirmationRepository(db)

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	periodSvc := service.NewPeriodService(periodRepo)
	paymentSvc := service.NewPaymentService(classRepo, rateRepo, metricsSvc, logr)
	incentiveSvc := service.NewIncentiveService(service.IncentiveServiceDeps{
		Periods:    periodRepo,
		Teachers:   teacherRepo,
		Cohorts:    classRepo,
		Attendance: classRepo,
		Incentives: incentiveRepo,
		Payments:   paymentSvc,
		Locker:     locker,
		Validator:  validate,
		Metrics:    metricsSvc,
		Logger:     logr,
	})
	confirmationSvc := service.NewConfirmationService(confirmationRepo, locker, validate, metricsSvc, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(paymentSvc, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())
		sweeper := newExportSweeper(exportSvc, cfg.Exports.CleanupRetries, logr)
		sweeper.Start(context.Background())
		defer sweeper.Stop()
		go sweeper.Schedule(context.Background(), cfg.Exports.CleanupInterval, func() jobs.Job {
			return jobs.Job{ID: fmt.Sprintf("exports-cleanup-%d", time.Now().Unix()), Type: exportCleanupJob, Payload: cfg.Exports.SignedURLTTL}
		})
	}

	routes := handler.Routes{
		Incentives:    handler.NewIncentiveHandler(incentiveSvc),
		Confirmations: handler.NewConfirmationHandler(confirmationSvc),
	}
	if exportSvc != nil {
		routes.Payroll = handler.NewPayrollHandler(paymentSvc, periodSvc, exportSvc, cfg.Payroll.Location())
	} else {
		routes.Payroll = handler.NewPayrollHandler(paymentSvc, periodSvc, nil, cfg.Payroll.Location())
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.RegisterPublic(api, routes)
	secured := api.Group("", internalmiddleware.JWT(authSvc))
	handler.Register(secured, routes)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "payroll_timezone", cfg.Payroll.Location().String())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

const exportCleanupJob = "exports.cleanup"

func newExportSweeper(svc *service.ExportService, retries int, logr *zap.Logger) *jobs.Queue {
	return jobs.NewQueue("payroll-exports", func(ctx context.Context, job jobs.Job) error {
		ttl, _ := job.Payload.(time.Duration)
		removed, err := svc.Cleanup(ttl)
		if err != nil {
			return err
		}
		if len(removed) > 0 {
			logr.Info("expired exports removed", zap.String("job_id", job.ID), zap.Int("count", len(removed)))
		}
		return nil
	}, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: retries,
		RetryDelay: 30 * time.Second,
		Logger:     logr,
	})
}
