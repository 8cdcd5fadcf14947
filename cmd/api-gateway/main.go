package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/autoescuela/scheduling-api/api/swagger"
	"github.com/autoescuela/scheduling-api/internal/handler"
	"github.com/autoescuela/scheduling-api/internal/middleware"
	"github.com/autoescuela/scheduling-api/internal/models"
	"github.com/autoescuela/scheduling-api/internal/repository"
	"github.com/autoescuela/scheduling-api/internal/service"
	"github.com/autoescuela/scheduling-api/pkg/cache"
	"github.com/autoescuela/scheduling-api/pkg/config"
	"github.com/autoescuela/scheduling-api/pkg/database"
	"github.com/autoescuela/scheduling-api/pkg/logger"
	corsmiddleware "github.com/autoescuela/scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/autoescuela/scheduling-api/pkg/middleware/requestid"
)

// @title Autoescuela Scheduling API
// @version 1.0.0
// @description Appointment scheduling and booking engine for driving schools
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API degrades to uncached availability without Redis.
		logr.Warn("redis unavailable, availability cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	appointmentRepo := repository.NewAppointmentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	classTypeRepo := repository.NewClassTypeRepository(db)
	penaltyRepo := repository.NewPenaltyRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})
	settingsSvc := service.NewSettingsService(settingRepo, logr, service.SettingsServiceConfig{
		CacheTTL: cfg.Settings.CacheTTL,
	})
	availabilitySvc := service.NewAvailabilityService(scheduleRepo, appointmentRepo, logr, service.AvailabilityServiceConfig{
		HorizonStartDays: cfg.Booking.HorizonStartDays,
		HorizonDays:      cfg.Booking.HorizonDays,
	})
	conflictValidator := service.NewConflictValidator(appointmentRepo, resourceRepo, classTypeRepo, availabilitySvc, logr)
	penaltySvc := service.NewPenaltyService(penaltyRepo, attendanceRepo, settingsSvc, logr, nil)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, attendanceRepo, conflictValidator, penaltySvc, settingsSvc, cacheRepo, validate, logr, nil)
	scheduleSvc := service.NewScheduleService(scheduleRepo, cacheRepo, validate, logr)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc, cacheRepo, metricsSvc, handler.AvailabilityHandlerConfig{
		CacheEnabled: cfg.Booking.AvailabilityCacheable && redisClient != nil,
		CacheTTL:     cfg.Booking.AvailabilityCacheTTL,
	})
	appointmentHandler := handler.NewAppointmentHandler(appointmentSvc)
	bookingHandler := handler.NewBookingHandler(appointmentSvc, penaltySvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	penaltyHandler := handler.NewPenaltyHandler(penaltySvc)
	settingHandler := handler.NewSettingHandler(settingsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)
	admin := middleware.RequireRoles(models.RoleAdmin)

	api.GET("/instructors/:id/availability", availabilityHandler.List)
	api.GET("/instructors/:id/schedules", scheduleHandler.ListByInstructor)

	api.GET("/appointments", appointmentHandler.List)
	api.GET("/appointments/:id", appointmentHandler.Get)
	api.POST("/appointments", staff, appointmentHandler.Create)
	api.PATCH("/appointments/:id", staff, appointmentHandler.Update)
	api.PUT("/appointments/:id/status", appointmentHandler.SetStatus)
	api.DELETE("/appointments/:id", admin, appointmentHandler.Delete)
	api.POST("/appointments/:id/attendance", staff, appointmentHandler.MarkAttendance)

	api.POST("/bookings", middleware.RequireRoles(models.RoleStudent), bookingHandler.Create)
	api.GET("/students/:id/booking-eligibility", middleware.RBAC(string(models.RoleAdmin), string(models.RoleInstructor), "SELF"), bookingHandler.Eligibility)
	api.GET("/students/:id/debt", middleware.RBAC(string(models.RoleAdmin), string(models.RoleInstructor), "SELF"), bookingHandler.Debt)

	api.POST("/schedules", staff, scheduleHandler.Create)
	api.PUT("/schedules/:id/active", staff, scheduleHandler.SetActive)
	api.DELETE("/schedules/:id", staff, scheduleHandler.Delete)
	api.POST("/schedules/overrides", staff, scheduleHandler.CreateOverride)

	api.GET("/users/:id/penalties", middleware.RBAC(string(models.RoleAdmin), "SELF"), penaltyHandler.ListByUser)
	api.POST("/penalties/:id/settle", admin, penaltyHandler.Settle)

	api.GET("/settings", admin, settingHandler.List)
	api.PUT("/settings/:key", admin, settingHandler.Update)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
