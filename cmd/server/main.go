package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"loyalty-promo-backend/internal/common/config"
	"loyalty-promo-backend/internal/common/kv"
	"loyalty-promo-backend/internal/common/logger"
	"loyalty-promo-backend/internal/common/middleware"
	"loyalty-promo-backend/internal/common/token"
	participantHTTP "loyalty-promo-backend/internal/features/participant/delivery/http"
	participantRepo "loyalty-promo-backend/internal/features/participant/repository/postgres"
	participantService "loyalty-promo-backend/internal/features/participant/service"
	prizeHTTP "loyalty-promo-backend/internal/features/prize/delivery/http"
	prizeRepo "loyalty-promo-backend/internal/features/prize/repository/postgres"
	prizeService "loyalty-promo-backend/internal/features/prize/service"
	staffHTTP "loyalty-promo-backend/internal/features/staff/delivery/http"
	staffModels "loyalty-promo-backend/internal/features/staff/models"
	staffRepo "loyalty-promo-backend/internal/features/staff/repository/postgres"
	staffService "loyalty-promo-backend/internal/features/staff/service"
	txlogHTTP "loyalty-promo-backend/internal/features/txlog/delivery/http"
	txlogRepo "loyalty-promo-backend/internal/features/txlog/repository/postgres"
	verificationService "loyalty-promo-backend/internal/features/verification/service"
	"loyalty-promo-backend/internal/notify"
	"loyalty-promo-backend/internal/platform/postgres"
	"loyalty-promo-backend/internal/platform/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init("loyalty-promo-backend", cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Msg("starting loyalty promo backend")

	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer postgresClient.Close()
	logger.Info().Msg("database connection established")

	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("redis connection established")

	store := kv.NewRedisStore(redisClient)

	tokenTTL := time.Duration(cfg.JWT.ExpiryHours) * time.Hour
	revoker := token.NewKVRevoker(store, tokenTTL)
	tokens := token.NewManager(cfg.JWT.Secret, tokenTTL, revoker)

	notifier := notify.NewLogNotifier()

	db := postgresClient.DB()
	logs := txlogRepo.NewRepository(db)
	participants := participantRepo.NewParticipantRepository(db, logs)
	prizes := prizeRepo.NewPrizeRepository(db, logs)
	staff := staffRepo.NewStaffRepository(db, logs)

	otpExpiry := time.Duration(cfg.OTP.ExpiryMinutes) * time.Minute
	verificationSvc := verificationService.NewVerificationService(store, notifier, verificationService.Options{
		TTL:            otpExpiry,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		ResendCooldown: time.Duration(cfg.OTP.ResendCooldownSeconds) * time.Second,
		TestCode:       cfg.OTP.TestCode,
	})
	participantSvc := participantService.NewParticipantService(participants, verificationSvc, notifier)
	prizeSvc := prizeService.NewPrizeService(prizes)
	staffSvc := staffService.NewStaffService(staff, tokens, notifier, staffService.Options{
		OTPExpiry:      otpExpiry,
		OTPMaxAttempts: cfg.OTP.MaxAttempts,
		OTPTestCode:    cfg.OTP.TestCode,
	})

	logger.Info().Msg("services initialized")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	public := v1.Group("/public")
	authed := v1.Group("", middleware.RequireAuth(tokens))
	admin := authed.Group("", middleware.RequireRole(string(staffModels.RoleSuperAdmin)))

	staffHandler := staffHTTP.NewStaffHandler(staffSvc)
	loginLimit := middleware.RateLimit(store, "ratelimit:login", 5, 15*time.Minute)
	staffHandler.RegisterAuthRoutes(v1, authed, loginLimit)
	staffHandler.RegisterAdminRoutes(admin)

	participantHandler := participantHTTP.NewParticipantHandler(participantSvc, verificationSvc)
	participantHandler.RegisterRoutes(authed, admin)
	participantHandler.RegisterPublicRoutes(public)

	prizeHandler := prizeHTTP.NewPrizeHandler(prizeSvc, participantSvc)
	prizeHandler.RegisterRoutes(authed, admin)
	prizeHandler.RegisterPublicRoutes(public)

	logHandler := txlogHTTP.NewLogHandler(logs)
	logHandler.RegisterRoutes(authed)

	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if err := postgresClient.HealthCheck(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   "loyalty-promo-backend",
		})
	})

	logger.Info().Msg("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
