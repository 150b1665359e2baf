package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Lokeshwarrior12/FineDine/internal/application"
	"github.com/Lokeshwarrior12/FineDine/internal/common/auth"
	"github.com/Lokeshwarrior12/FineDine/internal/common/database"
	"github.com/Lokeshwarrior12/FineDine/internal/common/health"
	"github.com/Lokeshwarrior12/FineDine/internal/common/kafka"
	"github.com/Lokeshwarrior12/FineDine/internal/common/logger"
	"github.com/Lokeshwarrior12/FineDine/internal/common/middleware"
	"github.com/Lokeshwarrior12/FineDine/internal/config"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
	couponEvents "github.com/Lokeshwarrior12/FineDine/internal/events"
	"github.com/Lokeshwarrior12/FineDine/internal/handler"
	"github.com/Lokeshwarrior12/FineDine/internal/idempotency"
	"github.com/Lokeshwarrior12/FineDine/internal/metrics"
	"github.com/Lokeshwarrior12/FineDine/internal/repository"
	"github.com/Lokeshwarrior12/FineDine/internal/saga"
	"github.com/Lokeshwarrior12/FineDine/internal/scheduler"
)

const serviceName = "coupon-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("db_driver", cfg.DBConfig.Driver),
		zap.Bool("kafka", cfg.KafkaConfig.Enabled),
		zap.Bool("redis", cfg.RedisConfig.Enabled),
	)

	if cfg.JWTConfig.Secret == "" {
		zapLogger.Fatal("JWT_SECRET must be set")
	}

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" || cfg.DBConfig.Driver == database.DriverSQLite {
		if err := repository.AutoMigrate(db); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), cfg.MigrationsDir, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Idempotency store: shared Redis when configured, process memory otherwise
	var store idempotency.Store = idempotency.NewMemoryStore()
	if cfg.RedisConfig.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zapLogger.Fatal("failed to reach redis", zap.String("addr", cfg.RedisConfig.Addr), zap.Error(err))
		}
		store = idempotency.NewRedisStore(rdb, "finedine:idem")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	couponMetrics := metrics.New(registry)

	// Coupon events go to Kafka when brokers are configured
	var notifier application.Notifier = application.NopNotifier{}
	if cfg.KafkaConfig.Enabled {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
		defer kafkaProducer.Close()
		notifier = couponEvents.NewCouponEventPublisher(kafkaProducer, zapLogger)
	} else {
		zapLogger.Warn("no kafka brokers configured, coupon events are dropped")
	}

	// Initialize repositories
	txManager := database.NewTxManager(db, cfg.CouponConfig.TxMaxRetries, zapLogger)
	offerRepo := repository.NewGormOfferRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)
	loyaltyRepo := repository.NewGormLoyaltyRepository(db)

	// Initialize application services
	claimSaga := saga.NewClaimSagaService(store, cfg.CouponConfig.IdempotencyTTL, zapLogger)
	claimService := application.NewClaimService(
		txManager, offerRepo, couponRepo, loyaltyRepo,
		coupon.NewGenerator(), claimSaga, notifier, couponMetrics, zapLogger,
	)
	redemptionService := application.NewRedemptionService(txManager, offerRepo, couponRepo, notifier, couponMetrics, zapLogger)
	offerService := application.NewOfferService(txManager, offerRepo, zapLogger)
	couponService := application.NewCouponService(couponRepo)
	loyaltyService := application.NewLoyaltyService(loyaltyRepo)

	expirySweep, err := scheduler.NewExpirySweep(cfg.CouponConfig.ExpirySweepSpec, redemptionService, time.Minute, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to schedule expiry sweep", zap.Error(err))
	}

	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.TokenTTL)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(zapLogger))

	// Register health check and metrics routes
	health.NewHandler(db, serviceName).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	// Register API routes
	apiV1 := router.Group("/api/v1")
	handler.NewCouponHandler(claimService, redemptionService, couponService).RegisterRoutes(apiV1, jwtManager)
	handler.NewOfferHandler(offerService).RegisterRoutes(apiV1, jwtManager)
	handler.NewLoyaltyHandler(loyaltyService).RegisterRoutes(apiV1, jwtManager)
	handler.NewAdminHandler(redemptionService).RegisterRoutes(apiV1, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("shutting down " + serviceName + "...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return expirySweep.Start(gctx)
	})

	// Keep local offers in sync with the catalog
	if cfg.KafkaConfig.Enabled {
		catalogConsumer := couponEvents.NewOfferCatalogConsumer(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupPrefix+serviceName,
			offerService,
			couponMetrics,
			zapLogger,
		)
		defer catalogConsumer.Close()

		g.Go(func() error {
			zapLogger.Info("starting offer catalog consumer")
			if err := catalogConsumer.Start(gctx); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zapLogger.Error(serviceName+" stopped with error", zap.Error(err))
		return
	}
	zapLogger.Info(serviceName + " stopped")
}
