package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/events"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/spreadsheet"
	"storefront/internal/jobs"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/server"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/sirupsen/logrus"
)

const kafkaBuffer = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.GoEnv)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	m := metrics.New()

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//任意の外部サービス（未設定なら無効）
	var idemCache usecase.OrderIdempotencyCache
	if cfg.RedisAddr != "" {
		rdb := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable; idempotency falls back to database")
		}
		idemCache = cache.NewOrderIdempotencyCache(rdb)
	}

	var publisher usecase.OrderEventPublisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := events.NewOrderEventProducer(brokers, cfg.KafkaOrderTopic, kafkaBuffer, log.WithField("component", "kafka"))
		producer.Start()
		defer func() {
			producer.Close()
			producer.WaitClosed()
		}()
		publisher = producer
	}

	//usecaseに渡す部品
	clock := auth.SystemClock{}
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher, clock)
	loginUC := auth.NewLoginUsecase(userRepo, verifier, tokens, clock)
	resetUC := auth.NewPasswordResetUsecase(userRepo, hasher, clock, cfg.AppURL, log.WithField("component", "password_reset"))
	userUC := usecase.NewUserUsecase(userRepo, auditRepo, hasher)
	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo, auditRepo)
	importUC := usecase.NewImportUsecase(spreadsheet.NewXLSXReader(), productRepo, auditRepo)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, cartRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txm, idemCache, publisher, m, log.WithField("component", "orders"))
	adminOrderUC := usecase.NewAdminOrderUsecase(txm)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	//Handler生成
	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, log)
	handlers := server.Handlers{
		Auth:         handler.NewAuthHandler(registerUC, loginUC, resetUC, userUC, cfg.IsProd()),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC, importUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminUser:    handler.NewAdminUserHandler(userUC, auditUC),
	}

	e := server.New(log, m)
	server.RegisterRoutes(e, handlers, tokens, userRepo, limiter, m.Handler())

	//定期ジョブ
	scheduler := jobs.NewScheduler(log.WithField("component", "jobs"), m)
	if err := jobs.RegisterMaintenance(scheduler, cfg.MaintenanceCron, userRepo, cartRepo, limiter); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	//Server起動
	return server.Run(ctx, e, server.Addr(cfg.Port), log)
}
