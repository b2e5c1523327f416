package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/internal/api"
	"github.com/d60-Lab/storefront/internal/api/handler"
	"github.com/d60-Lab/storefront/internal/cache"
	"github.com/d60-Lab/storefront/internal/events"
	"github.com/d60-Lab/storefront/internal/payment"
	"github.com/d60-Lab/storefront/internal/realtime"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/database"
	"github.com/d60-Lab/storefront/pkg/logger"
	"github.com/d60-Lab/storefront/pkg/mailer"
	"github.com/d60-Lab/storefront/pkg/token"
	"github.com/d60-Lab/storefront/pkg/tracing"
)

// @title Storefront API
// @version 1.0
// @description 订单、支付、优惠券与商品目录接口
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			SampleRate:       cfg.Sentry.SampleRate,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()
	if cfg.Database.AutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			logger.Fatal("auto migrate", zap.Error(err))
		}
	}

	catalog := cache.NewCatalogCache(nil, cfg.Cache.CatalogTTL)
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			catalog = cache.NewCatalogCache(rdb, cfg.Cache.CatalogTTL)
		}
	}

	m, err := mailer.New(cfg.Mail)
	if err != nil {
		logger.Fatal("init mailer", zap.Error(err))
	}
	notifier := service.NewNotifier(m, service.NotifierConfig{
		OperatorEmail: cfg.Mail.OperatorEmail,
		ClientURL:     cfg.Server.ClientURL,
		StoreName:     cfg.Payment.StoreName,
		QueueSize:     cfg.Mail.QueueSize,
		MaxRetries:    cfg.Mail.MaxRetries,
		Timeout:       cfg.Mail.Timeout,
	})
	stopNotifier := notifier.Start(cfg.Mail.Workers)

	gateway, err := payment.New(cfg.Payment)
	if err != nil {
		logger.Fatal("init payment gateway", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)

	auth := service.NewAuthService(users, token.NewManager(cfg.JWT.Secret, cfg.JWT.Expire))
	engine := service.NewTransitionEngine(db, notifier, catalog)
	coupons := service.NewCouponService(repository.NewCouponRepository(db))
	payments := service.NewPaymentService(orders, gateway, engine, service.PaymentOptions{
		Currency:  cfg.Payment.Currency,
		StoreName: cfg.Payment.StoreName,
		ClientURL: cfg.Server.ClientURL,
	})

	hub := realtime.NewHub(cfg.Server.CORSOrigins)
	defer hub.Close()
	publishers := []service.EventPublisher{hub}
	if cfg.Kafka.Enabled {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = kp.Close() }()
		publishers = append(publishers, kp)
	}
	relay := service.NewOutboxRelay(repository.NewOutboxRepository(db), publishers,
		cfg.Outbox.Workers, cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)
	stopRelay := relay.Start()

	h := handler.NewHandler(handler.Services{
		Auth:     auth,
		Products: service.NewProductService(products, orders, catalog),
		Orders:   service.NewOrderService(db, engine, payments, coupons, notifier, catalog),
		Statuses: service.NewOrderStatusService(engine, orders),
		Payments: payments,
		Coupons:  coupons,
		Reviews:  service.NewReviewService(repository.NewReviewRepository(db), orders, products),
		Comments: service.NewCommentService(repository.NewCommentRepository(db)),
		Users:    service.NewUserService(users, products, orders),
		Audit:    service.NewAuditService(repository.NewAuditRepository(db)),
	}, hub, cfg.Store, cfg.Upload)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(cfg, h, auth),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := stopRelay(shutdownCtx); err != nil {
		logger.Error("outbox relay shutdown", zap.Error(err))
	}
	if err := stopNotifier(shutdownCtx); err != nil {
		logger.Error("notifier shutdown", zap.Error(err), zap.Any("stats", notifier.Stats()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
