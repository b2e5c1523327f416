// storectl 运维命令：初始化数据、清理 outbox、取消超时未付款订单、库存巡检
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/database"
	"github.com/d60-Lab/storefront/pkg/logger"
	"github.com/d60-Lab/storefront/pkg/mailer"
)

func must[T any](v T, err error) T {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return v
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storectl <command> [flags]

commands:
  seed            create the admin account and sample products
  expire-unpaid   cancel pending_payment orders older than -older-than (stock is restored)
  cleanup         delete delivered outbox events older than -days
  reset-orders    delete every order and its history (requires -yes)
  check-products  report products at or below -threshold units`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	cfg := must(config.Load())
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	defer func() { _ = logger.Sync() }()
	db := must(database.InitDB(cfg))
	defer func() { _ = database.Close(db) }()
	if err := repository.AutoMigrate(db); err != nil {
		logger.Fatal("auto migrate", zap.Error(err))
	}
	ctx := context.Background()

	switch cmd {
	case "seed":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", envOr("ADMIN_EMAIL", "admin@example.com"), "admin email")
		password := fs.String("password", envOr("ADMIN_PASSWORD", ""), "admin password")
		products := fs.Bool("products", true, "also create sample products")
		_ = fs.Parse(args)
		n := must(seed(ctx, db, *email, *password, *products))
		fmt.Printf("seeded %d sample products\n", n)
	case "expire-unpaid":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		olderThan := fs.Duration("older-than", 24*time.Hour, "minimum order age")
		_ = fs.Parse(args)
		n := must(expireUnpaid(ctx, cfg, db, *olderThan))
		fmt.Printf("cancelled %d unpaid orders\n", n)
	case "cleanup":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		days := fs.Int("days", 7, "keep delivered events for this many days")
		_ = fs.Parse(args)
		before := time.Now().UTC().AddDate(0, 0, -*days)
		n := must(repository.NewOutboxRepository(db).Purge(ctx, before))
		fmt.Printf("purged %d outbox events\n", n)
	case "reset-orders":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		yes := fs.Bool("yes", false, "confirm deletion")
		_ = fs.Parse(args)
		if !*yes {
			fmt.Fprintln(os.Stderr, "refusing to delete orders without -yes")
			os.Exit(1)
		}
		must(0, resetOrders(ctx, db))
		fmt.Println("orders reset")
	case "check-products":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		threshold := fs.Int("threshold", 5, "low stock threshold")
		_ = fs.Parse(args)
		must(0, checkProducts(ctx, db, *threshold))
	default:
		usage()
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func seed(ctx context.Context, db *gorm.DB, email, password string, withProducts bool) (int, error) {
	if password == "" {
		return 0, fmt.Errorf("seed: admin password is required (-password or ADMIN_PASSWORD)")
	}
	users := repository.NewUserRepository(db)
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := users.GetByEmail(ctx, email); err == nil {
		logger.Info("admin already exists", zap.String("email", email))
	} else {
		hash, err := service.HashPassword(password)
		if err != nil {
			return 0, err
		}
		admin := &model.User{ID: uuid.NewString(), FullName: "Store Admin", Username: "admin", Email: email, Password: hash, Role: model.RoleAdmin}
		if err := users.Create(ctx, admin); err != nil {
			return 0, fmt.Errorf("seed admin: %w", err)
		}
		logger.Info("admin created", zap.String("email", email))
	}
	if !withProducts {
		return 0, nil
	}

	products := repository.NewProductRepository(db)
	existing, err := products.List(ctx, model.CategoryAll)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		logger.Info("catalog not empty, skipping sample products", zap.Int("products", len(existing)))
		return 0, nil
	}
	samples := []struct {
		name     string
		category model.Category
		price    string
		stock    int
	}{
		{"Smartphone X", model.CategoryElectronics, "24999.00", 15},
		{"Noise Cancelling Headphones", model.CategoryElectronics, "7499.50", 30},
		{"Cotton Shirt", model.CategoryFashions, "899.00", 60},
		{"Leather Boots", model.CategoryFashions, "3200.00", 20},
		{"The Go Programming Language", model.CategoryBooks, "1450.00", 40},
	}
	for _, s := range samples {
		p := &model.Product{ID: uuid.NewString(), Name: s.name, Category: s.category, Price: decimal.RequireFromString(s.price), Stock: s.stock}
		if err := products.Create(ctx, p); err != nil {
			return 0, err
		}
	}
	logger.Info("sample products created", zap.Int("count", len(samples)))
	return len(samples), nil
}

func expireUnpaid(ctx context.Context, cfg *config.Config, db *gorm.DB, olderThan time.Duration) (int, error) {
	m, err := mailer.New(cfg.Mail)
	if err != nil {
		return 0, err
	}
	notifier := service.NewNotifier(m, service.NotifierConfig{
		OperatorEmail: cfg.Mail.OperatorEmail,
		ClientURL:     cfg.Server.ClientURL,
		StoreName:     cfg.Payment.StoreName,
		MaxRetries:    cfg.Mail.MaxRetries,
		Timeout:       cfg.Mail.Timeout,
	})
	stop := notifier.Start(1)
	defer func() {
		// 等待取消通知发送完毕
		sctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := stop(sctx); err != nil {
			logger.Warn("notifier drain incomplete", zap.Error(err), zap.Any("stats", notifier.Stats()))
		}
	}()

	// 命令行进程不持有 redis 缓存，无需失效
	engine := service.NewTransitionEngine(db, notifier, nil)
	return service.NewOrderStatusService(engine, repository.NewOrderRepository(db)).ExpireUnpaid(ctx, olderThan)
}

func resetOrders(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.StatusEntry{}, &model.OrderItem{}, &model.Review{}, &model.Order{}, &model.OutboxEvent{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func checkProducts(ctx context.Context, db *gorm.DB, threshold int) error {
	list, err := repository.NewProductRepository(db).List(ctx, model.CategoryAll)
	if err != nil {
		return err
	}
	low := 0
	for _, p := range list {
		if p.Stock <= threshold {
			low++
			fmt.Printf("%-36s  %-32s  stock=%d\n", p.ID, p.Name, p.Stock)
		}
	}
	fmt.Printf("%d of %d products at or below %d units\n", low, len(list), threshold)
	return nil
}
