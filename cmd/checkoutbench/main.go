package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/payment"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// 并发下单压测：N 个用户抢 STOCK 件库存，可选共享一张 USES 次的优惠券；
// 结束后校验库存、订单数与优惠券剩余次数
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	must(0, repository.AutoMigrate(db))

	N := envInt("N", 2000)
	CONC := envInt("CONC", 16)
	STOCK := envInt("STOCK", 500)
	USES := envInt("USES", 0)
	online := os.Getenv("PAY") == "1"

	ctx := context.Background()
	orderRepo := repository.NewOrderRepository(db)
	engine := service.NewTransitionEngine(db, nil, nil)
	coupons := service.NewCouponService(repository.NewCouponRepository(db))
	payments := service.NewPaymentService(orderRepo, payment.NewMock(), engine, service.PaymentOptions{Currency: cfg.Payment.Currency, ClientURL: cfg.Server.ClientURL})
	orders := service.NewOrderService(db, engine, payments, coupons, nil, nil)

	product := &model.Product{ID: uuid.NewString(), Name: "bench item", Category: model.CategoryElectronics, Price: decimal.NewFromInt(100), Stock: STOCK}
	must(0, db.Create(product).Error)

	code := ""
	if USES > 0 {
		code = "BENCH" + product.ID[:6]
		must(coupons.Create(ctx, service.CreateCouponInput{Code: code, DiscountPercent: 10, RemainingUses: USES, ExpiryDate: time.Now().Add(time.Hour)}))
	}

	users := make([]model.User, N)
	for i := range users {
		id := uuid.NewString()
		users[i] = model.User{ID: id, FullName: "Bench User", Username: "b" + id[:8], Email: id[:8] + "@bench.local", Password: "x"}
	}
	must(0, db.CreateInBatches(&users, 500).Error)

	receipt := "/uploads/receipts/bench.png"
	if online {
		receipt = ""
	}

	var placed, outOfStock, couponRefused, failed atomic.Int64
	lat := make([]time.Duration, N)
	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)

	workers := CONC
	if workers > N {
		workers = N
	}
	var wg sync.WaitGroup
	t0 := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				_, err := orders.Create(ctx, service.CreateOrderInput{
					UserID:       users[i].ID,
					Lines:        []service.CartLine{{ProductID: product.ID, Quantity: 1}},
					Delivery:     model.DeliveryInfo{Name: "Bench User", Phone: "0900000000", Email: users[i].Email, Address: "bench"},
					CouponCode:   code,
					ReceiptImage: receipt,
				})
				lat[i] = time.Since(st)
				switch {
				case err == nil:
					placed.Add(1)
				case errors.Is(err, service.ErrInsufficientStock):
					outOfStock.Add(1)
				case errors.Is(err, service.ErrCouponExhausted):
					couponRefused.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	total := time.Since(t0)

	pct := func(vs []time.Duration, p float64) time.Duration {
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 {
			k = 0
		}
		return xs[k]
	}

	var after model.Product
	must(0, db.First(&after, "id = ?", product.ID).Error)

	fmt.Printf("N=%d, CONC=%d, STOCK=%d, USES=%d, PAY=%v\n", N, CONC, STOCK, USES, online)
	fmt.Printf("total: %v, throughput: %.1f orders/s\n", total, float64(N)/total.Seconds())
	fmt.Printf("latency p50: %v, p95: %v, p99: %v\n", pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	fmt.Printf("placed=%d out_of_stock=%d coupon_refused=%d failed=%d\n", placed.Load(), outOfStock.Load(), couponRefused.Load(), failed.Load())
	fmt.Printf("stock left=%d (expected %d)\n", after.Stock, STOCK-int(placed.Load()))
	if after.Stock < 0 || after.Stock != STOCK-int(placed.Load()) {
		fmt.Println("INVARIANT VIOLATED: stock accounting mismatch")
		os.Exit(1)
	}
	if USES > 0 {
		c := must(repository.NewCouponRepository(db).GetByCode(ctx, code))
		fmt.Printf("coupon remaining=%d\n", c.RemainingUses)
		if c.RemainingUses < 0 || int(placed.Load()) > USES {
			fmt.Println("INVARIANT VIOLATED: coupon over-consumed")
			os.Exit(1)
		}
	}
}
