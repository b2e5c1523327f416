package api

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/storefront/config"
	_ "github.com/d60-Lab/storefront/docs"
	"github.com/d60-Lab/storefront/internal/api/handler"
	"github.com/d60-Lab/storefront/internal/api/middleware"
	"github.com/d60-Lab/storefront/internal/service"
)

const streamPath = "/api/v1/admin/orders/stream"

// NewRouter 组装中间件与全部路由
func NewRouter(cfg *config.Config, h *handler.Handler, auth service.AuthService) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxSize + 1<<20

	r.Use(
		gin.Recovery(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
		otelgin.Middleware(cfg.Tracing.ServiceName),
		middleware.RequestLogger(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{streamPath})),
	)
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	}

	r.Static("/uploads", cfg.Upload.Dir)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.Health)
	v1.GET("/config/bank", h.BankConfig)

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)

	v1.GET("/products", h.ListProducts)
	v1.GET("/products/:id", h.GetProduct)
	v1.GET("/reviews/:productId", h.ListReviews)
	v1.POST("/coupons/validate", h.ValidateCoupon)

	authed := v1.Group("", middleware.Auth(auth))
	authed.GET("/auth/me", h.Me)
	authed.PUT("/auth/me", h.UpdateMe)

	authed.POST("/orders", h.CreateOrder)
	authed.GET("/orders/me", h.MyOrders)
	authed.GET("/orders/:id", h.GetOrder)
	authed.PUT("/orders/:id/cancel", h.CancelOrder)
	authed.PUT("/orders/:id/resubmit", h.ResubmitReceipt)
	authed.GET("/payment/verify/:id", h.VerifyPayment)

	authed.POST("/reviews", h.CreateReview)
	authed.POST("/comments", h.CreateComment)

	admin := authed.Group("", middleware.AdminOnly())
	admin.GET("/orders", h.ListOrders)
	admin.PUT("/orders/:id", h.UpdateOrderStatus)

	admin.POST("/products", h.CreateProduct)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)

	admin.POST("/coupons", h.CreateCoupon)
	admin.GET("/coupons", h.ListCoupons)
	admin.DELETE("/coupons/:id", h.DeleteCoupon)

	admin.GET("/comments", h.ListComments)
	admin.PUT("/comments/:id", h.ReplyComment)
	admin.DELETE("/comments/:id", h.DeleteComment)

	back := admin.Group("/admin")
	back.GET("/stats", h.Stats)
	back.GET("/users", h.ListUsers)
	back.GET("/users/:id", h.GetUser)
	back.PUT("/users/:id/suspend", h.ToggleSuspension)
	back.GET("/users/:id/receipts", h.UserReceipts)
	back.PUT("/orders/:id/commit", h.CommitOrder)
	back.POST("/orders/:id/resubmit-receipt", h.RequestResubmission)
	back.GET("/orders/stream", h.OrderStream)
	back.GET("/logs", h.AuditLogs)
	back.GET("/export/products", h.ExportProducts)
	back.GET("/export/orders", h.ExportOrders)

	return r
}
