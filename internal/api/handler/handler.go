package handler

import (
	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/internal/realtime"
	"github.com/d60-Lab/storefront/internal/service"
)

// Services 处理器依赖的业务服务
type Services struct {
	Auth     service.AuthService
	Products service.ProductService
	Orders   service.OrderService
	Statuses service.OrderStatusService
	Payments service.PaymentService
	Coupons  service.CouponService
	Reviews  service.ReviewService
	Comments service.CommentService
	Users    service.UserService
	Audit    service.AuditService
}

// Handler HTTP 处理器
type Handler struct {
	authService    service.AuthService
	productService service.ProductService
	orderService   service.OrderService
	statusService  service.OrderStatusService
	paymentService service.PaymentService
	couponService  service.CouponService
	reviewService  service.ReviewService
	commentService service.CommentService
	userService    service.UserService
	auditService   service.AuditService

	hub    *realtime.Hub
	store  config.StoreConfig
	upload config.UploadConfig
}

// NewHandler 创建处理器，hub 为空时实时订单流不可用
func NewHandler(svc Services, hub *realtime.Hub, store config.StoreConfig, upload config.UploadConfig) *Handler {
	if upload.Dir == "" {
		upload.Dir = "uploads"
	}
	if upload.MaxSize <= 0 {
		upload.MaxSize = 5 << 20
	}
	return &Handler{
		authService:    svc.Auth,
		productService: svc.Products,
		orderService:   svc.Orders,
		statusService:  svc.Statuses,
		paymentService: svc.Payments,
		couponService:  svc.Coupons,
		reviewService:  svc.Reviews,
		commentService: svc.Comments,
		userService:    svc.Users,
		auditService:   svc.Audit,
		hub:            hub,
		store:          store,
		upload:         upload,
	}
}
