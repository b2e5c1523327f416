package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/logger"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout      = "2006-01-02 15:04:05"
	exportPageSize  = 100
)

// ExportProducts 导出商品
// @Summary 导出商品表（xlsx）
// @Tags 管理
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Router /api/v1/admin/export/products [get]
func (h *Handler) ExportProducts(c *gin.Context) {
	products, err := h.productService.List(c.Request.Context(), model.CategoryAll)
	if err != nil {
		renderError(c, err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		renderError(c, err)
		return
	}
	addRow(sheet, "ID", "Name", "Category", "Price", "Stock", "Description", "Image", "CreatedAt")
	for _, p := range products {
		addRow(sheet, p.ID, p.Name, string(p.Category), p.Price.StringFixed(2), strconv.Itoa(p.Stock),
			p.Description, p.Image, p.CreatedAt.Format(timeLayout))
	}
	writeWorkbook(c, file, "products")
}

// ExportOrders 导出订单
// @Summary 导出订单表（xlsx，可按状态过滤）
// @Tags 管理
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "状态"
// @Router /api/v1/admin/export/orders [get]
func (h *Handler) ExportOrders(c *gin.Context) {
	filter := repository.OrderFilter{Status: model.OrderStatus(c.Query("status")), Page: 1, PageSize: exportPageSize}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		renderError(c, err)
		return
	}
	addRow(sheet, "ID", "Customer", "Email", "Status", "Items", "Subtotal", "Discount", "Total", "Coupon", "Phone", "Address", "CreatedAt")
	for {
		orders, total, err := h.orderService.ListAll(c.Request.Context(), filter)
		if err != nil {
			renderError(c, err)
			return
		}
		for _, o := range orders {
			addRow(sheet, o.ID, o.DeliveryInfo.Name, o.DeliveryInfo.Email, string(o.Status), itemSummary(o),
				o.Subtotal.StringFixed(2), o.Discount.StringFixed(2), o.TotalPrice.StringFixed(2),
				o.CouponCode, o.DeliveryInfo.Phone, o.DeliveryInfo.Address, o.CreatedAt.Format(timeLayout))
		}
		if len(orders) == 0 || int64(filter.Page*filter.PageSize) >= total {
			break
		}
		filter.Page++
	}
	writeWorkbook(c, file, "orders")
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func itemSummary(o *model.Order) string {
	out := ""
	for i, it := range o.Items {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s x%d", it.ProductName, it.Quantity)
	}
	return out
}

func writeWorkbook(c *gin.Context, file *xlsx.File, name string) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Transfer-Encoding", "binary")
	if err := file.Write(c.Writer); err != nil {
		logger.Error("write workbook failed", zap.String("name", name), zap.Error(err))
	}
}
