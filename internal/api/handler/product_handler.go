package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/internal/api/middleware"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

// ListProducts 商品列表
// @Summary 商品列表
// @Tags 商品
// @Produce json
// @Param category query string false "分类：electronics/fashions/books/all"
// @Success 200 {object} response.Response{data=[]model.Product}
// @Router /api/v1/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.productService.List(c.Request.Context(), model.Category(c.Query("category")))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, products)
}

// GetProduct 商品详情
// @Summary 商品详情
// @Tags 商品
// @Produce json
// @Param id path string true "商品ID"
// @Success 200 {object} response.Response{data=model.Product}
// @Failure 404 {object} response.Response
// @Router /api/v1/products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.productService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, p)
}

// CreateProduct 新建商品
// @Summary 新建商品（管理员）
// @Tags 商品
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "名称"
// @Param price formData string true "价格"
// @Param category formData string false "分类"
// @Param description formData string false "描述"
// @Param stock formData int false "库存"
// @Param image formData file false "图片"
// @Success 201 {object} response.Response{data=model.Product}
// @Router /api/v1/products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	in, err := h.productInput(c)
	if err != nil {
		renderError(c, err)
		return
	}
	p, err := h.productService.Create(c.Request.Context(), in)
	if err != nil {
		h.discardUploaded(in)
		renderError(c, err)
		return
	}
	h.record(c, model.AuditCreateProduct, p.ID, gin.H{"name": p.Name})
	response.Created(c, p)
}

// UpdateProduct 修改商品
// @Summary 修改商品（管理员，未提交的字段保持不变）
// @Tags 商品
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Success 200 {object} response.Response{data=model.Product}
// @Router /api/v1/products/{id} [put]
func (h *Handler) UpdateProduct(c *gin.Context) {
	in, err := h.productInput(c)
	if err != nil {
		renderError(c, err)
		return
	}
	p, err := h.productService.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.discardUploaded(in)
		renderError(c, err)
		return
	}
	h.record(c, model.AuditUpdateProduct, p.ID, gin.H{"name": p.Name})
	response.Success(c, p)
}

// DeleteProduct 删除商品
// @Summary 删除商品（管理员）。有历史订单时需 force=true，此时软删除
// @Tags 商品
// @Produce json
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Param force query bool false "强制删除"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/products/{id} [delete]
func (h *Handler) DeleteProduct(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))
	id := c.Param("id")
	soft, err := h.productService.Delete(c.Request.Context(), id, force)
	if err != nil {
		renderError(c, err)
		return
	}
	h.record(c, model.AuditDeleteProduct, id, gin.H{"soft": soft})
	response.Success(c, gin.H{"id": id, "soft_deleted": soft})
}

// productInput 从表单读取商品字段，只填充提交了的字段
func (h *Handler) productInput(c *gin.Context) (service.ProductInput, error) {
	var in service.ProductInput
	if v, ok := c.GetPostForm("name"); ok {
		in.Name = &v
	}
	if v, ok := c.GetPostForm("category"); ok {
		cat := model.Category(v)
		in.Category = &cat
	}
	if v, ok := c.GetPostForm("description"); ok {
		in.Description = &v
	}
	if v, ok := c.GetPostForm("price"); ok {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return in, fmt.Errorf("%w: price must be a number", service.ErrInvalidInput)
		}
		in.Price = &price
	}
	if v, ok := c.GetPostForm("stock"); ok {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return in, fmt.Errorf("%w: stock must be an integer", service.ErrInvalidInput)
		}
		in.Stock = &stock
	}
	img, err := h.saveImage(c, "image", "products")
	if err != nil {
		return in, err
	}
	if img != "" {
		in.Image = &img
	}
	return in, nil
}

func (h *Handler) discardUploaded(in service.ProductInput) {
	if in.Image != nil {
		h.discardImage(*in.Image)
	}
}

// record 记录管理员操作
func (h *Handler) record(c *gin.Context, action, target string, details any) {
	admin := middleware.CurrentUser(c)
	if admin == nil || h.auditService == nil {
		return
	}
	h.auditService.Record(c.Request.Context(), service.AuditEntry{
		AdminID: admin.ID,
		Action:  action,
		Target:  target,
		Details: details,
		IP:      c.ClientIP(),
	})
}
