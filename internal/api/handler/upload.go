package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/logger"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// saveImage 保存表单中的图片到 upload.dir/sub，返回对外访问路径；字段缺失时返回空串
func (h *Handler) saveImage(c *gin.Context, field, sub string) (string, error) {
	file, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", service.ErrInvalidInput, field, err)
	}
	if file.Size > h.upload.MaxSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", service.ErrInvalidInput, field, h.upload.MaxSize)
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExts[ext] {
		return "", fmt.Errorf("%w: %s must be an image", service.ErrInvalidInput, field)
	}

	dir := filepath.Join(h.upload.Dir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		return "", err
	}
	return path.Join("/uploads", sub, name), nil
}

// discardImage 删除请求失败时已保存的图片
func (h *Handler) discardImage(url string) {
	if url == "" {
		return
	}
	rel, ok := strings.CutPrefix(url, "/uploads/")
	if !ok {
		return
	}
	if err := os.Remove(filepath.Join(h.upload.Dir, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		logger.Warn("remove upload failed", zap.String("path", url), zap.Error(err))
	}
}
