package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"purbeurre_v2_202610/internal/repository"
	"purbeurre_v2_202610/internal/service"
)

// respondOK 统一成功响应
func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{"code": 0, "message": message, "data": data})
}

// fail 统一失败响应
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message})
}

// failWithError 按错误类型映射状态码，未知错误不向外暴露细节
func failWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		fail(c, http.StatusNotFound, "商品不存在")
	case errors.Is(err, repository.ErrFavoriteNotFound):
		fail(c, http.StatusNotFound, "收藏不存在")
	case errors.Is(err, service.ErrInvalidFavorite):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "服务器内部错误")
	}
}

// parseID 解析路径中的正整数 ID
func parseID(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt 读取可选整数参数，缺省返回 def
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
