package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"purbeurre_v2_202610/internal/api/dto"
	"purbeurre_v2_202610/internal/service"
)

type ProductController struct {
	catalog     *service.CatalogService
	substitutes *service.SubstituteService
}

func NewProductController(catalog *service.CatalogService, substitutes *service.SubstituteService) *ProductController {
	return &ProductController{catalog: catalog, substitutes: substitutes}
}

// ==================== 查询接口 ====================

// Search 按名称搜索商品
// @Summary 商品名称模糊搜索 (不区分大小写)，按名称排序
// @Tags Product
// @Param q query string false "关键字"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(6)
// @Success 200 {object} dto.ProductListResp
// @Router /search [get]
func (ctrl *ProductController) Search(c *gin.Context) {
	page, okPage := queryInt(c, "page", 1)
	pageSize, okSize := queryInt(c, "page_size", service.DefaultSearchPageSize)
	if !okPage || !okSize {
		fail(c, http.StatusBadRequest, "无效的分页参数")
		return
	}

	res, err := ctrl.catalog.Search(c.Request.Context(), c.Query("q"), page, pageSize)
	if err != nil {
		failWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProductListResp{
		Code:     0,
		Message:  "success",
		Data:     dto.ToProductSummaries(res.Products),
		Total:    res.Total,
		Page:     res.Page,
		PageSize: res.PageSize,
	})
}

// Substitute 查询替代品
// @Summary 共享足够分类且营养等级不差的替代品
// @Tags Product
// @Param id path int true "商品ID"
// @Param min_shared query int false "最少共享分类数"
// @Success 200 {object} dto.SubstituteResp
// @Router /substitute/{id} [get]
func (ctrl *ProductController) Substitute(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, "无效的商品ID")
		return
	}
	minShared, valid := queryInt(c, "min_shared", 0)
	if !valid {
		fail(c, http.StatusBadRequest, "无效的 min_shared")
		return
	}

	res, err := ctrl.substitutes.FindSubstitutes(c.Request.Context(), id, minShared)
	if err != nil {
		failWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "success", dto.SubstituteResp{
		Product:     dto.ToProductSummary(res.Product),
		MinShared:   res.MinShared,
		Substitutes: dto.ToProductSummaries(res.Substitutes),
	})
}

// Details 商品详情
// @Summary 商品详情及分类
// @Tags Product
// @Param id path int true "商品ID"
// @Success 200 {object} dto.ProductResp
// @Router /details/{id} [get]
func (ctrl *ProductController) Details(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, "无效的商品ID")
		return
	}

	product, err := ctrl.catalog.Details(c.Request.Context(), id)
	if err != nil {
		failWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "success", dto.ToProductResp(product))
}
