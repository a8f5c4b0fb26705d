package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"purbeurre_v2_202610/internal/api/dto"
	"purbeurre_v2_202610/internal/middleware"
	"purbeurre_v2_202610/internal/service"
)

type FavoriteController struct {
	favorites *service.FavoriteService
}

func NewFavoriteController(favorites *service.FavoriteService) *FavoriteController {
	return &FavoriteController{favorites: favorites}
}

// Save 保存替代品
// @Summary 保存 (商品, 替代品)，重复保存不报错
// @Tags Favorite
// @Param body body dto.SaveFavoriteReq true "商品与替代品"
// @Success 201 {object} dto.FavoriteResp
// @Success 200 {object} dto.FavoriteResp "already saved"
// @Router /save [post]
func (ctrl *FavoriteController) Save(c *gin.Context) {
	var req dto.SaveFavoriteReq
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误: 需要 product_id 与 substitute_id")
		return
	}

	fav, created, err := ctrl.favorites.Save(c.Request.Context(), middleware.GetUserID(c), req.ProductID, req.SubstituteID)
	if err != nil {
		failWithError(c, err)
		return
	}

	data := gin.H{
		"id":            fav.ID,
		"product_id":    fav.ProductID,
		"substitute_id": fav.SubstituteID,
		"created":       created,
	}
	if created {
		respondOK(c, http.StatusCreated, "saved", data)
		return
	}
	respondOK(c, http.StatusOK, "already saved", data)
}

// List 我的收藏
// @Summary 当前用户的收藏，按商品ID排序
// @Tags Favorite
// @Success 200 {array} dto.FavoriteResp
// @Router /favorites [get]
func (ctrl *FavoriteController) List(c *gin.Context) {
	favs, err := ctrl.favorites.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		failWithError(c, err)
		return
	}

	list := make([]dto.FavoriteResp, 0, len(favs))
	for i := range favs {
		list = append(list, dto.ToFavoriteResp(&favs[i]))
	}
	respondOK(c, http.StatusOK, "success", list)
}

// Delete 删除收藏
// @Summary 删除自己的收藏
// @Tags Favorite
// @Param id path int true "收藏ID"
// @Success 200
// @Router /delete/{id} [post]
func (ctrl *FavoriteController) Delete(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, "无效的收藏ID")
		return
	}

	if err := ctrl.favorites.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		failWithError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "deleted", gin.H{"id": id})
}
