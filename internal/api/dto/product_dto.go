package dto

import (
	"time"

	"purbeurre_v2_202610/internal/model"
)

// ==================== 请求 DTO ====================

// SaveFavoriteReq 保存替代品请求 (JSON 或表单)
type SaveFavoriteReq struct {
	ProductID    int64 `json:"product_id" form:"product_id" binding:"required,gt=0"`
	SubstituteID int64 `json:"substitute_id" form:"substitute_id" binding:"required,gt=0"`
}

// ==================== 响应 DTO ====================

// ProductSummary 列表中的商品
type ProductSummary struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	NutritionGrade string `json:"nutrition_grade"`
	Energy100g     int    `json:"energy_100g"`
	ImageURL       string `json:"image_url"`
}

// ProductResp 商品详情
type ProductResp struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	NutritionGrade string   `json:"nutrition_grade"`
	URL            string   `json:"url"`
	ImageURL       string   `json:"image_url"`
	Categories     []string `json:"categories"`

	// 每 100g
	Energy100g        int     `json:"energy_100g"`
	EnergyUnit        string  `json:"energy_unit"`
	Carbohydrates100g float64 `json:"carbohydrates_100g"`
	Sugars100g        float64 `json:"sugars_100g"`
	Fat100g           float64 `json:"fat_100g"`
	SaturatedFat100g  float64 `json:"saturated_fat_100g"`
	Salt100g          float64 `json:"salt_100g"`
	Sodium100g        float64 `json:"sodium_100g"`
	Fiber100g         float64 `json:"fiber_100g"`
	Proteins100g      float64 `json:"proteins_100g"`
}

// ProductListResp 搜索结果
type ProductListResp struct {
	Code     int              `json:"code"`
	Message  string           `json:"message"`
	Data     []ProductSummary `json:"data"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// SubstituteResp 替代品结果
type SubstituteResp struct {
	Product     ProductSummary   `json:"product"`
	MinShared   int              `json:"min_shared,omitempty"`
	Substitutes []ProductSummary `json:"substitutes"`
}

// FavoriteResp 收藏
type FavoriteResp struct {
	ID         int64           `json:"id"`
	Product    *ProductSummary `json:"product"`
	Substitute *ProductSummary `json:"substitute"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ==================== 转换 ====================

func ToProductSummary(p *model.Product) ProductSummary {
	return ProductSummary{
		ID:             p.ID,
		Name:           p.Name,
		NutritionGrade: string(p.NutritionGrade),
		Energy100g:     p.Energy100g,
		ImageURL:       p.ImageURL,
	}
}

func ToProductSummaries(products []model.Product) []ProductSummary {
	out := make([]ProductSummary, 0, len(products))
	for i := range products {
		out = append(out, ToProductSummary(&products[i]))
	}
	return out
}

func ToProductResp(p *model.Product) ProductResp {
	resp := ProductResp{
		ID:                p.ID,
		Name:              p.Name,
		NutritionGrade:    string(p.NutritionGrade),
		ImageURL:          p.ImageURL,
		Categories:        p.CategoryNames(),
		Energy100g:        p.Energy100g,
		EnergyUnit:        p.EnergyUnit,
		Carbohydrates100g: p.Carbohydrates100g,
		Sugars100g:        p.Sugars100g,
		Fat100g:           p.Fat100g,
		SaturatedFat100g:  p.SaturatedFat100g,
		Salt100g:          p.Salt100g,
		Sodium100g:        p.Sodium100g,
		Fiber100g:         p.Fiber100g,
		Proteins100g:      p.Proteins100g,
	}
	if p.URL != nil {
		resp.URL = *p.URL
	}
	return resp
}

func ToFavoriteResp(f *model.SavedSubstitution) FavoriteResp {
	resp := FavoriteResp{ID: f.ID, CreatedAt: f.CreatedAt}
	if f.Product != nil {
		s := ToProductSummary(f.Product)
		resp.Product = &s
	}
	if f.Substitute != nil {
		s := ToProductSummary(f.Substitute)
		resp.Substitute = &s
	}
	return resp
}
