package model

import "strings"

// ==================== 营养等级 ====================

// NutritionGrade Nutri-Score 等级，a 最好，e 最差
type NutritionGrade string

const (
	NutritionGradeA NutritionGrade = "a"
	NutritionGradeB NutritionGrade = "b"
	NutritionGradeC NutritionGrade = "c"
	NutritionGradeD NutritionGrade = "d"
	NutritionGradeE NutritionGrade = "e"
)

// ParseNutritionGrade 归一化上游等级 (去空白、转小写)
func ParseNutritionGrade(s string) (NutritionGrade, bool) {
	g := NutritionGrade(strings.ToLower(strings.TrimSpace(s)))
	return g, g.Valid()
}

// Valid 是否为 a-e 之一
func (g NutritionGrade) Valid() bool {
	switch g {
	case NutritionGradeA, NutritionGradeB, NutritionGradeC, NutritionGradeD, NutritionGradeE:
		return true
	}
	return false
}

// ==================== 商品 ====================

// Product 商品
// Name 是导入时判断新建/更新的自然键
type Product struct {
	BaseModel

	// --- 基本信息 ---
	Name           string         `gorm:"type:text;uniqueIndex;not null" json:"name"`
	NutritionGrade NutritionGrade `gorm:"size:1;index;not null" json:"nutrition_grade"`
	URL            *string        `gorm:"column:url;type:text;uniqueIndex" json:"url"` // 可为空，非空时唯一
	ImageURL       string         `gorm:"column:image_url;type:text" json:"image_url"`

	// --- 每 100g 营养成分 ---
	Energy100g        int     `gorm:"column:energy_100g;not null;default:0" json:"energy_100g"`
	EnergyUnit        string  `gorm:"column:energy_unit;size:16" json:"energy_unit"`
	Carbohydrates100g float64 `gorm:"column:carbohydrates_100g" json:"carbohydrates_100g"`
	Sugars100g        float64 `gorm:"column:sugars_100g" json:"sugars_100g"`
	Fat100g           float64 `gorm:"column:fat_100g" json:"fat_100g"`
	SaturatedFat100g  float64 `gorm:"column:saturated_fat_100g" json:"saturated_fat_100g"`
	Salt100g          float64 `gorm:"column:salt_100g" json:"salt_100g"`
	Sodium100g        float64 `gorm:"column:sodium_100g" json:"sodium_100g"`
	Fiber100g         float64 `gorm:"column:fiber_100g" json:"fiber_100g"`
	Proteins100g      float64 `gorm:"column:proteins_100g" json:"proteins_100g"`

	// --- 关联关系 ---
	Categories []Category `gorm:"many2many:product_categories;" json:"categories,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// SameFields 比较导入覆盖的全部字段 (不含 ID/时间戳/关联)
func (p *Product) SameFields(o *Product) bool {
	return p.Name == o.Name &&
		p.NutritionGrade == o.NutritionGrade &&
		sameURL(p.URL, o.URL) &&
		p.ImageURL == o.ImageURL &&
		p.Energy100g == o.Energy100g &&
		p.EnergyUnit == o.EnergyUnit &&
		p.Carbohydrates100g == o.Carbohydrates100g &&
		p.Sugars100g == o.Sugars100g &&
		p.Fat100g == o.Fat100g &&
		p.SaturatedFat100g == o.SaturatedFat100g &&
		p.Salt100g == o.Salt100g &&
		p.Sodium100g == o.Sodium100g &&
		p.Fiber100g == o.Fiber100g &&
		p.Proteins100g == o.Proteins100g
}

// CopyFieldsFrom 用 src 覆盖导入字段，保留 ID 与 CreatedAt
func (p *Product) CopyFieldsFrom(src *Product) {
	p.Name = src.Name
	p.NutritionGrade = src.NutritionGrade
	p.URL = src.URL
	p.ImageURL = src.ImageURL
	p.Energy100g = src.Energy100g
	p.EnergyUnit = src.EnergyUnit
	p.Carbohydrates100g = src.Carbohydrates100g
	p.Sugars100g = src.Sugars100g
	p.Fat100g = src.Fat100g
	p.SaturatedFat100g = src.SaturatedFat100g
	p.Salt100g = src.Salt100g
	p.Sodium100g = src.Sodium100g
	p.Fiber100g = src.Fiber100g
	p.Proteins100g = src.Proteins100g
}

// CategoryNames 已加载分类的名称列表
func (p *Product) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return names
}

func sameURL(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
