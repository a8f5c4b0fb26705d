package openfoodfacts

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ==========================================
// DTO: 用于接收 Open Food Facts 返回的原始 JSON 数据
// ==========================================

// CategoriesResp 分类列表响应
// GET /categories.json
type CategoriesResp struct {
	Count int           `json:"count"`
	Tags  []CategoryTag `json:"tags"`
}

// CategoryTag 单个分类及其商品数
type CategoryTag struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Products int    `json:"products"`
	URL      string `json:"url,omitempty"`
}

// SearchResp 商品搜索响应
// GET /cgi/search.pl?action=process&tagtype_0=categories...
// Products 逐条解码，单条类型不符不影响整页
type SearchResp struct {
	Count    int               `json:"count"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Products []json.RawMessage `json:"products"`
}

// Records 解码商品列表，无法解码的记录标记为 Malformed
func (r SearchResp) Records() []RawProduct {
	records := make([]RawProduct, 0, len(r.Products))
	for _, msg := range r.Products {
		var p RawProduct
		if err := json.Unmarshal(msg, &p); err != nil {
			p = RawProduct{Malformed: true, DecodeErr: err.Error()}
		}
		records = append(records, p)
	}
	return records
}

// RawProduct 上游商品原始记录
type RawProduct struct {
	ProductName      string     `json:"product_name"`
	NutritionGradeFr string     `json:"nutrition_grade_fr"`
	URL              string     `json:"url"`
	ImageFrontURL    string     `json:"image_front_url"`
	Categories       string     `json:"categories"` // "a,b,c"
	Nutriments       Nutriments `json:"nutriments"`

	Malformed bool   `json:"-"`
	DecodeErr string `json:"-"`
}

// Nutriments 营养成分子记录
// 上游字段类型不稳定 (数字/字符串/null 都出现过)，统一用 FlexFloat 接收
type Nutriments struct {
	EnergyValue       FlexFloat `json:"energy_value"`
	Energy100g        FlexFloat `json:"energy_100g"`
	EnergyUnit        string    `json:"energy_unit"`
	Carbohydrates100g FlexFloat `json:"carbohydrates_100g"`
	Sugars100g        FlexFloat `json:"sugars_100g"`
	Fat100g           FlexFloat `json:"fat_100g"`
	SaturatedFat100g  FlexFloat `json:"saturated-fat_100g"`
	Salt100g          FlexFloat `json:"salt_100g"`
	Sodium100g        FlexFloat `json:"sodium_100g"`
	Fiber100g         FlexFloat `json:"fiber_100g"`
	Proteins100g      FlexFloat `json:"proteins_100g"`
}

// Energy 每 100g 能量，优先 energy_value，缺失时回退 energy_100g
func (n Nutriments) Energy() float64 {
	if n.EnergyValue.Present {
		return n.EnergyValue.Value
	}
	return n.Energy100g.Value
}

// CategoryNames 拆分逗号分隔的分类串，去除首尾空白并丢弃空段
func (p RawProduct) CategoryNames() []string {
	parts := strings.Split(p.Categories, ",")
	names := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// ==========================================
// FlexFloat
// ==========================================

// FlexFloat 兼容数字、数字字符串与 null 的浮点数
// Present=false 表示字段缺失、为 null、无法解析或不是有限值 (NaN/Inf)
type FlexFloat struct {
	Value   float64
	Present bool
}

// Float 构造一个存在的值
func Float(v float64) FlexFloat {
	return FlexFloat{Value: v, Present: true}
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FlexFloat{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = FlexFloat{}
			return nil
		}
		*f = finite(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*f = FlexFloat{}
		return nil
	}
	*f = finite(v)
	return nil
}

func finite(v float64) FlexFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FlexFloat{}
	}
	return Float(v)
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Present {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
