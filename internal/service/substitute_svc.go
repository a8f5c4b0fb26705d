package service

import (
	"context"

	"go.uber.org/zap"

	"purbeurre_v2_202610/internal/model"
	"purbeurre_v2_202610/internal/repository"
	"purbeurre_v2_202610/pkg/metrics"
)

// DefaultMinSharedCategories 未配置时的最少共享分类数
const DefaultMinSharedCategories = 4

// SubstituteService 替代品查询
type SubstituteService struct {
	products         repository.ProductRepository
	defaultMinShared int
	logger           *zap.Logger
}

// NewSubstituteService 创建替代品服务
func NewSubstituteService(products repository.ProductRepository, defaultMinShared int, logger *zap.Logger) *SubstituteService {
	if defaultMinShared <= 0 {
		defaultMinShared = DefaultMinSharedCategories
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstituteService{
		products:         products,
		defaultMinShared: defaultMinShared,
		logger:           logger,
	}
}

// SubstituteResult 替代品查询结果，MinShared 为实际使用的共享分类数
type SubstituteResult struct {
	Product     *model.Product
	Substitutes []model.Product
	MinShared   int
}

// FindSubstitutes 返回参考商品及其替代品
// minShared <= 0 时使用默认值；同一 (等级, 能量) 只保留 id 最小的一个
func (s *SubstituteService) FindSubstitutes(ctx context.Context, productID int64, minShared int) (*SubstituteResult, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if minShared <= 0 {
		minShared = s.defaultMinShared
	}

	candidates, err := s.products.FindSubstitutes(ctx, product, minShared)
	if err != nil {
		s.logger.Error("[Substitute] 查询替代品失败", zap.Int64("product_id", productID), zap.Error(err))
		return nil, err
	}

	substitutes := dedupByGradeAndEnergy(candidates)
	metrics.SubstituteResults.Observe(float64(len(substitutes)))
	return &SubstituteResult{Product: product, Substitutes: substitutes, MinShared: minShared}, nil
}

// dedupByGradeAndEnergy 输入已按 (grade, energy, id) 排序，保留每组第一个
func dedupByGradeAndEnergy(products []model.Product) []model.Product {
	type key struct {
		grade  model.NutritionGrade
		energy int
	}

	seen := make(map[key]struct{}, len(products))
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		k := key{grade: p.NutritionGrade, energy: p.Energy100g}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
