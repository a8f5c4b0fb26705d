package service

import (
	"context"

	"purbeurre_v2_202610/internal/model"
	"purbeurre_v2_202610/internal/repository"
)

const (
	DefaultSearchPageSize = 6
	MaxSearchPageSize     = 100
)

// CatalogService 商品搜索与详情
type CatalogService struct {
	products repository.ProductRepository
}

func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// SearchResult 分页搜索结果
type SearchResult struct {
	Products []model.Product
	Total    int64
	Page     int
	PageSize int
}

// Search 名称子串搜索，不区分大小写，按名称排序
func (s *CatalogService) Search(ctx context.Context, keyword string, page, pageSize int) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultSearchPageSize
	}
	if pageSize > MaxSearchPageSize {
		pageSize = MaxSearchPageSize
	}

	products, total, err := s.products.Search(ctx, repository.ProductFilter{
		Keyword:  keyword,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Products: products,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Details 商品详情 (含分类)
func (s *CatalogService) Details(ctx context.Context, id int64) (*model.Product, error) {
	return s.products.GetByID(ctx, id)
}
