package repository

import (
	"context"

	"gorm.io/gorm"
)

// CatalogUnitOfWork 目录工作单元（事务）
// 导入单个商品、删除冲突商品与清空目录都在一个事务里完成
type CatalogUnitOfWork struct {
	db         *gorm.DB
	Categories CategoryRepository
	Products   ProductRepository
	Favorites  FavoriteRepository
}

// NewCatalogUnitOfWork 创建工作单元
func NewCatalogUnitOfWork(db *gorm.DB) *CatalogUnitOfWork {
	return &CatalogUnitOfWork{
		db:         db,
		Categories: NewCategoryRepository(db),
		Products:   NewProductRepository(db),
		Favorites:  NewFavoriteRepository(db),
	}
}

// Transaction 执行事务，fn 返回错误时整体回滚
func (u *CatalogUnitOfWork) Transaction(ctx context.Context, fn func(uow *CatalogUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewCatalogUnitOfWork(tx))
	})
}

// ResetCatalog 按依赖顺序清空目录：关联行、收藏、商品、分类
func (u *CatalogUnitOfWork) ResetCatalog(ctx context.Context) error {
	return u.Transaction(ctx, func(uow *CatalogUnitOfWork) error {
		if err := uow.Products.DeleteAllLinks(ctx); err != nil {
			return err
		}
		if err := uow.Favorites.DeleteAll(ctx); err != nil {
			return err
		}
		if err := uow.Products.DeleteAll(ctx); err != nil {
			return err
		}
		return uow.Categories.DeleteAll(ctx)
	})
}
