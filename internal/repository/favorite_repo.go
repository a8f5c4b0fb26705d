package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"purbeurre_v2_202610/internal/model"
)

// FavoriteRepository 收藏仓储接口
type FavoriteRepository interface {
	// GetOrCreate 保存收藏，已存在时 created=false 并回填已有记录
	GetOrCreate(ctx context.Context, fav *model.SavedSubstitution) (created bool, err error)
	GetByID(ctx context.Context, id int64) (*model.SavedSubstitution, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]model.SavedSubstitution, error)
	DeleteOwned(ctx context.Context, id, customerID int64) error
	DeleteByProduct(ctx context.Context, productID int64) error
	DeleteAll(ctx context.Context) error

	WithTx(tx *gorm.DB) FavoriteRepository
}

type favoriteRepo struct {
	db *gorm.DB
}

// NewFavoriteRepository 创建收藏仓储
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepo{db: db}
}

func (r *favoriteRepo) WithTx(tx *gorm.DB) FavoriteRepository {
	return &favoriteRepo{db: tx}
}

func (r *favoriteRepo) GetOrCreate(ctx context.Context, fav *model.SavedSubstitution) (bool, error) {
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}, {Name: "product_id"}, {Name: "substitute_id"}},
			DoNothing: true,
		}).
		Create(fav)
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// 唯一键冲突，回读已有记录
	var existing model.SavedSubstitution
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ? AND substitute_id = ?", fav.CustomerID, fav.ProductID, fav.SubstituteID).
		First(&existing).Error
	if err != nil {
		return false, err
	}
	*fav = existing
	return false, nil
}

func (r *favoriteRepo) GetByID(ctx context.Context, id int64) (*model.SavedSubstitution, error) {
	var fav model.SavedSubstitution
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Substitute").
		First(&fav, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFavoriteNotFound
		}
		return nil, err
	}
	return &fav, nil
}

// ListByCustomer 按被替代商品 ID 排序
func (r *favoriteRepo) ListByCustomer(ctx context.Context, customerID int64) ([]model.SavedSubstitution, error) {
	var favs []model.SavedSubstitution
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Substitute").
		Where("customer_id = ?", customerID).
		Order("product_id ASC").
		Order("id ASC").
		Find(&favs).Error
	return favs, err
}

// DeleteOwned 只能删除自己的收藏，不存在或不属于该用户都返回 ErrFavoriteNotFound
func (r *favoriteRepo) DeleteOwned(ctx context.Context, id, customerID int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", id, customerID).
		Delete(&model.SavedSubstitution{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

// DeleteByProduct 删除引用该商品的收藏 (作为被替代品或替代品)
func (r *favoriteRepo) DeleteByProduct(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Where("product_id = ? OR substitute_id = ?", productID, productID).
		Delete(&model.SavedSubstitution{}).Error
}

func (r *favoriteRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.SavedSubstitution{}).Error
}
