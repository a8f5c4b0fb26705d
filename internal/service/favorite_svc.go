package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"purbeurre_v2_202610/internal/model"
	"purbeurre_v2_202610/internal/repository"
)

// ErrInvalidFavorite 商品 ID 非法或商品与替代品相同
var ErrInvalidFavorite = errors.New("invalid favorite")

// FavoriteService 收藏服务
type FavoriteService struct {
	uow    *repository.CatalogUnitOfWork
	logger *zap.Logger
}

func NewFavoriteService(uow *repository.CatalogUnitOfWork, logger *zap.Logger) *FavoriteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoriteService{uow: uow, logger: logger}
}

// Save 保存 (商品, 替代品) 收藏，重复保存返回 created=false
func (s *FavoriteService) Save(ctx context.Context, customerID, productID, substituteID int64) (*model.SavedSubstitution, bool, error) {
	if customerID <= 0 || productID <= 0 || substituteID <= 0 {
		return nil, false, fmt.Errorf("%w: 商品 ID 必须为正数", ErrInvalidFavorite)
	}
	if productID == substituteID {
		return nil, false, fmt.Errorf("%w: 替代品不能是商品本身", ErrInvalidFavorite)
	}

	fav := &model.SavedSubstitution{
		CustomerID:   customerID,
		ProductID:    productID,
		SubstituteID: substituteID,
	}
	var created bool

	err := s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		if _, err := tx.Products.GetByID(ctx, productID); err != nil {
			return err
		}
		if _, err := tx.Products.GetByID(ctx, substituteID); err != nil {
			return err
		}

		var err error
		created, err = tx.Favorites.GetOrCreate(ctx, fav)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("[Favorite] 新增收藏",
			zap.Int64("customer_id", customerID),
			zap.Int64("product_id", productID),
			zap.Int64("substitute_id", substituteID),
		)
	}
	return fav, created, nil
}

// List 用户收藏，按被替代商品 ID 排序
func (s *FavoriteService) List(ctx context.Context, customerID int64) ([]model.SavedSubstitution, error) {
	return s.uow.Favorites.ListByCustomer(ctx, customerID)
}

// Delete 删除自己的收藏
func (s *FavoriteService) Delete(ctx context.Context, customerID, favoriteID int64) error {
	if err := s.uow.Favorites.DeleteOwned(ctx, favoriteID, customerID); err != nil {
		return err
	}
	s.logger.Info("[Favorite] 删除收藏", zap.Int64("customer_id", customerID), zap.Int64("favorite_id", favoriteID))
	return nil
}
