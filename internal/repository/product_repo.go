package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"purbeurre_v2_202610/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// 基础 CRUD
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByName(ctx context.Context, name string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int64) error

	// 查询
	Search(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	FindSubstitutes(ctx context.Context, product *model.Product, minShared int) ([]model.Product, error)
	Count(ctx context.Context) (int64, error)

	// 分类关联
	AddCategories(ctx context.Context, productID int64, categoryIDs []int64) error
	CategoryIDs(ctx context.Context, productID int64) ([]int64, error)
	CountLinks(ctx context.Context) (int64, error)

	// 批量清理
	DeleteAllLinks(ctx context.Context) error
	DeleteAll(ctx context.Context) error

	// 事务
	WithTx(tx *gorm.DB) ProductRepository
	Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error
}

// ==================== 过滤条件 ====================

// ProductFilter 商品搜索条件
type ProductFilter struct {
	Keyword  string // 名称子串，不区分大小写
	Page     int
	PageSize int
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{db: tx}
}

func (r *productRepo) Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// ==================== 基础 CRUD ====================

// Create 只写商品本身，分类关联走 AddCategories
func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
	return translateError(err)
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.id ASC") }).
		First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetByName(ctx context.Context, name string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.id ASC") }).
		Where("name = ?", name).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Update 覆盖全部字段，不触碰分类关联
func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
	return translateError(err)
}

// Delete 删除商品及其分类关联
func (r *productRepo) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&model.ProductCategory{}).Error; err != nil {
		return err
	}
	result := db.Delete(&model.Product{}, id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ==================== 查询 ====================

// likeEscaper 关键词中的通配符按字面匹配
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Search 名称模糊搜索，按名称升序分页
func (r *productRepo) Search(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(kw))+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 6
	}

	err := query.
		Order("name ASC").
		Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&products).Error

	return products, total, err
}

// FindSubstitutes 查找与 product 至少共享 minShared 个分类、且等级不差于它的其他商品
// 排序: nutrition_grade, energy_100g, id
func (r *productRepo) FindSubstitutes(ctx context.Context, product *model.Product, minShared int) ([]model.Product, error) {
	db := r.db.WithContext(ctx)

	ownCategories := db.Model(&model.ProductCategory{}).
		Select("category_id").
		Where("product_id = ?", product.ID)

	var products []model.Product
	err := db.Model(&model.Product{}).
		Select("products.*").
		Joins("JOIN product_categories pc ON pc.product_id = products.id").
		Where("pc.category_id IN (?)", ownCategories).
		Where("products.nutrition_grade <= ?", product.NutritionGrade).
		Where("products.id <> ?", product.ID).
		Group("products.id").
		Having("COUNT(pc.category_id) >= ?", minShared).
		Order("products.nutrition_grade ASC").
		Order("products.energy_100g ASC").
		Order("products.id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&count).Error
	return count, err
}

// ==================== 分类关联 ====================

// AddCategories 追加关联，已存在的关联忽略
func (r *productRepo) AddCategories(ctx context.Context, productID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	links := make([]model.ProductCategory, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		links = append(links, model.ProductCategory{ProductID: productID, CategoryID: id})
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
	return translateError(err)
}

func (r *productRepo) CategoryIDs(ctx context.Context, productID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.ProductCategory{}).
		Where("product_id = ?", productID).
		Order("category_id ASC").
		Pluck("category_id", &ids).Error
	return ids, err
}

func (r *productRepo) CountLinks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProductCategory{}).Count(&count).Error
	return count, err
}

// ==================== 批量清理 ====================

func (r *productRepo) DeleteAllLinks(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.ProductCategory{}).Error
}

func (r *productRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.Product{}).Error
}
