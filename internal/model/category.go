package model

// Category 商品分类 (Open Food Facts 标签)
// 导入时首次出现即创建，之后不再修改
type Category struct {
	BaseModel
	Name string `gorm:"type:text;uniqueIndex;not null" json:"name"`
}

func (Category) TableName() string {
	return "categories"
}

// ProductCategory 商品-分类关联表
// 复合主键保证同一关联只存在一行
type ProductCategory struct {
	ProductID  int64 `gorm:"primaryKey;autoIncrement:false"`
	CategoryID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

func (ProductCategory) TableName() string {
	return "product_categories"
}
