package model

// SavedSubstitution 用户收藏的替代品
// (customer_id, product_id, substitute_id) 唯一，只新增或删除，不做原地更新
type SavedSubstitution struct {
	BaseModel
	CustomerID   int64    `gorm:"not null;uniqueIndex:idx_customer_product_substitute,priority:1" json:"customer_id"`
	ProductID    int64    `gorm:"not null;uniqueIndex:idx_customer_product_substitute,priority:2;index" json:"product_id"`
	Product      *Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
	SubstituteID int64    `gorm:"not null;uniqueIndex:idx_customer_product_substitute,priority:3;index" json:"substitute_id"`
	Substitute   *Product `gorm:"foreignKey:SubstituteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"substitute,omitempty"`
}

func (SavedSubstitution) TableName() string {
	return "saved_substitutions"
}
