package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 自动建表
// 关联表使用自定义 ProductCategory，需先 SetupJoinTable 再 AutoMigrate
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Product{}, "Categories", &ProductCategory{}); err != nil {
		return fmt.Errorf("设置关联表失败: %w", err)
	}
	if err := db.AutoMigrate(
		&Category{},
		&Product{},
		&ProductCategory{},
		&SavedSubstitution{},
	); err != nil {
		return fmt.Errorf("自动建表出错: %w", err)
	}
	return nil
}
