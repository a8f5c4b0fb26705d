package model

import (
	"time"
)

// BaseModel 公共字段
// 目录数据只有"全量重置"一种删除方式，不使用软删除，避免唯一索引被已删除行占用
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
