package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"purbeurre_v2_202610/internal/model"
	"purbeurre_v2_202610/internal/repository"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := model.Migrate(db); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newTestUoW(t *testing.T) *repository.CatalogUnitOfWork {
	return repository.NewCatalogUnitOfWork(setupServiceTestDB(t))
}
