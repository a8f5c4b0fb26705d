package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"purbeurre_v2_202610/internal/config"
	"purbeurre_v2_202610/internal/controller"
	"purbeurre_v2_202610/internal/middleware"
	"purbeurre_v2_202610/internal/model"
	"purbeurre_v2_202610/internal/repository"
	"purbeurre_v2_202610/internal/service"
	"purbeurre_v2_202610/pkg/database"
	"purbeurre_v2_202610/pkg/logger"
	"purbeurre_v2_202610/pkg/openfoodfacts"
)

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Catalog  *repository.CatalogUnitOfWork
	Product  repository.ProductRepository
	Category repository.CategoryRepository
	Favorite repository.FavoriteRepository
}

// Services 服务集合
type Services struct {
	Import     *service.ImportService
	Catalog    *service.CatalogService
	Substitute *service.SubstituteService
	Favorite   *service.FavoriteService
}

// Controllers 控制器集合
type Controllers struct {
	Product  *controller.ProductController
	Favorite *controller.FavoriteController
}

// ==================== 初始化函数 ====================

// initDependencies 加载配置并初始化所有依赖
func initDependencies(envFile string) (*Dependencies, error) {
	var (
		cfg *config.Config
		err error
	)
	if envFile != "" {
		cfg, err = config.Load(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.InitDB(database.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: cfg.Database.LogLevel,
	}, log, model.Migrate)
	if err != nil {
		return nil, err
	}

	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey: cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
	})

	repos := initRepositories(db)
	services := initServices(cfg, repos, log)

	return &Dependencies{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: initControllers(services),
	}, nil
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	uow := repository.NewCatalogUnitOfWork(db)
	return &Repositories{
		Catalog:  uow,
		Product:  uow.Products,
		Category: uow.Categories,
		Favorite: uow.Favorites,
	}
}

// initServices 初始化所有服务
func initServices(cfg *config.Config, repos *Repositories, log *zap.Logger) *Services {
	offClient := openfoodfacts.NewClient(openfoodfacts.Config{
		BaseURL:    cfg.OFF.BaseURL,
		PageSize:   cfg.OFF.PageSize,
		Timeout:    cfg.OFF.Timeout,
		RetryCount: cfg.OFF.RetryCount,
		UserAgent:  cfg.OFF.UserAgent,
	})

	return &Services{
		Import: service.NewImportService(repos.Catalog, offClient, service.ImportOptions{
			PopularityThreshold: cfg.Import.PopularityThreshold,
			Concurrency:         cfg.Import.Concurrency,
			DeleteOnConflict:    cfg.Import.DeleteOnConflict,
		}, log),
		Catalog:    service.NewCatalogService(repos.Product),
		Substitute: service.NewSubstituteService(repos.Product, cfg.Substitute.MinSharedCategories, log),
		Favorite:   service.NewFavoriteService(repos.Catalog, log),
	}
}

// initControllers 初始化所有控制器
func initControllers(svc *Services) *Controllers {
	return &Controllers{
		Product:  controller.NewProductController(svc.Catalog, svc.Substitute),
		Favorite: controller.NewFavoriteController(svc.Favorite),
	}
}

// Close 释放数据库连接并刷新日志
func (d *Dependencies) Close() {
	if sqlDB, err := d.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = d.Logger.Sync()
}
