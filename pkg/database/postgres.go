package database

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options 数据库连接参数
type Options struct {
	Driver   string // postgres | sqlite
	DSN      string
	LogLevel string // silent | error | warn | info

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// InitDB 初始化数据库连接
// migrate: 连接成功后执行的建表函数，可为 nil
func InitDB(opts Options, log *zap.Logger, migrate func(*gorm.DB) error) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dialector, err := openDialector(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(ParseLogLevel(opts.LogLevel)),
		// 将驱动层唯一键/外键错误统一翻译为 gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	// 获取底层的 sqlDB 对象，用于设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 SQL DB 失败: %w", err)
	}

	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 10
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 100
	}
	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	if opts.Driver == "sqlite" {
		// SQLite 单写者，限制为 1 个连接避免 database is locked
		opts.MaxOpenConns = 1
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	log.Info("[DB] 数据库连接成功", zap.String("driver", opts.Driver))

	if migrate != nil {
		start := time.Now()
		if err := migrate(db); err != nil {
			return nil, err
		}
		log.Info("[DB] 建表完成", zap.Duration("elapsed", time.Since(start)))
	}

	return db, nil
}

func openDialector(opts Options) (gorm.Dialector, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "postgres", "postgresql":
		if opts.DSN == "" {
			return nil, fmt.Errorf("未配置 DB_DSN")
		}
		return postgres.Open(opts.DSN), nil
	case "sqlite":
		dsn := opts.DSN
		if dsn == "" {
			dsn = "file:purbeurre.db?_foreign_keys=on"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", opts.Driver)
	}
}

// ParseLogLevel GORM 日志级别
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
