package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置
// 读取顺序：默认值 < .env 文件 < 环境变量
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	OFF        OFFConfig
	Import     ImportConfig
	Substitute SubstituteConfig
	JWT        JWTConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type DatabaseConfig struct {
	Driver   string // postgres | sqlite
	DSN      string
	LogLevel string
}

// OFFConfig Open Food Facts 上游配置
type OFFConfig struct {
	BaseURL    string
	PageSize   int
	Timeout    time.Duration
	RetryCount int
	UserAgent  string
}

// ImportConfig 导入流程配置
type ImportConfig struct {
	// 分类商品数 >= 该阈值才导入
	PopularityThreshold int
	// 并发拉取分类数，1 为顺序执行
	Concurrency int
	// 更新时遇到唯一键冲突是否删除该商品
	DeleteOnConflict bool
	// cron 表达式 (5 段或带秒的 6 段)，为空则不启用定时导入
	Schedule string
}

type SubstituteConfig struct {
	MinSharedCategories int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type LogConfig struct {
	Level string
	Dev   bool
}

// Load 加载配置
// envFiles 为空时尝试读取当前目录 .env，文件不存在不报错
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		Server: ServerConfig{
			Port:    v.GetString("SERVER_PORT"),
			GinMode: v.GetString("GIN_MODE"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			DSN:      v.GetString("DB_DSN"),
			LogLevel: v.GetString("DB_LOG_LEVEL"),
		},
		OFF: OFFConfig{
			BaseURL:    strings.TrimRight(v.GetString("OFF_BASE_URL"), "/"),
			PageSize:   v.GetInt("OFF_PAGE_SIZE"),
			Timeout:    v.GetDuration("OFF_TIMEOUT"),
			RetryCount: v.GetInt("OFF_RETRY_COUNT"),
			UserAgent:  v.GetString("OFF_USER_AGENT"),
		},
		Import: ImportConfig{
			PopularityThreshold: v.GetInt("IMPORT_POPULARITY_THRESHOLD"),
			Concurrency:         v.GetInt("IMPORT_CONCURRENCY"),
			DeleteOnConflict:    v.GetBool("IMPORT_DELETE_ON_CONFLICT"),
			Schedule:            v.GetString("IMPORT_SCHEDULE"),
		},
		Substitute: SubstituteConfig{
			MinSharedCategories: v.GetInt("SUBSTITUTE_MIN_SHARED_CATEGORIES"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dev:   v.GetBool("LOG_DEV"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "release")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("DB_LOG_LEVEL", "warn")

	v.SetDefault("OFF_BASE_URL", "https://fr.openfoodfacts.org")
	v.SetDefault("OFF_PAGE_SIZE", 500)
	v.SetDefault("OFF_TIMEOUT", 30*time.Second)
	v.SetDefault("OFF_RETRY_COUNT", 2)
	v.SetDefault("OFF_USER_AGENT", "purbeurre-go/1.0")

	v.SetDefault("IMPORT_POPULARITY_THRESHOLD", 5000)
	v.SetDefault("IMPORT_CONCURRENCY", 1)
	v.SetDefault("IMPORT_DELETE_ON_CONFLICT", false)
	v.SetDefault("IMPORT_SCHEDULE", "")

	v.SetDefault("SUBSTITUTE_MIN_SHARED_CATEGORIES", 4)

	v.SetDefault("JWT_SECRET", "purbeurre-secret-key-change-in-production")
	v.SetDefault("JWT_ISSUER", "purbeurre")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEV", false)
}
