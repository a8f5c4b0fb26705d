package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrFavoriteNotFound = errors.New("favorite not found")

	// ErrIntegrityViolation 唯一键或外键约束冲突
	ErrIntegrityViolation = errors.New("integrity violation")
)

// 驱动未翻译时按错误信息兜底匹配
// sqlite: "UNIQUE constraint failed"; postgres: 23505 / 23503
var integrityMessages = []string{
	"unique constraint failed",
	"foreign key constraint failed",
	"duplicate key value",
	"violates foreign key",
	"violates unique constraint",
}

// translateError 将约束冲突统一包装为 ErrIntegrityViolation
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if IsIntegrityViolation(err) && !errors.Is(err, ErrIntegrityViolation) {
		return fmt.Errorf("%w: %v", ErrIntegrityViolation, err)
	}
	return err
}

// IsIntegrityViolation 判断是否为约束冲突
func IsIntegrityViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrIntegrityViolation) ||
		errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range integrityMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
