package database

import (
	"errors"
	"fmt"

	"budgetbot/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在，或不属于调用方
var ErrNotFound = errors.New("record not found")

// StorageError 存储层失败：连接问题或约束冲突
type StorageError struct {
	Op         string
	Err        error
	Constraint bool // 唯一键/外键/CHECK 约束冲突，说明写入的数据本身无效
}

func (e *StorageError) Error() string {
	if e.Constraint {
		return fmt.Sprintf("storage %s: constraint violation: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsConstraintViolation 判断 err 是否为约束冲突
func IsConstraintViolation(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Constraint
}

// wrapErr 把 gorm 错误归类为 ErrNotFound 或 *StorageError
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{
		Op:         op,
		Err:        err,
		Constraint: isConstraint(err),
	}
}

// MySQL 违反 CHECK 约束
const mysqlCheckViolated = 3819

// sqlite 主错误码 SQLITE_CONSTRAINT，扩展码低 8 位与之相同
const sqliteConstraint = 19

// sqliteCoder sqlite 驱动错误带的错误码
type sqliteCoder interface {
	Code() int
}

// isConstraint 判断是否为约束冲突，无法按分存储的金额也算在内
func isConstraint(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) ||
		errors.Is(err, models.ErrSubCent) {
		return true
	}
	// 驱动未翻译的约束错误
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) && me.Number == mysqlCheckViolated {
		return true
	}
	var se sqliteCoder
	return errors.As(err, &se) && se.Code()&0xff == sqliteConstraint
}
