package models

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/schema"
)

// ErrSubCent 金额精度超过分，无法按整数分存储
var ErrSubCent = errors.New("amount has more than 2 fractional digits")

// ToCents 金额转为整数分，精度超过分时返回 ErrSubCent
func ToCents(d decimal.Decimal) (int64, error) {
	c := d.Shift(2)
	if !c.IsInteger() {
		return 0, ErrSubCent
	}
	return c.IntPart(), nil
}

// FromCents 整数分转为金额
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func init() {
	schema.RegisterSerializer("cents", CentsSerializer{})
}

// CentsSerializer 金额列按整数分读写，各数据库驱动下都不经过浮点
type CentsSerializer struct{}

// Scan 读取整数分
func (CentsSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	var cents int64
	switch v := dbValue.(type) {
	case nil:
	case int64:
		cents = v
	case int:
		cents = int64(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("金额列 %s: %w", field.DBName, err)
		}
		cents = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("金额列 %s: %w", field.DBName, err)
		}
		cents = n
	default:
		return fmt.Errorf("金额列 %s 类型不支持: %T", field.DBName, dbValue)
	}
	field.ReflectValueOf(ctx, dst).Set(reflect.ValueOf(FromCents(cents)))
	return nil
}

// Value 写入整数分
func (CentsSerializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	switch v := fieldValue.(type) {
	case decimal.Decimal:
		return ToCents(v)
	case *decimal.Decimal:
		if v == nil {
			return nil, nil
		}
		return ToCents(*v)
	}
	return nil, fmt.Errorf("金额列 %s 类型不支持: %T", field.DBName, fieldValue)
}
