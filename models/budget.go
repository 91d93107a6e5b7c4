package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget 预算周期，创建后不可修改，更正即新建
type Budget struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      uint            `json:"user_id" gorm:"index;not null"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:bigint;serializer:cents;not null;check:chk_budgets_total_amount,total_amount > 0"`
	StartDate   time.Time       `json:"start_date" gorm:"type:date;not null;index"`
	EndDate     time.Time       `json:"end_date" gorm:"type:date;not null;index;check:chk_budgets_date_range,end_date >= start_date"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
	User        *User           `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName 设置表名
func (Budget) TableName() string {
	return "budgets"
}

// TotalDays 预算周期天数（含首尾），最少 1 天
func (b *Budget) TotalDays() int {
	n := DaysBetween(b.StartDate, b.EndDate) + 1
	if n < 1 {
		return 1
	}
	return n
}

// Contains 判断某天是否落在预算周期内
func (b *Budget) Contains(day time.Time) bool {
	d := DateOf(day)
	return !d.Before(DateOf(b.StartDate)) && !d.After(DateOf(b.EndDate))
}
