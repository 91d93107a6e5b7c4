package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense 消费记录
// BudgetID 可为空：预算被移除时置空而非级联删除
// Amount 按整数分存储
type Expense struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      uint            `json:"user_id" gorm:"index;not null"`
	BudgetID    *uint           `json:"budget_id" gorm:"index"`
	CategoryID  uint            `json:"category_id" gorm:"index;not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:bigint;serializer:cents;not null;check:chk_expenses_amount,amount > 0"`
	Description string          `json:"description" gorm:"size:200"`
	ExpenseDate time.Time       `json:"expense_date" gorm:"type:date;not null;index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	User        *User           `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Budget      *Budget         `json:"-" gorm:"foreignKey:BudgetID;constraint:OnDelete:SET NULL"`
	Category    *Category       `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// ExpenseUpdate 编辑消费记录的字段，nil 表示不修改
type ExpenseUpdate struct {
	Amount      *decimal.Decimal
	Description *string
	CategoryID  *uint
}

// IsEmpty 没有任何要修改的字段
func (u ExpenseUpdate) IsEmpty() bool {
	return u.Amount == nil && u.Description == nil && u.CategoryID == nil
}
