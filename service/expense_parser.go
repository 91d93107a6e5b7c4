package service

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// MaxExpenseAmount 单笔消费上限
	MaxExpenseAmount = decimal.NewFromInt(1_000_000)
	// MaxBudgetAmount 预算总额上限
	MaxBudgetAmount = decimal.NewFromInt(100_000_000)
)

// MaxDescriptionLength 描述最大长度（字符）
const MaxDescriptionLength = 200

var (
	expensePattern  = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)\s+(.+)$`)
	expenseStartsRe = regexp.MustCompile(`^[\d.]`)
)

// ParsedExpense 解析成功的消费输入
type ParsedExpense struct {
	Amount      decimal.Decimal
	Description string
}

// ParseFailure 输入校验失败，Reason 可直接展示给用户
type ParseFailure struct {
	Reason string
}

func (f *ParseFailure) Error() string {
	return f.Reason
}

func failf(reason string) error {
	return &ParseFailure{Reason: reason}
}

// ParseExpense 解析 "<金额> <描述>" 形式的消费输入，如 "12.50 coffee"
func ParseExpense(text string) (ParsedExpense, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ParsedExpense{}, failf("Empty message")
	}

	m := expensePattern.FindStringSubmatch(text)
	if m == nil {
		return ParsedExpense{}, failf("Invalid format. Please use: <amount> <description>\nExample: 50 groceries")
	}

	amount, err := ParseAmount(m[1], MaxExpenseAmount)
	if err != nil {
		return ParsedExpense{}, err
	}

	description, err := ValidateDescription(m[2])
	if err != nil {
		return ParsedExpense{}, err
	}
	return ParsedExpense{Amount: amount, Description: description}, nil
}

// LooksLikeExpense 以数字或小数点开头的文本视为消费输入
func LooksLikeExpense(text string) bool {
	return expenseStartsRe.MatchString(strings.TrimSpace(text))
}

// ParseAmount 解析金额，允许千分位逗号和前导 $，最多两位小数
func ParseAmount(text string, max decimal.Decimal) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, failf("Please enter an amount, e.g. 50 or 12.50")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, failf("Invalid amount: " + strings.TrimSpace(text))
	}
	if !amount.IsPositive() {
		return decimal.Zero, failf("Amount must be greater than 0")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Truncate(2)) {
		return decimal.Zero, failf("Amount can have at most 2 decimal places")
	}
	if amount.GreaterThan(max) {
		return decimal.Zero, failf("Amount seems too large. Please check and try again.")
	}
	return amount.Truncate(2), nil
}

// ValidateDescription 校验描述长度，返回去除首尾空白后的值
func ValidateDescription(text string) (string, error) {
	description := strings.TrimSpace(text)
	if description == "" {
		return "", failf("Description cannot be empty")
	}
	if len([]rune(description)) > MaxDescriptionLength {
		return "", failf("Description is too long (max 200 characters)")
	}
	return description, nil
}
