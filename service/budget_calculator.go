package service

import (
	"context"
	"errors"
	"time"

	"budgetbot/database"
	"budgetbot/models"

	"github.com/shopspring/decimal"
)

// ErrNoBudget 指定日期没有生效的预算
var ErrNoBudget = errors.New("no active budget")

// BudgetStatus 某一天的预算状态
type BudgetStatus struct {
	Budget      models.Budget
	AsOf        time.Time
	TotalDays   int
	ElapsedDays int
	DaysLeft    int

	DailyAllowance decimal.Decimal // 每日额度，截断到分
	AllowedToDate  decimal.Decimal // 截至当天累计可用额度
	SpentToDate    decimal.Decimal // 预算开始至当天的消费
	RemainingToday decimal.Decimal // 今天还能花的金额，负数表示超支

	SpentInPeriod   decimal.Decimal // 整个周期内已记录的消费
	RemainingBudget decimal.Decimal // 预算总额减去 SpentInPeriod
}

// IsOverBudget 整个周期是否已超支
func (s *BudgetStatus) IsOverBudget() bool {
	return s.RemainingBudget.IsNegative()
}

// SpentPercentage 周期消费占预算的百分比，保留一位小数
func (s *BudgetStatus) SpentPercentage() decimal.Decimal {
	if !s.Budget.TotalAmount.IsPositive() {
		return decimal.Zero
	}
	return s.SpentInPeriod.Mul(decimal.NewFromInt(100)).Div(s.Budget.TotalAmount).Round(1)
}

// DailyAverageSpent 已过天数的日均消费
func (s *BudgetStatus) DailyAverageSpent() decimal.Decimal {
	if s.ElapsedDays <= 0 {
		return decimal.Zero
	}
	return s.SpentToDate.Div(decimal.NewFromInt(int64(s.ElapsedDays))).Round(2)
}

// Calculate 计算预算状态，纯函数
// spentToDate 为 [start, min(asOf, end)] 内的消费，spentInPeriod 为整个周期内的消费
// 每日额度向零截断到分，截断余数全部计入最后一天
func Calculate(b models.Budget, spentToDate, spentInPeriod decimal.Decimal, asOf time.Time) BudgetStatus {
	asOf = models.DateOf(asOf)
	totalDays := b.TotalDays()

	elapsed := models.DaysBetween(b.StartDate, asOf) + 1
	if elapsed < 1 {
		elapsed = 1
	}
	if elapsed > totalDays {
		elapsed = totalDays
	}

	daily, _ := b.TotalAmount.QuoRem(decimal.NewFromInt(int64(totalDays)), 2)
	allowed := daily.Mul(decimal.NewFromInt(int64(elapsed)))
	if elapsed == totalDays {
		allowed = b.TotalAmount
	}

	return BudgetStatus{
		Budget:          b,
		AsOf:            asOf,
		TotalDays:       totalDays,
		ElapsedDays:     elapsed,
		DaysLeft:        totalDays - elapsed,
		DailyAllowance:  daily,
		AllowedToDate:   allowed,
		SpentToDate:     spentToDate,
		RemainingToday:  allowed.Sub(spentToDate),
		SpentInPeriod:   spentInPeriod,
		RemainingBudget: b.TotalAmount.Sub(spentInPeriod),
	}
}

// BudgetReader 预算计算依赖的存储查询
type BudgetReader interface {
	CurrentBudget(ctx context.Context, userID uint, day time.Time) (*models.Budget, error)
	SumExpenses(ctx context.Context, f database.ExpenseFilter) (decimal.Decimal, error)
}

// BudgetService 预算状态查询
type BudgetService struct {
	store BudgetReader
}

// NewBudgetService 创建预算状态查询服务
func NewBudgetService(store BudgetReader) *BudgetService {
	return &BudgetService{store: store}
}

// Status 查询用户在 asOf 当天的预算状态，没有生效预算时返回 ErrNoBudget
func (s *BudgetService) Status(ctx context.Context, userID uint, asOf time.Time) (*BudgetStatus, error) {
	asOf = models.DateOf(asOf)
	budget, err := s.store.CurrentBudget(ctx, userID, asOf)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNoBudget
	}
	if err != nil {
		return nil, err
	}

	windowEnd := asOf
	if windowEnd.After(budget.EndDate) {
		windowEnd = budget.EndDate
	}
	spentToDate := decimal.Zero
	if !windowEnd.Before(budget.StartDate) {
		spentToDate, err = s.store.SumExpenses(ctx, database.ExpenseFilter{
			UserID: userID,
			From:   budget.StartDate,
			To:     windowEnd,
		})
		if err != nil {
			return nil, err
		}
	}

	spentInPeriod, err := s.store.SumExpenses(ctx, database.ExpenseFilter{
		UserID: userID,
		From:   budget.StartDate,
		To:     budget.EndDate,
	})
	if err != nil {
		return nil, err
	}

	status := Calculate(*budget, spentToDate, spentInPeriod, asOf)
	return &status, nil
}
