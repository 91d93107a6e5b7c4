package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetbot/database"
	"budgetbot/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tenDayBudget() models.Budget {
	return models.Budget{ID: 1, UserID: 1, TotalAmount: dec("300"), StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 10)}
}

func TestCalculate_MidPeriod(t *testing.T) {
	s := Calculate(tenDayBudget(), dec("40"), dec("40"), day(2025, 1, 3))

	assert.Equal(t, 10, s.TotalDays)
	assert.Equal(t, 3, s.ElapsedDays)
	assert.Equal(t, 7, s.DaysLeft)
	assert.Equal(t, "30.00", s.DailyAllowance.StringFixed(2))
	assert.Equal(t, "90.00", s.AllowedToDate.StringFixed(2))
	assert.Equal(t, "50.00", s.RemainingToday.StringFixed(2))
	assert.Equal(t, "260.00", s.RemainingBudget.StringFixed(2))
	assert.False(t, s.IsOverBudget())
	assert.Equal(t, "13.3", s.SpentPercentage().String())
	assert.Equal(t, "13.33", s.DailyAverageSpent().StringFixed(2))
}

func TestCalculate_FirstDayCountsAsElapsed(t *testing.T) {
	s := Calculate(tenDayBudget(), decimal.Zero, decimal.Zero, day(2025, 1, 1))
	assert.Equal(t, 1, s.ElapsedDays)
	assert.Equal(t, "30.00", s.RemainingToday.StringFixed(2))
}

func TestCalculate_RemainderAbsorbedOnLastDay(t *testing.T) {
	b := models.Budget{TotalAmount: dec("100"), StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 3)}

	second := Calculate(b, decimal.Zero, decimal.Zero, day(2025, 1, 2))
	assert.Equal(t, "33.33", second.DailyAllowance.StringFixed(2))
	assert.Equal(t, "66.66", second.AllowedToDate.StringFixed(2))

	last := Calculate(b, decimal.Zero, decimal.Zero, day(2025, 1, 3))
	assert.True(t, last.AllowedToDate.Equal(dec("100")))

	// 每日额度乘以天数与总额相差不超过一个最小单位
	diff := b.TotalAmount.Sub(last.DailyAllowance.Mul(decimal.NewFromInt(3)))
	assert.True(t, diff.LessThan(dec("0.03")))
}

func TestCalculate_ClampsOutsidePeriod(t *testing.T) {
	before := Calculate(tenDayBudget(), decimal.Zero, decimal.Zero, day(2024, 12, 25))
	assert.Equal(t, 1, before.ElapsedDays)

	after := Calculate(tenDayBudget(), dec("310"), dec("310"), day(2025, 2, 1))
	assert.Equal(t, 10, after.ElapsedDays)
	assert.Equal(t, 0, after.DaysLeft)
	assert.Equal(t, "-10.00", after.RemainingToday.StringFixed(2))
	assert.True(t, after.IsOverBudget())
}

func TestCalculate_Idempotent(t *testing.T) {
	a := Calculate(tenDayBudget(), dec("12.5"), dec("20"), day(2025, 1, 5))
	b := Calculate(tenDayBudget(), dec("12.5"), dec("20"), day(2025, 1, 5))
	assert.Equal(t, a.RemainingToday.String(), b.RemainingToday.String())
	assert.Equal(t, a.AllowedToDate.String(), b.AllowedToDate.String())
}

type fakeBudgetReader struct {
	budget  *models.Budget
	err     error
	sums    []database.ExpenseFilter
	results []decimal.Decimal
}

func (f *fakeBudgetReader) CurrentBudget(ctx context.Context, userID uint, d time.Time) (*models.Budget, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.budget == nil {
		return nil, database.ErrNotFound
	}
	b := *f.budget
	return &b, nil
}

func (f *fakeBudgetReader) SumExpenses(ctx context.Context, filter database.ExpenseFilter) (decimal.Decimal, error) {
	f.sums = append(f.sums, filter)
	if len(f.results) == 0 {
		return decimal.Zero, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func TestBudgetService_Status(t *testing.T) {
	b := tenDayBudget()
	reader := &fakeBudgetReader{budget: &b, results: []decimal.Decimal{dec("40"), dec("55")}}
	svc := NewBudgetService(reader)

	status, err := svc.Status(context.Background(), 1, time.Date(2025, 1, 3, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "50.00", status.RemainingToday.StringFixed(2))
	assert.Equal(t, "245.00", status.RemainingBudget.StringFixed(2))

	require.Len(t, reader.sums, 2)
	assert.Equal(t, day(2025, 1, 3), reader.sums[0].To)
	assert.Equal(t, day(2025, 1, 10), reader.sums[1].To)
}

func TestBudgetService_Status_NoBudget(t *testing.T) {
	svc := NewBudgetService(&fakeBudgetReader{})
	_, err := svc.Status(context.Background(), 1, day(2025, 1, 3))
	assert.ErrorIs(t, err, ErrNoBudget)

	boom := errors.New("boom")
	svc = NewBudgetService(&fakeBudgetReader{err: boom})
	_, err = svc.Status(context.Background(), 1, day(2025, 1, 3))
	assert.ErrorIs(t, err, boom)
}
