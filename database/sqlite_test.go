package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"budgetbot/config"
	"budgetbot/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSQLiteStore 使用真实的 sqlite 驱动，走与线上相同的 Open/Migrate/Seed
func setupSQLiteStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "release"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "budgetbot.db")},
	}
	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, SeedCategories(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewStore(db)
}

type sqliteFixture struct {
	store    *Store
	user     *models.User
	category uint
}

func newSQLiteFixture(t *testing.T) *sqliteFixture {
	t.Helper()
	store := setupSQLiteStore(t)
	ctx := context.Background()

	user, err := store.EnsureUser(ctx, 1001, "Alice", "alice")
	require.NoError(t, err)
	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cats)
	return &sqliteFixture{store: store, user: user, category: cats[0].ID}
}

func (f *sqliteFixture) addExpense(t *testing.T, amount string, d time.Time) *models.Expense {
	t.Helper()
	e := &models.Expense{
		UserID:      f.user.ID,
		CategoryID:  f.category,
		Amount:      decimal.RequireFromString(amount),
		Description: "item",
		ExpenseDate: d,
	}
	require.NoError(t, f.store.CreateExpense(context.Background(), e))
	return e
}

func TestSQLite_SumExpensesIsExact(t *testing.T) {
	f := newSQLiteFixture(t)
	ctx := context.Background()

	f.addExpense(t, "0.10", date(2025, 1, 3))
	f.addExpense(t, "0.20", date(2025, 1, 3))

	total, err := f.store.SumExpenses(ctx, ExpenseFilter{UserID: f.user.ID, From: date(2025, 1, 3), To: date(2025, 1, 3)})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.30").Equal(total), "got %s", total)
	assert.Equal(t, "0.3", total.String())

	var typ string
	require.NoError(t, f.store.db.Raw("SELECT typeof(amount) FROM expenses LIMIT 1").Scan(&typ).Error)
	assert.Equal(t, "integer", typ)

	got, err := f.store.ListExpenses(ctx, f.user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Contains(t, []string{"0.10", "0.20"}, e.Amount.StringFixed(2))
	}
}

func TestSQLite_CurrentBudgetAndLinkage(t *testing.T) {
	f := newSQLiteFixture(t)
	ctx := context.Background()

	older := &models.Budget{
		UserID: f.user.ID, TotalAmount: decimal.RequireFromString("300"),
		StartDate: date(2025, 1, 1), EndDate: date(2025, 1, 31),
		CreatedAt: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
	}
	newer := &models.Budget{
		UserID: f.user.ID, TotalAmount: decimal.RequireFromString("150.55"),
		StartDate: date(2025, 1, 2), EndDate: date(2025, 1, 10),
		CreatedAt: time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.store.CreateBudget(ctx, older))
	require.NoError(t, f.store.CreateBudget(ctx, newer))

	// 重叠时取最新创建的
	b, err := f.store.CurrentBudget(ctx, f.user.ID, date(2025, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, newer.ID, b.ID)
	assert.Equal(t, "150.55", b.TotalAmount.StringFixed(2))

	b, err = f.store.CurrentBudget(ctx, f.user.ID, date(2025, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, older.ID, b.ID)

	_, err = f.store.CurrentBudget(ctx, f.user.ID, date(2025, 2, 1))
	assert.ErrorIs(t, err, ErrNotFound)

	linked := f.addExpense(t, "12.50", date(2025, 1, 5))
	require.NotNil(t, linked.BudgetID)
	assert.Equal(t, newer.ID, *linked.BudgetID)

	unlinked := f.addExpense(t, "5", date(2025, 2, 1))
	assert.Nil(t, unlinked.BudgetID)

	spent, err := f.store.SumExpenses(ctx, ExpenseFilter{
		UserID: f.user.ID, From: date(2025, 1, 1), To: date(2025, 12, 31), BudgetID: &newer.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "12.50", spent.StringFixed(2))
}

func TestSQLite_UpdateExpense(t *testing.T) {
	f := newSQLiteFixture(t)
	ctx := context.Background()
	e := f.addExpense(t, "10", date(2025, 1, 3))

	amount := decimal.RequireFromString("15.25")
	got, err := f.store.UpdateExpense(ctx, f.user.ID, e.ID, models.ExpenseUpdate{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, "15.25", got.Amount.StringFixed(2))

	// 其他用户的记录按不存在处理
	_, err = f.store.UpdateExpense(ctx, f.user.ID+100, e.ID, models.ExpenseUpdate{Amount: &amount})
	assert.ErrorIs(t, err, ErrNotFound)

	subCent := decimal.RequireFromString("1.005")
	_, err = f.store.UpdateExpense(ctx, f.user.ID, e.ID, models.ExpenseUpdate{Amount: &subCent})
	assert.True(t, IsConstraintViolation(err))
}

func TestSQLite_ConstraintViolations(t *testing.T) {
	f := newSQLiteFixture(t)
	ctx := context.Background()

	// CHECK：结束日期早于开始日期
	err := f.store.CreateBudget(ctx, &models.Budget{
		UserID: f.user.ID, TotalAmount: decimal.RequireFromString("100"),
		StartDate: date(2025, 1, 10), EndDate: date(2025, 1, 1),
	})
	require.Error(t, err)
	assert.True(t, IsConstraintViolation(err), "%v", err)

	// CHECK：金额必须为正
	err = f.store.CreateExpense(ctx, &models.Expense{
		UserID: f.user.ID, CategoryID: f.category,
		Amount: decimal.RequireFromString("-5"), ExpenseDate: date(2025, 1, 3),
	})
	require.Error(t, err)
	assert.True(t, IsConstraintViolation(err), "%v", err)

	// 外键：类别不存在
	err = f.store.CreateExpense(ctx, &models.Expense{
		UserID: f.user.ID, CategoryID: 9999,
		Amount: decimal.RequireFromString("5"), ExpenseDate: date(2025, 1, 3),
	})
	require.Error(t, err)
	assert.True(t, IsConstraintViolation(err), "%v", err)

	// 唯一键：重复授权
	require.NoError(t, f.store.CreateAuthorization(ctx, &models.AuthorizedUser{IdentityID: 42, AddedBy: 1}))
	err = f.store.CreateAuthorization(ctx, &models.AuthorizedUser{IdentityID: 42, AddedBy: 1})
	assert.True(t, IsConstraintViolation(err), "%v", err)
}
