package database

import (
	"context"
	"errors"
	"time"

	"budgetbot/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 实体存储，所有读写都经过这里
type Store struct {
	db *gorm.DB
}

// NewStore 创建实体存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ExpenseFilter 消费汇总条件，日期为闭区间
type ExpenseFilter struct {
	UserID     uint
	From       time.Time
	To         time.Time
	CategoryID *uint
	BudgetID   *uint
}

// ================= 用户 =================

// EnsureUser 按身份获取内部用户，不存在则创建
func (s *Store) EnsureUser(ctx context.Context, identityID int64, displayName, username string) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("identity_id = ?", identityID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrapErr("ensure user", err)
	}

	user = models.User{IdentityID: identityID, DisplayName: displayName, Username: username}
	if err := db.Create(&user).Error; err != nil {
		// 并发首次请求已创建，重新读取
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.GetUserByIdentity(ctx, identityID)
		}
		return nil, wrapErr("ensure user", err)
	}
	return &user, nil
}

// GetUserByIdentity 按平台身份查询内部用户
func (s *Store) GetUserByIdentity(ctx context.Context, identityID int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&user).Error; err != nil {
		return nil, wrapErr("get user", err)
	}
	return &user, nil
}

// ================= 授权 =================

// GetAuthorization 查询授权记录
func (s *Store) GetAuthorization(ctx context.Context, identityID int64) (*models.AuthorizedUser, error) {
	var entry models.AuthorizedUser
	if err := s.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&entry).Error; err != nil {
		return nil, wrapErr("get authorization", err)
	}
	return &entry, nil
}

// CreateAuthorization 新增授权，身份重复时返回约束冲突
func (s *Store) CreateAuthorization(ctx context.Context, entry *models.AuthorizedUser) error {
	return wrapErr("create authorization", s.db.WithContext(ctx).Create(entry).Error)
}

// DeleteAuthorization 移除授权，不做最后一个管理员的保护
func (s *Store) DeleteAuthorization(ctx context.Context, identityID int64) error {
	res := s.db.WithContext(ctx).Where("identity_id = ?", identityID).Delete(&models.AuthorizedUser{})
	if res.Error != nil {
		return wrapErr("delete authorization", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAuthorizations 列出所有授权记录，新的在前
func (s *Store) ListAuthorizations(ctx context.Context) ([]models.AuthorizedUser, error) {
	var list []models.AuthorizedUser
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, wrapErr("list authorizations", err)
	}
	return list, nil
}

// BootstrapAdmin 在没有任何管理员时把 entry 设为管理员
// 已有同身份的普通授权则提升为管理员；返回是否发生了写入
func (s *Store) BootstrapAdmin(ctx context.Context, entry *models.AuthorizedUser) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admins int64
		if err := tx.Model(&models.AuthorizedUser{}).Where("is_admin = ?", true).Count(&admins).Error; err != nil {
			return err
		}
		if admins > 0 {
			return nil
		}

		var existing models.AuthorizedUser
		err := tx.Where("identity_id = ?", entry.IdentityID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Update("is_admin", true).Error; err != nil {
				return err
			}
			existing.IsAdmin = true
			*entry = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry.IsAdmin = true
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		default:
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		// 并发引导时另一方已写入
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, wrapErr("bootstrap admin", err)
	}
	return created, nil
}

// ================= 类别 =================

// ListCategories 按排序字段列出类别
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var list []models.Category
	if err := s.db.WithContext(ctx).Order("sort ASC, id ASC").Find(&list).Error; err != nil {
		return nil, wrapErr("list categories", err)
	}
	return list, nil
}

// GetCategory 查询单个类别
func (s *Store) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, wrapErr("get category", err)
	}
	return &cat, nil
}

// ================= 预算 =================

// CreateBudget 新建预算
func (s *Store) CreateBudget(ctx context.Context, budget *models.Budget) error {
	budget.StartDate = models.DateOf(budget.StartDate)
	budget.EndDate = models.DateOf(budget.EndDate)
	return wrapErr("create budget", s.db.WithContext(ctx).Omit(clause.Associations).Create(budget).Error)
}

// CurrentBudget 查询覆盖 day 的预算，多个时取最新创建的
func (s *Store) CurrentBudget(ctx context.Context, userID uint, day time.Time) (*models.Budget, error) {
	return currentBudget(s.db.WithContext(ctx), userID, day)
}

func currentBudget(db *gorm.DB, userID uint, day time.Time) (*models.Budget, error) {
	d := models.DateOf(day)
	var budget models.Budget
	err := db.Where("user_id = ? AND start_date <= ? AND end_date >= ?", userID, d, d).
		Order("created_at DESC, id DESC").
		First(&budget).Error
	if err != nil {
		return nil, wrapErr("current budget", err)
	}
	return &budget, nil
}

// ================= 消费 =================

// CreateExpense 新建消费并关联到消费日期所在的当前预算，两步在同一事务内完成
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	expense.ExpenseDate = models.DateOf(expense.ExpenseDate)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err := currentBudget(tx, expense.UserID, expense.ExpenseDate)
		switch {
		case err == nil:
			expense.BudgetID = &budget.ID
		case errors.Is(err, ErrNotFound):
			expense.BudgetID = nil
		default:
			return err
		}
		return tx.Omit(clause.Associations).Create(expense).Error
	})
	if err != nil {
		expense.ID = 0
		expense.BudgetID = nil
		return wrapErr("create expense", err)
	}
	return nil
}

// GetExpense 查询调用方自己的消费记录，不属于调用方时按不存在处理
func (s *Store) GetExpense(ctx context.Context, userID, expenseID uint) (*models.Expense, error) {
	var expense models.Expense
	err := s.db.WithContext(ctx).Preload("Category").
		Where("id = ? AND user_id = ?", expenseID, userID).
		First(&expense).Error
	if err != nil {
		return nil, wrapErr("get expense", err)
	}
	return &expense, nil
}

// UpdateExpense 修改调用方自己的消费记录
func (s *Store) UpdateExpense(ctx context.Context, userID, expenseID uint, upd models.ExpenseUpdate) (*models.Expense, error) {
	updates := make(map[string]interface{})
	if upd.Amount != nil {
		// map 更新不经过序列化器，直接写整数分
		cents, err := models.ToCents(*upd.Amount)
		if err != nil {
			return nil, wrapErr("update expense", err)
		}
		updates["amount"] = cents
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.CategoryID != nil {
		updates["category_id"] = *upd.CategoryID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Expense{}).
			Where("id = ? AND user_id = ?", expenseID, userID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// MySQL 对值未变化的行返回 0，需再确认记录是否存在
			var n int64
			if err := tx.Model(&models.Expense{}).Where("id = ? AND user_id = ?", expenseID, userID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("update expense", err)
	}
	return s.GetExpense(ctx, userID, expenseID)
}

// DeleteExpense 删除调用方自己的消费记录
func (s *Store) DeleteExpense(ctx context.Context, userID, expenseID uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", expenseID, userID).Delete(&models.Expense{})
	if res.Error != nil {
		return wrapErr("delete expense", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpenses 分页列出消费记录，按消费日期倒序
func (s *Store) ListExpenses(ctx context.Context, userID uint, limit, offset int) ([]models.Expense, error) {
	var list []models.Expense
	err := s.db.WithContext(ctx).Preload("Category").
		Where("user_id = ?", userID).
		Order("expense_date DESC, created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, wrapErr("list expenses", err)
	}
	return list, nil
}

// ListExpensesInRange 列出日期闭区间内的消费记录（导出用）
func (s *Store) ListExpensesInRange(ctx context.Context, userID uint, from, to time.Time) ([]models.Expense, error) {
	var list []models.Expense
	err := s.db.WithContext(ctx).Preload("Category").
		Where("user_id = ? AND expense_date >= ? AND expense_date <= ?", userID, models.DateOf(from), models.DateOf(to)).
		Order("expense_date DESC, created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, wrapErr("list expenses", err)
	}
	return list, nil
}

// CountExpenses 消费记录总数
func (s *Store) CountExpenses(ctx context.Context, userID uint) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Expense{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, wrapErr("count expenses", err)
	}
	return total, nil
}

// SumExpenses 汇总满足条件的消费金额
func (s *Store) SumExpenses(ctx context.Context, f ExpenseFilter) (decimal.Decimal, error) {
	query := s.db.WithContext(ctx).Model(&models.Expense{}).
		Where("user_id = ? AND expense_date >= ? AND expense_date <= ?", f.UserID, models.DateOf(f.From), models.DateOf(f.To))
	if f.CategoryID != nil {
		query = query.Where("category_id = ?", *f.CategoryID)
	}
	if f.BudgetID != nil {
		query = query.Where("budget_id = ?", *f.BudgetID)
	}

	// 整数分求和，结果精确
	var cents int64
	if err := query.Select("COALESCE(SUM(amount), 0)").Row().Scan(&cents); err != nil {
		return decimal.Zero, wrapErr("sum expenses", err)
	}
	return models.FromCents(cents), nil
}
