package bot

import (
	"context"
	"sort"
	"sync"
	"time"

	"budgetbot/database"
	"budgetbot/models"
	"budgetbot/service"

	"github.com/shopspring/decimal"
)

// fakeStore 内存版存储，行为与 database.Store 一致
type fakeStore struct {
	mu         sync.Mutex
	users      map[int64]*models.User
	categories []models.Category
	budgets    []models.Budget
	expenses   map[uint]*models.Expense
	nextID     uint

	failCreate error         // CreateBudget/CreateExpense/UpdateExpense/DeleteExpense 返回的错误
	block      chan struct{} // 非 nil 时 CreateExpense 阻塞直到关闭
	entered    chan struct{} // CreateExpense 开始时通知
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		users:    make(map[int64]*models.User),
		expenses: make(map[uint]*models.Expense),
		nextID:   100,
	}
	for i, c := range models.DefaultCategories() {
		c.ID = uint(i + 1)
		s.categories = append(s.categories, c)
	}
	return s
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) EnsureUser(ctx context.Context, identityID int64, displayName, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[identityID]; ok {
		return u, nil
	}
	u := &models.User{ID: uint(len(s.users) + 1), IdentityID: identityID, DisplayName: displayName, Username: username}
	s.users[identityID] = u
	return u, nil
}

func (s *fakeStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	return append([]models.Category(nil), s.categories...), nil
}

func (s *fakeStore) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	for _, c := range s.categories {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeStore) CreateBudget(ctx context.Context, b *models.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	b.ID = s.id()
	b.CreatedAt = time.Now()
	s.budgets = append(s.budgets, *b)
	return nil
}

func (s *fakeStore) CurrentBudget(ctx context.Context, userID uint, day time.Time) (*models.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(userID, day)
}

func (s *fakeStore) currentLocked(userID uint, day time.Time) (*models.Budget, error) {
	var found *models.Budget
	for i := range s.budgets {
		b := &s.budgets[i]
		if b.UserID == userID && b.Contains(day) {
			if found == nil || b.ID > found.ID {
				found = b
			}
		}
	}
	if found == nil {
		return nil, database.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (s *fakeStore) SumExpenses(ctx context.Context, f database.ExpenseFilter) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, e := range s.expenses {
		if e.UserID != f.UserID || e.ExpenseDate.Before(f.From) || e.ExpenseDate.After(f.To) {
			continue
		}
		if f.CategoryID != nil && e.CategoryID != *f.CategoryID {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (s *fakeStore) CreateExpense(ctx context.Context, e *models.Expense) error {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	if b, err := s.currentLocked(e.UserID, e.ExpenseDate); err == nil {
		e.BudgetID = &b.ID
	}
	e.ID = s.id()
	e.CreatedAt = time.Now()
	cp := *e
	for _, c := range s.categories {
		if c.ID == e.CategoryID {
			c := c
			cp.Category = &c
		}
	}
	s.expenses[e.ID] = &cp
	return nil
}

func (s *fakeStore) GetExpense(ctx context.Context, userID, expenseID uint) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[expenseID]
	if !ok || e.UserID != userID {
		return nil, database.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) UpdateExpense(ctx context.Context, userID, expenseID uint, upd models.ExpenseUpdate) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	e, ok := s.expenses[expenseID]
	if !ok || e.UserID != userID {
		return nil, database.ErrNotFound
	}
	if upd.Amount != nil {
		e.Amount = *upd.Amount
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.CategoryID != nil {
		e.CategoryID = *upd.CategoryID
		for _, c := range s.categories {
			if c.ID == e.CategoryID {
				c := c
				e.Category = &c
			}
		}
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) DeleteExpense(ctx context.Context, userID, expenseID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	e, ok := s.expenses[expenseID]
	if !ok || e.UserID != userID {
		return database.ErrNotFound
	}
	delete(s.expenses, expenseID)
	return nil
}

func (s *fakeStore) userExpenses(userID uint) []models.Expense {
	var list []models.Expense
	for _, e := range s.expenses {
		if e.UserID == userID {
			list = append(list, *e)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].ExpenseDate.Equal(list[j].ExpenseDate) {
			return list[i].ExpenseDate.After(list[j].ExpenseDate)
		}
		return list[i].ID > list[j].ID
	})
	return list
}

func (s *fakeStore) ListExpenses(ctx context.Context, userID uint, limit, offset int) ([]models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.userExpenses(userID)
	if offset >= len(list) {
		return nil, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}

func (s *fakeStore) CountExpenses(ctx context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.userExpenses(userID))), nil
}

func (s *fakeStore) budgetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.budgets)
}

func (s *fakeStore) expenseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expenses)
}

// seedExpense 直接写入一条消费
func (s *fakeStore) seedExpense(identityID int64, amount string, desc string, day time.Time) *models.Expense {
	u, _ := s.EnsureUser(context.Background(), identityID, "", "")
	e := &models.Expense{UserID: u.ID, CategoryID: 1, Amount: decimal.RequireFromString(amount), Description: desc, ExpenseDate: day}
	_ = s.CreateExpense(context.Background(), e)
	return e
}

// fakeGate 固定的身份角色表
type fakeGate struct {
	mu      sync.Mutex
	roles   map[int64]service.Role
	entries []models.AuthorizedUser
}

func newFakeGate(roles map[int64]service.Role) *fakeGate {
	return &fakeGate{roles: roles}
}

func (g *fakeGate) Resolve(ctx context.Context, identityID int64) (service.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.roles[identityID], nil
}

func (g *fakeGate) AddUser(ctx context.Context, actorID, identityID int64) (*models.AuthorizedUser, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.roles[identityID]; ok {
		return nil, service.ErrAlreadyAuthorized
	}
	g.roles[identityID] = service.RoleMember
	entry := models.AuthorizedUser{IdentityID: identityID, AddedBy: actorID}
	g.entries = append(g.entries, entry)
	return &entry, nil
}

func (g *fakeGate) RemoveUser(ctx context.Context, identityID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.roles[identityID]; !ok {
		return database.ErrNotFound
	}
	delete(g.roles, identityID)
	return nil
}

func (g *fakeGate) ListUsers(ctx context.Context) ([]models.AuthorizedUser, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.AuthorizedUser(nil), g.entries...), nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []int64
}

func (n *fakeNotifier) Enabled() bool { return true }

func (n *fakeNotifier) SendAccessRequest(identityID int64, displayName, username string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, identityID)
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
