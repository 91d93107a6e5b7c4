package bot

import (
	"sync"
	"time"

	"budgetbot/metrics"
	"budgetbot/models"

	"github.com/shopspring/decimal"
)

// Flow 多轮对话流程
type Flow int

const (
	FlowNone Flow = iota
	FlowSetBudget
	FlowAddExpense
	FlowEditExpense
	FlowDeleteExpense
)

func (f Flow) String() string {
	switch f {
	case FlowSetBudget:
		return "set_budget"
	case FlowAddExpense:
		return "add_expense"
	case FlowEditExpense:
		return "edit_expense"
	case FlowDeleteExpense:
		return "delete_expense"
	default:
		return "none"
	}
}

// Stage 流程中等待的下一项输入
type Stage int

const (
	StageNone Stage = iota
	StageAwaitingAmount
	StageAwaitingStartDate
	StageAwaitingEndDate
	StageAwaitingCategory
	StageAwaitingTargetSelection
	StageAwaitingEditField
	StageAwaitingEditValue
	StageConfirming
)

// 可修改的消费字段
const (
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldCategory    = "category"
)

// Draft 尚未提交的数据
type Draft struct {
	Amount      decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	Description string

	Target        *models.Expense // 编辑/删除的目标
	EditField     string
	Update        models.ExpenseUpdate
	CategoryLabel string // 编辑类别时的新类别名称
}

// Session 单个身份的会话
type Session struct {
	Flow    Flow
	Stage   Stage
	Draft   Draft
	Options []Option // 最近一次提示的选项，重试时原样返回
}

type slot struct {
	busy    bool
	session *Session
}

// SessionStore 按身份保存会话
// busy 标记保证同一身份的事件串行处理，只有持有者可以读写其 session
type SessionStore struct {
	mu     sync.Mutex
	slots  map[int64]*slot
	active int // 持有会话的槽数
}

// NewSessionStore 创建会话存储
func NewSessionStore() *SessionStore {
	return &SessionStore{slots: make(map[int64]*slot)}
}

// Acquire 占用身份的会话槽，已被占用时返回 false
func (s *SessionStore) Acquire(identityID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[identityID]
	if !ok {
		sl = &slot{}
		s.slots[identityID] = sl
	}
	if sl.busy {
		return false
	}
	sl.busy = true
	return true
}

// Release 释放会话槽，没有会话时一并回收
func (s *SessionStore) Release(identityID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[identityID]
	if !ok {
		return
	}
	sl.busy = false
	if sl.session == nil {
		delete(s.slots, identityID)
	}
	metrics.SetActiveSessions(s.active)
}

// Get 返回身份当前的会话，没有时为 nil
func (s *SessionStore) Get(identityID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sl, ok := s.slots[identityID]; ok {
		return sl.session
	}
	return nil
}

// Put 设置会话，替换已有的流程
func (s *SessionStore) Put(identityID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[identityID]
	if !ok {
		sl = &slot{}
		s.slots[identityID] = sl
	}
	switch {
	case sl.session == nil && sess != nil:
		s.active++
	case sl.session != nil && sess == nil:
		s.active--
	}
	sl.session = sess
	if sess == nil && !sl.busy {
		delete(s.slots, identityID)
	}
}

// Clear 丢弃会话，返回之前是否存在
func (s *SessionStore) Clear(identityID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[identityID]
	if !ok || sl.session == nil {
		return false
	}
	sl.session = nil
	s.active--
	if !sl.busy {
		delete(s.slots, identityID)
	}
	return true
}

// Active 持有草稿的会话数
func (s *SessionStore) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
