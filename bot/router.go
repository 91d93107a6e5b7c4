package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"budgetbot/database"
	"budgetbot/logger"
	"budgetbot/metrics"
	"budgetbot/models"
	"budgetbot/service"

	"go.uber.org/zap"
)

// Gate 授权门
type Gate interface {
	Resolve(ctx context.Context, identityID int64) (service.Role, error)
	AddUser(ctx context.Context, actorID, identityID int64) (*models.AuthorizedUser, error)
	RemoveUser(ctx context.Context, identityID int64) error
	ListUsers(ctx context.Context) ([]models.AuthorizedUser, error)
}

// Notifier 未授权访问通知
type Notifier interface {
	Enabled() bool
	SendAccessRequest(identityID int64, displayName, username string) error
}

// Config 路由配置
type Config struct {
	Location        *time.Location
	HistoryPageSize int
	Now             func() time.Time
	Notifier        Notifier // 可为 nil
}

// 命令别名
var commandAliases = map[string]string{
	"help":       "start",
	"setbudget":  "set-budget",
	"budget":     "budget-status",
	"status":     "budget-status",
	"adduser":    "add-user",
	"removeuser": "remove-user",
	"listusers":  "list-users",
	"myid":       "my-id",
}

var adminCommands = map[string]bool{
	"add-user":    true,
	"remove-user": true,
	"list-users":  true,
}

// Router 命令路由：授权之后把事件分发给直接查询或会话引擎
type Router struct {
	gate     Gate
	store    Store
	engine   *Engine
	budgets  *service.BudgetService
	notifier Notifier
	clock    Clock
	pageSize int

	mu       sync.Mutex
	notified map[int64]struct{}
}

// NewRouter 创建命令路由
func NewRouter(gate Gate, store Store, cfg Config) *Router {
	clock := Clock{Now: cfg.Now, Location: cfg.Location}
	pageSize := cfg.HistoryPageSize
	if pageSize <= 0 {
		pageSize = 5
	}
	return &Router{
		gate:     gate,
		store:    store,
		engine:   NewEngine(store, clock),
		budgets:  service.NewBudgetService(store),
		notifier: cfg.Notifier,
		clock:    clock,
		pageSize: pageSize,
		notified: make(map[int64]struct{}),
	}
}

// Engine 会话引擎
func (r *Router) Engine() *Engine {
	return r.engine
}

// Dispatch 处理一个入站事件，任何错误都只影响本事件
func (r *Router) Dispatch(ctx context.Context, ev Event) (resp Response) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		metrics.ObserveEvent(string(ev.Kind), string(resp.Outcome), elapsed)
		logger.Get().Info("事件已处理",
			zap.String("event_id", ev.ID),
			zap.Int64("identity_id", ev.IdentityID),
			zap.String("kind", string(ev.Kind)),
			zap.String("outcome", string(resp.Outcome)),
			zap.Duration("duration", elapsed),
		)
	}()

	role, err := r.gate.Resolve(ctx, ev.IdentityID)
	if err != nil {
		logger.Get().Error("解析授权失败", zap.Int64("identity_id", ev.IdentityID), zap.Error(err))
		return storageFailed()
	}
	if role == service.RoleUnauthorized {
		return r.deny(ev)
	}

	sessions := r.engine.Sessions()
	if !sessions.Acquire(ev.IdentityID) {
		return Response{Text: textConflict, Outcome: OutcomeConflict}
	}
	defer sessions.Release(ev.IdentityID)

	user, err := r.store.EnsureUser(ctx, ev.IdentityID, ev.DisplayName, ev.Username)
	if err != nil {
		logger.Get().Error("创建用户失败", zap.Int64("identity_id", ev.IdentityID), zap.Error(err))
		return storageFailed()
	}

	switch ev.Kind {
	case KindCommand:
		return r.command(ctx, role, user, ev)
	case KindSelection:
		return r.selection(ctx, user, ev)
	case KindText:
		return r.text(ctx, user, ev)
	}
	return Response{Text: "Unsupported event.", Outcome: OutcomeValidationFailed}
}

// deny 未授权访问；首次 start 时通知运维
func (r *Router) deny(ev Event) Response {
	name, _ := parseCommand(ev.Payload)
	if ev.Kind == KindCommand && name == "start" && r.markNotified(ev.IdentityID) {
		if err := r.notifier.SendAccessRequest(ev.IdentityID, ev.DisplayName, ev.Username); err != nil {
			logger.Get().Warn("发送访问申请通知失败", zap.Int64("identity_id", ev.IdentityID), zap.Error(err))
		}
	}
	return Response{Text: textDenied, Outcome: OutcomeDenied}
}

// markNotified 每个身份在进程内只通知一次
func (r *Router) markNotified(identityID int64) bool {
	if r.notifier == nil || !r.notifier.Enabled() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.notified[identityID]; done {
		return false
	}
	r.notified[identityID] = struct{}{}
	return true
}

// parseCommand 拆分命令名和参数，兼容 /cmd@botname 形式
func parseCommand(payload string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(payload))
	if len(fields) == 0 {
		return "", nil
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if canonical, ok := commandAliases[name]; ok {
		name = canonical
	}
	return name, fields[1:]
}

func (r *Router) command(ctx context.Context, role service.Role, user *models.User, ev Event) Response {
	name, args := parseCommand(ev.Payload)
	if adminCommands[name] && role != service.RoleAdmin {
		return Response{Text: textAdminOnly, Outcome: OutcomeDenied}
	}

	switch name {
	case "start":
		text := helpText
		if role == service.RoleAdmin {
			text += adminHelpText
		}
		return ok(text, nil)
	case "set-budget":
		return r.engine.StartSetBudget(user.IdentityID)
	case "budget-status":
		return r.status(ctx, user)
	case "history":
		page := 1
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
				page = n
			}
		}
		return r.history(ctx, user, page)
	case "edit", "delete":
		var id uint
		if len(args) > 0 {
			parsed, valid := parseTargetID(args[0])
			if !valid {
				return Response{Text: "⚠️ Invalid expense ID.", Outcome: OutcomeValidationFailed}
			}
			id = parsed
		}
		if name == "edit" {
			return r.engine.StartEdit(ctx, user, id)
		}
		return r.engine.StartDelete(ctx, user, id)
	case "cancel":
		return r.engine.Cancel(user.IdentityID)
	case "my-id":
		return ok(fmt.Sprintf("🆔 Your ID: %d", user.IdentityID), nil)
	case "add-user":
		return r.addUser(ctx, user, args)
	case "remove-user":
		return r.removeUser(ctx, args)
	case "list-users":
		return r.listUsers(ctx)
	}
	return Response{Text: "Unknown command. Send /start to see what I can do.", Outcome: OutcomeValidationFailed}
}

func (r *Router) selection(ctx context.Context, user *models.User, ev Event) Response {
	value := strings.TrimSpace(ev.Payload)
	if value == "noop" {
		return ok("", nil)
	}
	// 翻页不影响进行中的流程
	if rest, found := strings.CutPrefix(value, "history:"); found {
		page, err := strconv.Atoi(rest)
		if err != nil || page < 1 {
			page = 1
		}
		return r.history(ctx, user, page)
	}
	if r.engine.Active(user.IdentityID) {
		return r.engine.Continue(ctx, user, ev)
	}

	switch {
	case strings.HasPrefix(value, "edit:"):
		if id, valid := parseTargetID(value); valid {
			return r.engine.StartEdit(ctx, user, id)
		}
	case strings.HasPrefix(value, "delete:"):
		if id, valid := parseTargetID(value); valid {
			return r.engine.StartDelete(ctx, user, id)
		}
	case value == "cancel":
		return r.engine.Cancel(user.IdentityID)
	}
	return Response{Text: "This option has expired.", Outcome: OutcomeValidationFailed}
}

func (r *Router) text(ctx context.Context, user *models.User, ev Event) Response {
	if r.engine.Active(user.IdentityID) {
		return r.engine.Continue(ctx, user, ev)
	}
	if !service.LooksLikeExpense(ev.Payload) {
		return Response{
			Text:    "🤔 To record an expense send: <amount> <description>\nExample: 12.50 coffee",
			Outcome: OutcomeValidationFailed,
		}
	}
	return r.engine.StartAddExpense(ctx, user, ev.Payload)
}

func (r *Router) status(ctx context.Context, user *models.User) Response {
	status, err := r.budgets.Status(ctx, user.ID, r.clock.Today())
	if errors.Is(err, service.ErrNoBudget) {
		return Response{Text: "No active budget. Use /setbudget to create one.", Outcome: OutcomeNotFound}
	}
	if err != nil {
		logger.Get().Error("查询预算状态失败", zap.Int64("identity_id", user.IdentityID), zap.Error(err))
		return storageFailed()
	}
	return ok(formatStatus(status), nil)
}

// history 分页列出消费，每条带编辑/删除选项
func (r *Router) history(ctx context.Context, user *models.User, page int) Response {
	total, err := r.store.CountExpenses(ctx, user.ID)
	if err != nil {
		logger.Get().Error("统计消费失败", zap.Error(err))
		return storageFailed()
	}
	if total == 0 {
		return ok("No expenses recorded yet.", nil)
	}

	pages := int((total + int64(r.pageSize) - 1) / int64(r.pageSize))
	if page > pages {
		page = pages
	}
	list, err := r.store.ListExpenses(ctx, user.ID, r.pageSize, (page-1)*r.pageSize)
	if err != nil {
		logger.Get().Error("查询消费失败", zap.Error(err))
		return storageFailed()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 Expenses (page %d/%d)\n", page, pages)
	opts := make([]Option, 0, len(list)*2+2)
	for i := range list {
		e := &list[i]
		id := strconv.FormatUint(uint64(e.ID), 10)
		sb.WriteString("\n" + expenseLine(e))
		opts = append(opts,
			Option{Label: "✏️ #" + id, Value: "edit:" + id},
			Option{Label: "🗑️ #" + id, Value: "delete:" + id},
		)
	}
	if page > 1 {
		opts = append(opts, Option{Label: "⬅️ Prev", Value: "history:" + strconv.Itoa(page-1)})
	}
	if page < pages {
		opts = append(opts, Option{Label: "Next ➡️", Value: "history:" + strconv.Itoa(page+1)})
	}
	return ok(sb.String(), opts)
}

func parseIdentityArg(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (r *Router) addUser(ctx context.Context, actor *models.User, args []string) Response {
	id, valid := parseIdentityArg(args)
	if !valid {
		return Response{Text: "Usage: /adduser <id>", Outcome: OutcomeValidationFailed}
	}
	_, err := r.gate.AddUser(ctx, actor.IdentityID, id)
	if errors.Is(err, service.ErrAlreadyAuthorized) {
		return Response{Text: fmt.Sprintf("User %d is already authorized.", id), Outcome: OutcomeValidationFailed}
	}
	if err != nil {
		logger.Get().Error("添加授权失败", zap.Int64("target", id), zap.Error(err))
		return storageFailed()
	}
	logger.Get().Info("已添加授权", zap.Int64("actor", actor.IdentityID), zap.Int64("target", id))
	return ok(fmt.Sprintf("✅ User %d has been authorized.", id), nil)
}

func (r *Router) removeUser(ctx context.Context, args []string) Response {
	id, valid := parseIdentityArg(args)
	if !valid {
		return Response{Text: "Usage: /removeuser <id>", Outcome: OutcomeValidationFailed}
	}
	err := r.gate.RemoveUser(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return Response{Text: fmt.Sprintf("User %d is not in the authorized list.", id), Outcome: OutcomeNotFound}
	}
	if err != nil {
		logger.Get().Error("移除授权失败", zap.Int64("target", id), zap.Error(err))
		return storageFailed()
	}
	return ok(fmt.Sprintf("✅ User %d has been removed.", id), nil)
}

func (r *Router) listUsers(ctx context.Context) Response {
	list, err := r.gate.ListUsers(ctx)
	if err != nil {
		logger.Get().Error("查询授权列表失败", zap.Error(err))
		return storageFailed()
	}
	return ok(formatUsers(list), nil)
}
