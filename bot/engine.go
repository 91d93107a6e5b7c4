package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"budgetbot/database"
	"budgetbot/logger"
	"budgetbot/metrics"
	"budgetbot/models"
	"budgetbot/service"

	"go.uber.org/zap"
)

// Store 会话引擎和路由依赖的存储操作
type Store interface {
	service.BudgetReader

	EnsureUser(ctx context.Context, identityID int64, displayName, username string) (*models.User, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	CreateBudget(ctx context.Context, budget *models.Budget) error
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, userID, expenseID uint) (*models.Expense, error)
	UpdateExpense(ctx context.Context, userID, expenseID uint, upd models.ExpenseUpdate) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID uint) error
	ListExpenses(ctx context.Context, userID uint, limit, offset int) ([]models.Expense, error)
	CountExpenses(ctx context.Context, userID uint) (int64, error)
}

// Clock 提供按配置时区计算的“今天”
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// Today 当前时区的日历日
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return models.DateOf(now().In(loc))
}

const recentTargets = 5

const (
	promptBudgetAmount = "💰 Enter the total budget amount:"
	promptStartDate    = "📅 Enter the start date (DD-MM-YYYY), or 'today':"
	promptEndDate      = "📅 Enter the end date (DD-MM-YYYY):"
	promptCategory     = "🏷️ Choose a category:"
	promptEditField    = "What do you want to change?"
	promptConfirm      = "Please confirm or cancel."
)

// Engine 会话引擎：按身份维护多轮输入，完成后一次性写入存储
// 调用方须先通过 Sessions().Acquire 占用身份
type Engine struct {
	store    Store
	budgets  *service.BudgetService
	sessions *SessionStore
	clock    Clock
}

// NewEngine 创建会话引擎
func NewEngine(store Store, clock Clock) *Engine {
	return &Engine{
		store:    store,
		budgets:  service.NewBudgetService(store),
		sessions: NewSessionStore(),
		clock:    clock,
	}
}

// Sessions 会话存储
func (e *Engine) Sessions() *SessionStore {
	return e.sessions
}

// Active 身份是否有进行中的流程
func (e *Engine) Active(identityID int64) bool {
	return e.sessions.Get(identityID) != nil
}

// Cancel 丢弃身份当前的流程
func (e *Engine) Cancel(identityID int64) Response {
	if e.sessions.Clear(identityID) {
		return ok(textCancelled, nil)
	}
	return ok(textNothingToStop, nil)
}

// ask 记录提示选项并返回
func (e *Engine) ask(sess *Session, text string, opts []Option) Response {
	sess.Options = opts
	return ok(text, opts)
}

// ================= 设置预算 =================

// StartSetBudget 开始设置预算流程
func (e *Engine) StartSetBudget(identityID int64) Response {
	sess := &Session{Flow: FlowSetBudget, Stage: StageAwaitingAmount}
	e.sessions.Put(identityID, sess)
	return e.ask(sess, promptBudgetAmount, []Option{cancelOption()})
}

func startDateOptions() []Option {
	return []Option{{Label: "📅 Today", Value: "today"}, cancelOption()}
}

func endDateOptions(start time.Time) []Option {
	end := models.EndOfMonth(start)
	return []Option{
		{Label: "End of month (" + formatDate(end) + ")", Value: formatDate(end)},
		cancelOption(),
	}
}

func (e *Engine) continueSetBudget(ctx context.Context, user *models.User, sess *Session, input string) Response {
	d := &sess.Draft
	switch sess.Stage {
	case StageAwaitingAmount:
		amount, err := service.ParseAmount(input, service.MaxBudgetAmount)
		if err != nil {
			return reprompt(err, promptBudgetAmount, sess.Options)
		}
		d.Amount = amount
		sess.Stage = StageAwaitingStartDate
		return e.ask(sess, fmt.Sprintf("Budget amount: %s\n\n%s", money(amount), promptStartDate), startDateOptions())

	case StageAwaitingStartDate:
		start, err := models.ParseDate(input, e.clock.Today())
		if err != nil {
			return reprompt(invalidf("Invalid date format. Please use DD-MM-YYYY."), promptStartDate, sess.Options)
		}
		d.StartDate = start
		sess.Stage = StageAwaitingEndDate
		return e.ask(sess, fmt.Sprintf("Start date: %s\n\n%s", formatDate(start), promptEndDate), endDateOptions(start))

	case StageAwaitingEndDate:
		end, err := models.ParseDate(input, e.clock.Today())
		if err != nil {
			return reprompt(invalidf("Invalid date format. Please use DD-MM-YYYY."), promptEndDate, sess.Options)
		}
		if end.Before(d.StartDate) {
			return reprompt(invalidf("End date must be on or after the start date (%s).", formatDate(d.StartDate)), promptEndDate, sess.Options)
		}
		d.EndDate = end
		sess.Stage = StageConfirming
		return e.ask(sess, budgetSummary(d), confirmOptions())

	case StageConfirming:
		if isDecline(input) {
			return e.Cancel(user.IdentityID)
		}
		if !isConfirm(input) {
			return reprompt(invalidf(promptConfirm), "", sess.Options)
		}
		budget := &models.Budget{
			UserID:      user.ID,
			TotalAmount: d.Amount,
			StartDate:   d.StartDate,
			EndDate:     d.EndDate,
		}
		if err := e.store.CreateBudget(ctx, budget); err != nil {
			return e.commitFailed(ctx, user, sess, err)
		}
		e.committed(user, sess)

		text := fmt.Sprintf("✅ Budget saved: %s from %s to %s.", money(budget.TotalAmount), formatDate(budget.StartDate), formatDate(budget.EndDate))
		if status, err := e.budgets.Status(ctx, user.ID, e.clock.Today()); err == nil {
			text += "\n" + remainingLine(status)
		}
		return ok(text, nil)
	}
	return e.lostStage(user, sess)
}

// ================= 记录消费 =================

// StartAddExpense 解析 "<金额> <描述>"，成功后等待选择类别
func (e *Engine) StartAddExpense(ctx context.Context, user *models.User, text string) Response {
	parsed, err := service.ParseExpense(text)
	if err != nil {
		return reprompt(err, "", nil)
	}
	cats, err := e.store.ListCategories(ctx)
	if err != nil {
		logger.Get().Error("加载类别失败", zap.Error(err))
		return storageFailed()
	}

	sess := &Session{
		Flow:  FlowAddExpense,
		Stage: StageAwaitingCategory,
		Draft: Draft{Amount: parsed.Amount, Description: parsed.Description},
	}
	e.sessions.Put(user.IdentityID, sess)
	return e.ask(sess, fmt.Sprintf("💸 %s for %s\n\n%s", money(parsed.Amount), parsed.Description, promptCategory), categoryOptions(cats))
}

func (e *Engine) continueAddExpense(ctx context.Context, user *models.User, sess *Session, input string) Response {
	if sess.Stage != StageAwaitingCategory {
		return e.lostStage(user, sess)
	}
	cat, err := e.resolveCategory(ctx, input)
	if err != nil {
		return e.inputFailed(err, promptCategory, sess)
	}

	d := &sess.Draft
	expense := &models.Expense{
		UserID:      user.ID,
		CategoryID:  cat.ID,
		Amount:      d.Amount,
		Description: d.Description,
		ExpenseDate: e.clock.Today(),
	}
	if err := e.store.CreateExpense(ctx, expense); err != nil {
		return e.commitFailed(ctx, user, sess, err)
	}
	e.committed(user, sess)

	text := fmt.Sprintf("✅ Recorded %s for %s (%s)", money(expense.Amount), expense.Description, cat.Label())
	status, err := e.budgets.Status(ctx, user.ID, expense.ExpenseDate)
	switch {
	case err == nil:
		text += "\n" + remainingLine(status)
	case errors.Is(err, service.ErrNoBudget):
		text += "\nNo active budget. Use /setbudget to create one."
	default:
		logger.Get().Warn("查询预算状态失败", zap.Int64("identity_id", user.IdentityID), zap.Error(err))
	}
	return ok(text, nil)
}

// resolveCategory 接受 category:<id> 选项或类别名称
func (e *Engine) resolveCategory(ctx context.Context, input string) (*models.Category, error) {
	if rest, found := strings.CutPrefix(input, "category:"); found {
		id, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return nil, invalidf("Unknown category.")
		}
		cat, err := e.store.GetCategory(ctx, uint(id))
		if errors.Is(err, database.ErrNotFound) {
			return nil, invalidf("Unknown category.")
		}
		return cat, err
	}

	cats, err := e.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		if strings.EqualFold(cats[i].Name, input) || cats[i].Label() == input {
			return &cats[i], nil
		}
	}
	return nil, invalidf("Unknown category: %s", input)
}

// ================= 编辑 / 删除消费 =================

// StartEdit 开始编辑流程，expenseID 为 0 时先让用户选择
func (e *Engine) StartEdit(ctx context.Context, user *models.User, expenseID uint) Response {
	return e.startTargeted(ctx, user, FlowEditExpense, expenseID)
}

// StartDelete 开始删除流程，expenseID 为 0 时先让用户选择
func (e *Engine) StartDelete(ctx context.Context, user *models.User, expenseID uint) Response {
	return e.startTargeted(ctx, user, FlowDeleteExpense, expenseID)
}

func (e *Engine) startTargeted(ctx context.Context, user *models.User, flow Flow, expenseID uint) Response {
	sess := &Session{Flow: flow, Stage: StageAwaitingTargetSelection}
	e.sessions.Put(user.IdentityID, sess)
	var resp Response
	if expenseID == 0 {
		resp = e.askTarget(ctx, user, sess)
	} else {
		resp = e.selectTarget(ctx, user, sess, expenseID)
	}
	// 没有可选目标时不留下会话，后续文本仍按新消费处理
	if resp.Outcome != OutcomeOK {
		e.sessions.Clear(user.IdentityID)
	}
	return resp
}

func targetPrefix(flow Flow) string {
	if flow == FlowDeleteExpense {
		return "delete:"
	}
	return "edit:"
}

func targetPrompt(flow Flow) string {
	if flow == FlowDeleteExpense {
		return "🗑️ Which expense do you want to delete? Pick one or send its ID."
	}
	return "✏️ Which expense do you want to edit? Pick one or send its ID."
}

// askTarget 列出最近的消费供选择
func (e *Engine) askTarget(ctx context.Context, user *models.User, sess *Session) Response {
	recent, err := e.store.ListExpenses(ctx, user.ID, recentTargets, 0)
	if err != nil {
		logger.Get().Error("查询最近消费失败", zap.Error(err))
		return storageFailed()
	}
	if len(recent) == 0 {
		e.sessions.Clear(user.IdentityID)
		return Response{Text: "You have no expenses yet.", Outcome: OutcomeNotFound}
	}

	opts := make([]Option, 0, len(recent)+1)
	for i := range recent {
		opts = append(opts, Option{
			Label: expenseLine(&recent[i]),
			Value: targetPrefix(sess.Flow) + strconv.FormatUint(uint64(recent[i].ID), 10),
		})
	}
	opts = append(opts, cancelOption())
	return e.ask(sess, targetPrompt(sess.Flow), opts)
}

// selectTarget 锁定目标消费；不属于调用方的记录按不存在处理
func (e *Engine) selectTarget(ctx context.Context, user *models.User, sess *Session, expenseID uint) Response {
	expense, err := e.store.GetExpense(ctx, user.ID, expenseID)
	if errors.Is(err, database.ErrNotFound) {
		return notFound(sess.Options)
	}
	if err != nil {
		logger.Get().Error("查询消费失败", zap.Uint("expense_id", expenseID), zap.Error(err))
		return storageFailed()
	}

	sess.Draft.Target = expense
	if sess.Flow == FlowDeleteExpense {
		sess.Stage = StageConfirming
		return e.ask(sess, "🗑️ Delete this expense?\n"+expenseLine(expense), confirmOptions())
	}
	sess.Stage = StageAwaitingEditField
	return e.ask(sess, "✏️ Editing\n"+expenseLine(expense)+"\n\n"+promptEditField, editFieldOptions())
}

// parseTargetID 接受 edit:<id>、delete:<id>、#<id> 或纯数字
func parseTargetID(input string) (uint, bool) {
	s := strings.TrimPrefix(input, "edit:")
	s = strings.TrimPrefix(s, "delete:")
	s = strings.TrimPrefix(s, "#")
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func parseField(input string) (string, bool) {
	f := strings.ToLower(strings.TrimPrefix(input, "field:"))
	switch f {
	case FieldAmount, FieldDescription, FieldCategory:
		return f, true
	}
	return "", false
}

func (e *Engine) continueTargeted(ctx context.Context, user *models.User, sess *Session, input string) Response {
	d := &sess.Draft
	switch sess.Stage {
	case StageAwaitingTargetSelection:
		id, valid := parseTargetID(input)
		if !valid {
			return reprompt(invalidf("Please choose an expense or send its ID."), "", sess.Options)
		}
		return e.selectTarget(ctx, user, sess, id)

	case StageAwaitingEditField:
		field, valid := parseField(input)
		if !valid {
			return reprompt(invalidf("Please choose amount, description or category."), "", sess.Options)
		}
		d.EditField = field
		sess.Stage = StageAwaitingEditValue
		return e.askEditValue(ctx, sess)

	case StageAwaitingEditValue:
		if err := e.applyEditValue(ctx, d, input); err != nil {
			return e.inputFailed(err, "", sess)
		}
		sess.Stage = StageConfirming
		return e.ask(sess, editSummary(d), confirmOptions())

	case StageConfirming:
		if isDecline(input) {
			return e.Cancel(user.IdentityID)
		}
		if !isConfirm(input) {
			return reprompt(invalidf(promptConfirm), "", sess.Options)
		}
		if sess.Flow == FlowDeleteExpense {
			return e.commitDelete(ctx, user, sess)
		}
		return e.commitEdit(ctx, user, sess)
	}
	return e.lostStage(user, sess)
}

func (e *Engine) askEditValue(ctx context.Context, sess *Session) Response {
	switch sess.Draft.EditField {
	case FieldAmount:
		return e.ask(sess, "💵 Enter the new amount:", []Option{cancelOption()})
	case FieldDescription:
		return e.ask(sess, "📝 Enter the new description:", []Option{cancelOption()})
	default:
		cats, err := e.store.ListCategories(ctx)
		if err != nil {
			logger.Get().Error("加载类别失败", zap.Error(err))
			sess.Stage = StageAwaitingEditField
			return storageFailed()
		}
		return e.ask(sess, promptCategory, categoryOptions(cats))
	}
}

func (e *Engine) applyEditValue(ctx context.Context, d *Draft, input string) error {
	d.Update = models.ExpenseUpdate{}
	switch d.EditField {
	case FieldAmount:
		amount, err := service.ParseAmount(input, service.MaxExpenseAmount)
		if err != nil {
			return err
		}
		d.Update.Amount = &amount
	case FieldDescription:
		desc, err := service.ValidateDescription(input)
		if err != nil {
			return err
		}
		d.Update.Description = &desc
	case FieldCategory:
		cat, err := e.resolveCategory(ctx, input)
		if err != nil {
			return err
		}
		d.Update.CategoryID = &cat.ID
		d.CategoryLabel = cat.Label()
	}
	return nil
}

func editSummary(d *Draft) string {
	t := d.Target
	var change string
	switch {
	case d.Update.Amount != nil:
		change = fmt.Sprintf("Amount: %s → %s", money(t.Amount), money(*d.Update.Amount))
	case d.Update.Description != nil:
		change = fmt.Sprintf("Description: %s → %s", t.Description, *d.Update.Description)
	case d.Update.CategoryID != nil:
		change = fmt.Sprintf("Category: %s → %s", categoryLabel(t), d.CategoryLabel)
	}
	return fmt.Sprintf("✏️ Expense #%d\n%s\n\nSave this change?", t.ID, change)
}

func (e *Engine) commitEdit(ctx context.Context, user *models.User, sess *Session) Response {
	updated, err := e.store.UpdateExpense(ctx, user.ID, sess.Draft.Target.ID, sess.Draft.Update)
	if err != nil {
		return e.commitFailed(ctx, user, sess, err)
	}
	e.committed(user, sess)
	return ok("✅ Expense updated\n"+expenseLine(updated), nil)
}

func (e *Engine) commitDelete(ctx context.Context, user *models.User, sess *Session) Response {
	target := sess.Draft.Target
	if err := e.store.DeleteExpense(ctx, user.ID, target.ID); err != nil {
		return e.commitFailed(ctx, user, sess, err)
	}
	e.committed(user, sess)
	return ok(fmt.Sprintf("🗑️ Expense #%d deleted.", target.ID), nil)
}

// ================= 公共 =================

// Continue 把输入交给身份当前的流程
func (e *Engine) Continue(ctx context.Context, user *models.User, ev Event) Response {
	sess := e.sessions.Get(user.IdentityID)
	if sess == nil {
		return Response{Text: "Nothing in progress.", Outcome: OutcomeValidationFailed}
	}

	input := strings.TrimSpace(ev.Payload)
	if isCancel(input) {
		return e.Cancel(user.IdentityID)
	}

	switch sess.Flow {
	case FlowSetBudget:
		return e.continueSetBudget(ctx, user, sess, input)
	case FlowAddExpense:
		return e.continueAddExpense(ctx, user, sess, input)
	case FlowEditExpense, FlowDeleteExpense:
		return e.continueTargeted(ctx, user, sess, input)
	}
	return e.lostStage(user, sess)
}

func isConfirm(input string) bool {
	switch strings.ToLower(input) {
	case "confirm", "yes", "y":
		return true
	}
	return false
}

func isCancel(input string) bool {
	switch strings.ToLower(input) {
	case "cancel", "/cancel":
		return true
	}
	return false
}

func isDecline(input string) bool {
	switch strings.ToLower(input) {
	case "no", "n":
		return true
	}
	return false
}

// inputFailed 处理阶段输入时的错误：校验失败重新提示，其余按存储失败处理，会话保持不变
func (e *Engine) inputFailed(err error, prompt string, sess *Session) Response {
	if _, isValidation := validationMessage(err); isValidation {
		return reprompt(err, prompt, sess.Options)
	}
	logger.Get().Error("处理输入失败", zap.String("flow", sess.Flow.String()), zap.Error(err))
	return Response{Text: textRetryCommit, Options: sess.Options, Outcome: OutcomeStorageFailed}
}

// commitFailed 提交失败
// 目标不存在则结束流程；约束冲突说明草稿本身无效，从流程第一步重来；其他错误保留会话供重试
func (e *Engine) commitFailed(ctx context.Context, user *models.User, sess *Session, err error) Response {
	log := logger.Get().With(zap.Int64("identity_id", user.IdentityID), zap.String("flow", sess.Flow.String()))

	switch {
	case errors.Is(err, database.ErrNotFound):
		e.sessions.Clear(user.IdentityID)
		return notFound(nil)

	case database.IsConstraintViolation(err):
		log.Warn("草稿违反约束，流程重新开始", zap.Error(err))
		resp := e.restart(ctx, user, sess.Flow)
		resp.Text = textDraftInvalid + "\n\n" + resp.Text
		resp.Outcome = OutcomeStorageFailed
		return resp

	default:
		log.Error("提交失败", zap.Error(err))
		return Response{Text: textRetryCommit, Options: sess.Options, Outcome: OutcomeStorageFailed}
	}
}

// restart 丢弃草稿，回到流程第一步
func (e *Engine) restart(ctx context.Context, user *models.User, flow Flow) Response {
	switch flow {
	case FlowSetBudget:
		return e.StartSetBudget(user.IdentityID)
	case FlowEditExpense, FlowDeleteExpense:
		sess := &Session{Flow: flow, Stage: StageAwaitingTargetSelection, Options: []Option{cancelOption()}}
		e.sessions.Put(user.IdentityID, sess)
		return ok(targetPrompt(flow), sess.Options)
	default:
		e.sessions.Clear(user.IdentityID)
		return ok("Send the expense again: <amount> <description>", nil)
	}
}

func (e *Engine) committed(user *models.User, sess *Session) {
	e.sessions.Clear(user.IdentityID)
	metrics.FlowCommitted(sess.Flow.String())
	logger.Get().Info("流程已提交",
		zap.Int64("identity_id", user.IdentityID),
		zap.String("flow", sess.Flow.String()),
	)
}

// lostStage 会话处于不可能的阶段，丢弃
func (e *Engine) lostStage(user *models.User, sess *Session) Response {
	logger.Get().Warn("会话阶段无效，已丢弃",
		zap.Int64("identity_id", user.IdentityID),
		zap.String("flow", sess.Flow.String()),
		zap.Int("stage", int(sess.Stage)),
	)
	e.sessions.Clear(user.IdentityID)
	return Response{Text: "Something got mixed up, please start again.", Outcome: OutcomeValidationFailed}
}
