package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"budgetbot/models"
	"budgetbot/service"

	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

func cancelOption() Option {
	return Option{Label: "❌ Cancel", Value: "cancel"}
}

func confirmOptions() []Option {
	return []Option{{Label: "✅ Confirm", Value: "confirm"}, cancelOption()}
}

func categoryOptions(cats []models.Category) []Option {
	opts := make([]Option, 0, len(cats)+1)
	for _, c := range cats {
		opts = append(opts, Option{Label: c.Label(), Value: "category:" + strconv.FormatUint(uint64(c.ID), 10)})
	}
	return append(opts, cancelOption())
}

func editFieldOptions() []Option {
	return []Option{
		{Label: "💵 Amount", Value: "field:" + FieldAmount},
		{Label: "📝 Description", Value: "field:" + FieldDescription},
		{Label: "🏷️ Category", Value: "field:" + FieldCategory},
		cancelOption(),
	}
}

func categoryLabel(e *models.Expense) string {
	if e.Category == nil {
		return "Uncategorized"
	}
	return e.Category.Label()
}

// expenseLine 单条消费的展示文本
func expenseLine(e *models.Expense) string {
	line := fmt.Sprintf("#%d %s  %s  %s", e.ID, formatDate(e.ExpenseDate), money(e.Amount), categoryLabel(e))
	if e.Description != "" {
		line += "  " + e.Description
	}
	return line
}

func budgetSummary(d *Draft) string {
	b := models.Budget{TotalAmount: d.Amount, StartDate: d.StartDate, EndDate: d.EndDate}
	days := b.TotalDays()
	daily, _ := d.Amount.QuoRem(decimal.NewFromInt(int64(days)), 2)

	var sb strings.Builder
	sb.WriteString("📋 New budget\n")
	fmt.Fprintf(&sb, "Amount: %s\n", money(d.Amount))
	fmt.Fprintf(&sb, "Period: %s to %s (%d days)\n", formatDate(d.StartDate), formatDate(d.EndDate), days)
	fmt.Fprintf(&sb, "Daily allowance: %s\n\n", money(daily))
	sb.WriteString("Save this budget?")
	return sb.String()
}

// formatStatus 预算状态报告
func formatStatus(s *service.BudgetStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Budget status (%s)\n\n", formatDate(s.AsOf))
	fmt.Fprintf(&sb, "Budget: %s\n", money(s.Budget.TotalAmount))
	fmt.Fprintf(&sb, "Period: %s to %s\n", formatDate(s.Budget.StartDate), formatDate(s.Budget.EndDate))
	fmt.Fprintf(&sb, "Day %d of %d, %d days left\n\n", s.ElapsedDays, s.TotalDays, s.DaysLeft)
	fmt.Fprintf(&sb, "Daily allowance: %s\n", money(s.DailyAllowance))
	fmt.Fprintf(&sb, "Allowed to date: %s\n", money(s.AllowedToDate))
	fmt.Fprintf(&sb, "Spent to date: %s\n", money(s.SpentToDate))
	fmt.Fprintf(&sb, "Daily average: %s\n", money(s.DailyAverageSpent()))
	sb.WriteString(remainingLine(s))
	fmt.Fprintf(&sb, "\n\nSpent in period: %s (%s%%)\n", money(s.SpentInPeriod), s.SpentPercentage().StringFixed(1))
	fmt.Fprintf(&sb, "Remaining budget: %s", money(s.RemainingBudget))
	if s.IsOverBudget() {
		sb.WriteString("\n⚠️ You are over budget for this period.")
	}
	return sb.String()
}

func remainingLine(s *service.BudgetStatus) string {
	if s.RemainingToday.IsNegative() {
		return fmt.Sprintf("⚠️ Over today's allowance by %s", money(s.RemainingToday.Neg()))
	}
	return fmt.Sprintf("💰 Remaining today: %s", money(s.RemainingToday))
}

func formatUsers(list []models.AuthorizedUser) string {
	if len(list) == 0 {
		return "No authorized users."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Authorized users (%d)\n", len(list))
	for _, u := range list {
		role := "member"
		if u.IsAdmin {
			role = "admin"
		}
		name := u.DisplayName
		if u.Username != "" {
			name = strings.TrimSpace(name + " @" + u.Username)
		}
		fmt.Fprintf(&sb, "\n• %d (%s)", u.IdentityID, role)
		if name != "" {
			sb.WriteString(" " + name)
		}
		fmt.Fprintf(&sb, ", added %s", formatDate(u.CreatedAt))
	}
	return sb.String()
}

const helpText = `👋 Welcome to Budget Bot!

Record an expense by sending: <amount> <description>
Example: 12.50 coffee

Commands:
/setbudget - set a new budget
/budget - today's budget status
/history - recent expenses
/edit - edit an expense
/delete - delete an expense
/cancel - cancel the current operation
/myid - show your ID`

const adminHelpText = `

Admin commands:
/adduser <id> - authorize a user
/removeuser <id> - remove a user
/listusers - list authorized users`
