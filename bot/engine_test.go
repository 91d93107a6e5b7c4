package bot

import (
	"context"
	"testing"
	"time"

	"budgetbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_TodayUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// UTC 1 月 3 日 20:00 在东京已是 1 月 4 日
	now := func() time.Time { return time.Date(2025, 1, 3, 20, 0, 0, 0, time.UTC) }
	assert.Equal(t, day(2025, 1, 4), Clock{Now: now, Location: tokyo}.Today())
	assert.Equal(t, day(2025, 1, 3), Clock{Now: now}.Today())
}

func TestParseTargetID(t *testing.T) {
	tests := []struct {
		in   string
		want uint
		ok   bool
	}{
		{"edit:12", 12, true},
		{"delete:7", 7, true},
		{"#5", 5, true},
		{"42", 42, true},
		{"0", 0, false},
		{"abc", 0, false},
		{"-3", 0, false},
	}
	for _, tt := range tests {
		got, valid := parseTargetID(tt.in)
		assert.Equal(t, tt.ok, valid, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseField(t *testing.T) {
	f, valid := parseField("field:amount")
	assert.True(t, valid)
	assert.Equal(t, FieldAmount, f)

	f, valid = parseField("Description")
	assert.True(t, valid)
	assert.Equal(t, FieldDescription, f)

	_, valid = parseField("date")
	assert.False(t, valid)
}

func TestEngine_ContinueWithoutSession(t *testing.T) {
	e := NewEngine(newFakeStore(), Clock{})
	resp := e.Continue(context.Background(), &models.User{ID: 1, IdentityID: 1}, Event{Kind: KindText, Payload: "300"})
	assert.Equal(t, OutcomeValidationFailed, resp.Outcome)
}

func TestEngine_StartEditWithNoExpenses(t *testing.T) {
	e := NewEngine(newFakeStore(), Clock{})
	resp := e.StartEdit(context.Background(), &models.User{ID: 1, IdentityID: 1}, 0)
	assert.Equal(t, OutcomeNotFound, resp.Outcome)
	assert.False(t, e.Active(1))
}

func TestEngine_LostStageIsDiscarded(t *testing.T) {
	e := NewEngine(newFakeStore(), Clock{})
	e.Sessions().Put(1, &Session{Flow: FlowAddExpense, Stage: StageConfirming})
	resp := e.Continue(context.Background(), &models.User{ID: 1, IdentityID: 1}, Event{Kind: KindText, Payload: "x"})
	assert.Equal(t, OutcomeValidationFailed, resp.Outcome)
	assert.False(t, e.Active(1))
}

func TestBudgetSummary(t *testing.T) {
	d := &Draft{
		Amount:    mustDecimal("100"),
		StartDate: day(2025, 1, 1),
		EndDate:   day(2025, 1, 3),
	}
	text := budgetSummary(d)
	assert.Contains(t, text, "3 days")
	assert.Contains(t, text, "Daily allowance: 33.33")
}
