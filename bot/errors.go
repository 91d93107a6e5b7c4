package bot

import (
	"errors"
	"fmt"

	"budgetbot/service"
)

// ValidationError 用户输入无法接受，Message 可直接展示
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// validationMessage 取出校验错误中面向用户的提示
func validationMessage(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	var pf *service.ParseFailure
	if errors.As(err, &pf) {
		return pf.Reason, true
	}
	return "", false
}

// 固定文案
const (
	textDenied        = "⛔ Sorry, you are not authorized to use this bot."
	textAdminOnly     = "⛔ Sorry, this command is not available to you."
	textStorageFailed = "❌ Something went wrong. Please try again later."
	textRetryCommit   = "❌ Could not save right now. Your input is kept, please try again."
	textDraftInvalid  = "⚠️ That could not be saved because the data is no longer valid. Let's start over."
	textConflict      = "⏳ Please wait, your previous message is still being processed."
	textNotFound      = "🔍 Expense not found."
	textCancelled     = "❌ Cancelled."
	textNothingToStop = "Nothing to cancel."
)

func storageFailed() Response {
	return Response{Text: textStorageFailed, Outcome: OutcomeStorageFailed}
}

func notFound(opts []Option) Response {
	return Response{Text: textNotFound, Options: opts, Outcome: OutcomeNotFound}
}

// reprompt 输入校验失败，停留在当前阶段并重发提示
func reprompt(err error, prompt string, opts []Option) Response {
	msg, _ := validationMessage(err)
	text := "⚠️ " + msg
	if prompt != "" {
		text += "\n\n" + prompt
	}
	return Response{Text: text, Options: opts, Outcome: OutcomeValidationFailed}
}
