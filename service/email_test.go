package service

import (
	"testing"

	"budgetbot/config"

	"github.com/stretchr/testify/assert"
)

func newTestEmailService() *EmailService {
	return NewEmailService(&config.EmailConfig{})
}

func TestGenerateAccessRequestBody(t *testing.T) {
	s := newTestEmailService()
	body := s.generateAccessRequestBody(123456789, "Alice", "alice")
	assert.Contains(t, body, "Alice (@alice)")
	assert.Contains(t, body, "123456789")
	assert.Contains(t, body, "/adduser 123456789")

	// 未知昵称 + HTML 转义
	body2 := s.generateAccessRequestBody(1, "", "")
	assert.Contains(t, body2, "Unknown user")
	body3 := s.generateAccessRequestBody(1, "<b>x</b>", "")
	assert.NotContains(t, body3, "<b>x</b>")
}

func TestSendAccessRequest_Disabled(t *testing.T) {
	s := newTestEmailService()
	assert.False(t, s.Enabled())
	assert.Error(t, s.SendAccessRequest(1, "a", "b"))

	noRecipient := NewEmailService(&config.EmailConfig{Enabled: true})
	assert.False(t, noRecipient.Enabled())
	assert.Error(t, noRecipient.SendAccessRequest(1, "a", "b"))
}
