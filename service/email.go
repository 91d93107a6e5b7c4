package service

import (
	"fmt"
	"html"

	"budgetbot/config"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Enabled 是否配置了可用的通知邮箱
func (s *EmailService) Enabled() bool {
	return s.cfg.Enabled && s.cfg.NotifyTo != ""
}

// SendAccessRequest 通知运维有未授权身份申请使用机器人
func (s *EmailService) SendAccessRequest(identityID int64, displayName, username string) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("邮件服务未启用，请配置 BUDGETBOT_EMAIL_ENABLED=true")
	}
	if s.cfg.NotifyTo == "" {
		return fmt.Errorf("未配置通知收件人 email.notify_to")
	}

	subject := "[Budget Bot] Access request"
	body := s.generateAccessRequestBody(identityID, displayName, username)

	return s.sendEmail(s.cfg.NotifyTo, subject, body)
}

// generateAccessRequestBody 生成访问申请邮件内容
func (s *EmailService) generateAccessRequestBody(identityID int64, displayName, username string) string {
	who := html.EscapeString(displayName)
	if who == "" {
		who = "Unknown user"
	}
	if username != "" {
		who += " (@" + html.EscapeString(username) + ")"
	}
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
    <h2>🔐 Access request</h2>
    <p><strong>%s</strong> tried to use the bot but is not authorized.</p>
    <p>Identity ID: <code>%d</code></p>
    <p>To grant access, send this command to the bot as an admin:</p>
    <pre>/adduser %d</pre>
    <p style="color: #666;">Ignore this email if you do not recognise the user.</p>
</body>
</html>
`, who, identityID, identityID)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	return nil
}
