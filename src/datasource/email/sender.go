// sender.go
package email

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"

	"SiamikDashboard/src/config"

	"github.com/jordan-wright/email"
)

// ErrMailNotConfigured 未配置发件服务器或收件人
var ErrMailNotConfigured = errors.New("send_email is not configured")

// defaultSMTPPort SMTP over SSL
const defaultSMTPPort = "465"

// MailConfigured 发件配置是否完整
func MailConfigured(c *config.Config) bool {
	s := c.SendEmail
	return s.Server != "" && s.Username != "" && s.To != ""
}

// NewExportMessage 构造带导出附件的邮件
func NewExportMessage(c *config.Config, attachmentPath string) (*email.Email, error) {
	e := email.NewEmail()
	e.From = fmt.Sprintf("SIAMIK Dashboard <%s>", c.SendEmail.Username)
	e.To = []string{c.SendEmail.To}
	e.Subject = c.SendEmail.Subject
	e.Text = []byte("Terlampir data survei SIAMIK yang telah difilter.")

	if _, err := os.Stat(attachmentPath); err != nil {
		return nil, fmt.Errorf("附件文件不存在: %w", err)
	}
	if _, err := e.AttachFile(attachmentPath); err != nil {
		return nil, fmt.Errorf("附件添加失败: %w", err)
	}
	return e, nil
}

// SendExport 通过SMTP(显式TLS)发送导出文件
func SendExport(c *config.Config, attachmentPath string) error {
	if !MailConfigured(c) {
		return ErrMailNotConfigured
	}

	e, err := NewExportMessage(c, attachmentPath)
	if err != nil {
		return err
	}

	addr, host := smtpAddr(c.SendEmail.Server)
	err = e.SendWithTLS(
		addr,
		smtp.PlainAuth("", c.SendEmail.Username, c.SendEmail.Password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败(Server: %s): %w", addr, err)
	}
	return nil
}

// smtpAddr 确保服务器地址包含端口
func smtpAddr(server string) (addr, host string) {
	if h, _, err := net.SplitHostPort(server); err == nil {
		return server, h
	}
	return net.JoinHostPort(server, defaultSMTPPort), server
}
