package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
	appURL   string
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool, appURL string) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		useTLS:   useTLS,
		appURL:   strings.TrimRight(appURL, "/"),
	}, nil
}

// SendVerificationEmail manda el correo de confirmacion de cuenta con el
// link de verificacion. El link expira junto con el token (24 horas).
func (s *SMTPSender) SendVerificationEmail(ctx context.Context, toEmail, name, token string, branding Branding) error {
	siteName := branding.SiteName
	if siteName == "" {
		siteName = "CTV Tiktok"
	}
	confirmLink := fmt.Sprintf("%s/new-verification?token=%s", s.appURL, token)
	subject := fmt.Sprintf("Xác thực tài khoản tại %s", siteName)
	body := fmt.Sprintf(
		"<div style=\"font-family: sans-serif; max-width: 600px; margin: 0 auto;\">"+
			"<h1>%s</h1>"+
			"<p>Xin chào <strong>%s</strong>,</p>"+
			"<p>Chào mừng bạn đến với cộng đồng <strong>%s</strong>. "+
			"Vui lòng xác nhận địa chỉ email này bằng cách nhấn vào liên kết dưới đây:</p>"+
			"<p><a href=\"%s\">Xác nhận địa chỉ Email</a></p>"+
			"<p style=\"font-size: 14px; color: #666;\">Liên kết xác nhận này sẽ hết hạn trong vòng 24 giờ. "+
			"Nếu bạn không thực hiện yêu cầu này, bạn có thể bỏ qua email này.</p>"+
			"%s"+
			"</div>",
		siteName, name, siteName, confirmLink, footer(branding),
	)
	return s.send(ctx, toEmail, siteName, subject, body)
}

// SendPasswordResetEmail manda el correo con el link de reset de password.
// El link expira junto con el token (1 hora).
func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, toEmail, name, token string, branding Branding) error {
	siteName := branding.SiteName
	if siteName == "" {
		siteName = "CTV Tiktok"
	}
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, token)
	subject := fmt.Sprintf("Đặt lại mật khẩu cho tài khoản %s", siteName)
	body := fmt.Sprintf(
		"<div style=\"font-family: sans-serif; max-width: 600px; margin: 0 auto;\">"+
			"<h1>%s</h1>"+
			"<p>Xin chào <strong>%s</strong>,</p>"+
			"<p>Chúng tôi nhận được yêu cầu đặt lại mật khẩu cho tài khoản của bạn. "+
			"Nhấn vào liên kết dưới đây để tạo mật khẩu mới:</p>"+
			"<p><a href=\"%s\">Đặt lại mật khẩu</a></p>"+
			"<p style=\"font-size: 14px; color: #666;\">Liên kết sẽ hết hạn trong vòng 1 giờ. "+
			"Nếu bạn không yêu cầu đặt lại mật khẩu, hãy bỏ qua email này.</p>"+
			"%s"+
			"</div>",
		siteName, name, resetLink, footer(branding),
	)
	return s.send(ctx, toEmail, siteName, subject, body)
}

func footer(branding Branding) string {
	var parts []string
	if branding.CompanyAddress != "" {
		parts = append(parts, branding.CompanyAddress)
	}
	if branding.CompanyHotline != "" {
		parts = append(parts, "Hotline: "+branding.CompanyHotline)
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("<p style=\"font-size: 12px; color: #999;\">%s</p>", strings.Join(parts, " · "))
}

func (s *SMTPSender) send(ctx context.Context, toEmail, fromName, subject, htmlBody string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	displayName := s.fromName
	if displayName == "" {
		displayName = fromName
	}
	msg := buildMessage(s.from, displayName, toEmail, subject, htmlBody)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if s.useTLS {
		dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.host}}
		rawConn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		defer rawConn.Close()

		if deadline, ok := ctx.Deadline(); ok {
			_ = rawConn.SetDeadline(deadline)
		}

		client, err := smtp.NewClient(rawConn, s.host)
		if err != nil {
			return err
		}
		defer client.Quit()

		if auth != nil {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
		if err := client.Mail(s.from); err != nil {
			return err
		}
		if err := client.Rcpt(toEmail); err != nil {
			return err
		}
		writer, err := client.Data()
		if err != nil {
			return err
		}
		if _, err := writer.Write([]byte(msg)); err != nil {
			_ = writer.Close()
			return err
		}
		return writer.Close()
	}

	return smtp.SendMail(addr, auth, s.from, []string{toEmail}, []byte(msg))
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
