package pkg

import (
	"crypto/tls"
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，可与 Username 相同
}

func SendEmail(cfg SMTPConfig, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return d.DialAndSend(m)
}

// MomentNoticeHTML 通知邮件正文，只负责最简单的渲染
func MomentNoticeHTML(headline, title string, startsAt time.Time, link string) string {
	return fmt.Sprintf(`<p>%s</p><p><b>%s</b><br>%s</p><p><a href="%s">%s</a></p>`,
		html.EscapeString(headline),
		html.EscapeString(title),
		startsAt.UTC().Format("2006-01-02 15:04 MST"),
		html.EscapeString(link),
		html.EscapeString(link),
	)
}
