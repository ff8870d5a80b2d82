package queue

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"
)

// mailer sends plain-text assignment mail over SMTP.  Without an
// address it is disabled and Send is a no-op.
type mailer struct {
	addr string
	from string
	auth smtp.Auth
}

// newMailerFromEnv reads SMTP_ADDR (host:port), SMTP_FROM and the
// optional SMTP_USER/SMTP_PASS pair.
func newMailerFromEnv() *mailer {
	addr := os.Getenv("SMTP_ADDR")
	if addr == "" {
		return &mailer{}
	}
	m := &mailer{addr: addr, from: os.Getenv("SMTP_FROM")}
	if m.from == "" {
		m.from = "noreply@recreation.local"
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		m.auth = smtp.PlainAuth("", user, os.Getenv("SMTP_PASS"), host)
	}
	return m
}

func (m *mailer) enabled() bool { return m.addr != "" }

// Send delivers one message addressed to all recipients.
func (m *mailer) Send(to []string, subject, body string) error {
	if !m.enabled() || len(to) == 0 {
		return nil
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.from, strings.Join(to, ", "), subject, body))
	return smtp.SendMail(m.addr, m.auth, m.from, to, msg)
}
