package mail

import (
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
)

const defaultSender = "no-reply@localhost"

// Config describes the SMTP relay used for operator mail.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

// ConfigFromEnv reads the SMTP_* variables.
func ConfigFromEnv() Config {
	return Config{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "25"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		Sender:   env.GetEnv("SMTP_SENDER", ""),
	}
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c Config) auth() smtp.Auth {
	if c.Username == "" || c.Password == "" {
		return nil
	}
	return smtp.PlainAuth("", c.Username, c.Password, c.Host)
}

// SendMail delivers a plain text mail with the SMTP_* configuration.
func SendMail(to, subject, body string) error {
	return send(ConfigFromEnv(), smtp.SendMail, to, subject, body)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

func send(cfg Config, deliver sendFunc, to, subject, body string) error {
	if cfg.Host == "" {
		return errors.New("SMTP_HOST is not configured")
	}
	sender := cfg.Sender
	if sender == "" {
		sender = defaultSender
		log.Warnf("[Mail] SMTP_SENDER not set, sending as %s", sender)
	}

	msg := BuildMessage(sender, to, subject, body)
	if err := deliver(cfg.addr(), cfg.auth(), sender, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	log.Infof("[Mail] Sent %q to %s via %s", subject, to, cfg.addr())
	return nil
}

// BuildMessage renders a minimal RFC 5322 text message. Line breaks are
// removed from header values so a subject cannot inject headers.
func BuildMessage(from, to, subject, body string) []byte {
	header := strings.NewReplacer("\r", " ", "\n", " ")
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", header.Replace(from))
	fmt.Fprintf(&b, "To: %s\r\n", header.Replace(to))
	fmt.Fprintf(&b, "Subject: %s\r\n", header.Replace(subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), header.Replace(domain))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
