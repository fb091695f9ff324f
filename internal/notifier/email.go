package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"job-killer/internal/model"
)

// EmailConfig holds SMTP settings for run notifications.
type EmailConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Host     string   `yaml:"host" json:"host"`
	Port     int      `yaml:"port" json:"port"`
	Username string   `yaml:"username" json:"username"`
	Password string   `yaml:"password" json:"password"`
	From     string   `yaml:"from" json:"from"`
	To       []string `yaml:"to" json:"to"`
	Subject  string   `yaml:"subject" json:"subject"`
}

// EmailMessage is one outgoing mail.
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// EmailSender abstracts the SMTP call so tests can capture messages.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient sends mail over plain SMTP.
type SMTPClient struct {
	addr string
	auth smtp.Auth
}

// NewSMTPClient builds an SMTPClient from config.
func NewSMTPClient(cfg EmailConfig) *SMTPClient {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPClient{addr: addr, auth: auth}
}

func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) error {
	return smtp.SendMail(c.addr, c.auth, msg.From, msg.To, []byte(buildEmailData(msg)))
}

// EmailNotifier mails the run summary once per run.
type EmailNotifier struct {
	cfg    EmailConfig
	sender EmailSender
}

// NewEmailNotifier creates an EmailNotifier; a nil sender gets the real
// SMTP client.
func NewEmailNotifier(cfg EmailConfig, sender EmailSender) *EmailNotifier {
	if sender == nil {
		sender = NewSMTPClient(cfg)
	}
	if cfg.Subject == "" {
		cfg.Subject = "Job import finished"
	}
	return &EmailNotifier{cfg: cfg, sender: sender}
}

// Notify sends the run summary.
func (n *EmailNotifier) Notify(ctx context.Context, summary model.RunSummary) error {
	msg := EmailMessage{
		From:    n.cfg.From,
		To:      n.cfg.To,
		Subject: n.cfg.Subject,
		Body:    buildBody(summary),
	}
	return n.sender.Send(ctx, msg)
}

func buildBody(s model.RunSummary) string {
	var b strings.Builder
	b.WriteString("Job import run finished.\n\n")
	fmt.Fprintf(&b, "Run:        %s\n", s.RunID)
	fmt.Fprintf(&b, "Feeds:      %d\n", s.Feeds)
	fmt.Fprintf(&b, "Found:      %d\n", s.Found)
	fmt.Fprintf(&b, "Imported:   %d\n", s.Imported)
	fmt.Fprintf(&b, "Duplicates: %d\n", s.Duplicates)
	fmt.Fprintf(&b, "Filtered:   %d\n", s.Filtered)
	fmt.Fprintf(&b, "Errors:     %d\n", s.Errors)
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration:   %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	return b.String()
}

func buildEmailData(msg EmailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ","))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.String()
}
