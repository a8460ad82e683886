package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"mime"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/pkg/logger"
)

// mailSender hands one composed message to the mail server.
type mailSender func(cfg *config.EmailConfig, from string, to []string, msg []byte) error

// EmailService sends report notifications and monitor alerts over SMTP.
type EmailService struct {
	cfg  *config.EmailConfig
	send mailSender
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg, send: deliverSMTP}
}

func (s *EmailService) enabled() bool {
	return s.cfg != nil && s.cfg.Enabled && s.cfg.Host != ""
}

// Send implements Notifier. The returned id is the Message-ID header.
func (s *EmailService) Send(ctx context.Context, n *ReportNotification) (string, error) {
	if !s.enabled() || len(s.cfg.Recipients) == 0 {
		return "", ErrNotifierDisabled
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.sendEmail(s.cfg.Recipients, n.Subject(), buildReportBody(n))
}

// SendMissingSubmissionAlert tells recipients which reps have not reported.
func (s *EmailService) SendMissingSubmissionAlert(ctx context.Context, result *MissingSubmissionResult, recipients []string) error {
	if !s.enabled() {
		return ErrNotifierDisabled
	}
	if len(recipients) == 0 {
		recipients = s.cfg.Recipients
	}
	if len(recipients) == 0 {
		return ErrNotifierDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("[SDR] Relatórios pendentes em %s: %d", result.Date, len(result.Missing))
	_, err := s.sendEmail(recipients, subject, buildMissingBody(result))
	return err
}

func buildReportBody(n *ReportNotification) string {
	var sb strings.Builder

	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString("<h2>Relatório diário recebido</h2>")
	sb.WriteString("<table style=\"border-collapse: collapse; margin-bottom: 20px;\">")

	rows := []struct{ label, value string }{
		{"Vendedor", n.SalesRepName},
		{"Data", n.RegistrationDate},
		{"Reuniões agendadas", fmt.Sprintf("%d", n.ScheduledCount)},
		{"Reuniões realizadas", fmt.Sprintf("%d", n.CompletedCount)},
	}

	for _, r := range rows {
		fmt.Fprintf(&sb, "<tr><td style=\"padding: 8px; border: 1px solid #ddd; font-weight: bold;\">%s</td><td style=\"padding: 8px; border: 1px solid #ddd;\">%s</td></tr>",
			r.label, html.EscapeString(r.value))
	}
	sb.WriteString("</table>")

	sb.WriteString("<h3>Reuniões</h3>")
	fmt.Fprintf(&sb, "<pre style=\"background: #f5f5f5; padding: 12px; border-radius: 4px;\">%s</pre>",
		html.EscapeString(FormatMeetingList(n.Meetings)))

	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">sdrdesk</p>")
	sb.WriteString("</body></html>")

	return sb.String()
}

func buildMissingBody(r *MissingSubmissionResult) string {
	var sb strings.Builder

	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	fmt.Fprintf(&sb, "<h2>Relatórios pendentes em %s</h2>", html.EscapeString(r.Date))
	fmt.Fprintf(&sb, "<p>%d de %d vendedores ainda não enviaram o relatório.</p>", len(r.Missing), r.Expected)
	sb.WriteString("<ul>")
	for _, rep := range r.Missing {
		fmt.Fprintf(&sb, "<li>%s</li>", html.EscapeString(rep.SalesRepName))
	}
	sb.WriteString("</ul>")
	sb.WriteString("</body></html>")

	return sb.String()
}

func (s *EmailService) sendEmail(to []string, subject, body string) (string, error) {
	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Host)
	headers := map[string]string{
		"From":         from,
		"To":           strings.Join(to, ","),
		"Subject":      mime.QEncoding.Encode("UTF-8", subject),
		"Date":         time.Now().Format(time.RFC1123Z),
		"Message-ID":   messageID,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var message strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&message, "%s: %s\r\n", k, headers[k])
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	if err := s.send(s.cfg, from, to, []byte(message.String())); err != nil {
		logger.Errorf("[Email] Failed to send email: %v", err)
		return "", err
	}

	logger.Infof("[Email] Sent %q to %v", subject, to)
	return messageID, nil
}

func deliverSMTP(cfg *config.EmailConfig, from string, to []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if !cfg.UseTLS {
		return smtp.SendMail(addr, auth, from, to, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
