package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/quocanhngo/airguard/internal/airquality"
	"github.com/quocanhngo/airguard/internal/model"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Mailer handles sending emails
type Mailer struct {
	config Config
	to     []string
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a Mailer that sends alert emails to the given recipients
func New(cfg Config, alertTo []string) *Mailer {
	return &Mailer{config: cfg, to: alertTo, send: smtp.SendMail}
}

// NotifyAlert emails every alert recipient about a device entering alert
func (m *Mailer) NotifyAlert(ctx context.Context, event model.StatusEvent) error {
	if m == nil || len(m.to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("AirGuard - %s needs ventilation", event.DeviceName)
	body, err := renderAlertTemplate(event)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return m.deliver(m.to, subject, body)
}

// deliver sends an HTML email via SMTP
func (m *Mailer) deliver(to []string, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)

	headers := []struct{ k, v string }{
		{"From", fmt.Sprintf("%s <%s>", m.config.FromName, m.config.From)},
		{"To", strings.Join(to, ", ")},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=\"utf-8\""},
	}

	var msg bytes.Buffer
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h.k, h.v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := m.send(addr, auth, m.config.From, to, msg.Bytes()); err != nil {
		log.Printf("❌ Failed to send alert email to %v: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("📧 Alert email sent to %d recipient(s): %s", len(to), subject)
	return nil
}

type alertRow struct {
	Name  string
	Value string
	Alert bool
}

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
</head>
<body style="margin:0;padding:0;background-color:#0f172a;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:500px;margin:40px auto;background:#1e293b;border-radius:16px;overflow:hidden;border:1px solid rgba(239,68,68,0.3);">
        <div style="background:linear-gradient(135deg,#ef4444 0%,#f97316 100%);padding:24px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:24px;">🚨 {{.Device}}</h1>
            <p style="color:rgba(255,255,255,0.85);margin:8px 0 0;font-size:14px;">{{.At}}</p>
        </div>
        <div style="padding:24px;">
            <table style="width:100%;border-collapse:collapse;">
            {{range .Rows}}
                <tr>
                    <td style="color:#94a3b8;padding:6px 0;">{{.Name}}</td>
                    <td style="color:{{if .Alert}}#f87171{{else}}#e2e8f0{{end}};padding:6px 0;text-align:right;font-weight:600;">{{.Value}}{{if .Alert}} ⚠️{{end}}</td>
                </tr>
            {{end}}
            </table>
            {{if .Recovery}}
            <p style="color:#fbbf24;font-size:14px;margin:16px 0 0;">⏳ Estimated recovery with windows open: {{.Recovery}}</p>
            {{end}}
        </div>
    </div>
</body>
</html>`))

func renderAlertTemplate(event model.StatusEvent) (string, error) {
	r := event.Reading
	data := struct {
		Device   string
		At       string
		Rows     []alertRow
		Recovery string
	}{
		Device: event.DeviceName,
		At:     r.Timestamp.UTC().Format("2006-01-02 15:04 UTC"),
		Rows: []alertRow{
			{"CO₂", fmt.Sprintf("%d ppm", r.CO2), event.Evaluation[airquality.MetricCO2] != airquality.Normal},
			{"Temperature", fmt.Sprintf("%.1f °C", r.Temperature), event.Evaluation[airquality.MetricTemperature] != airquality.Normal},
			{"Humidity", fmt.Sprintf("%.1f %%", r.Humidity), event.Evaluation[airquality.MetricHumidity] != airquality.Normal},
		},
	}
	if rec := event.Recovery; rec != nil && rec.Kind == airquality.RecoveryFinite {
		data.Recovery = rec.Duration.Round(time.Minute).String()
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
