// Package notify renders notification templates and delivers them by mail.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/coyote/taskboard/pkg/logger"
)

// Template ids
const (
	TemplateAccountActivation  = "account_activation"
	TemplatePasswordReset      = "password_reset"
	TemplateCardStartReminder  = "card_start_reminder"
	TemplateCardFinishReminder = "card_finish_reminder"
)

//go:embed templates/*.html
var templateFS embed.FS

// Message is a single notification addressed to one recipient.
type Message struct {
	Template  string                 `json:"template"`
	Subject   string                 `json:"subject"`
	Recipient string                 `json:"recipient"`
	Variables map[string]interface{} `json:"variables"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Renderer turns a Message into an HTML body.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"datetime": formatDateTime,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes the template named by msg.Template.
func (r *Renderer) Render(msg *Message) (string, error) {
	t := r.templates.Lookup(msg.Template + ".html")
	if t == nil {
		return "", fmt.Errorf("unknown template %q", msg.Template)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, msg.Variables); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

// LogSender renders and logs messages without sending them. Used in
// developer mode.
type LogSender struct {
	renderer *Renderer
}

func NewLogSender(renderer *Renderer) *LogSender {
	return &LogSender{renderer: renderer}
}

func (s *LogSender) Send(_ context.Context, msg *Message) error {
	if _, err := s.renderer.Render(msg); err != nil {
		return err
	}
	logger.Info().
		Str("template", msg.Template).
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Msg("[Notify] developer mode, mail suppressed")
	return nil
}
