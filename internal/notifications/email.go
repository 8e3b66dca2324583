package notifications

import (
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/wneessen/go-mail"

	"github.com/desertthunder/podd/internal/shared"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var (
	textReport = texttemplate.Must(texttemplate.New("report.txt.tmpl").Funcs(texttemplate.FuncMap{"date": formatDate}).
			ParseFS(templateFiles, "templates/report.txt.tmpl"))
	htmlReport = htmltemplate.Must(htmltemplate.New("report.html.tmpl").Funcs(htmltemplate.FuncMap{"date": formatDate}).
			ParseFS(templateFiles, "templates/report.html.tmpl"))
)

type sendFunc func(ctx context.Context, msg *mail.Msg) error

type emailService struct {
	cfg  shared.EmailConfig
	send sendFunc
}

func newEmailService(cfg shared.EmailConfig) *emailService {
	s := &emailService{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

func (e *emailService) NotifyDownloads(ctx context.Context, report Report) error {
	if report.Empty() {
		return nil
	}

	msg, err := e.message(report)
	if err != nil {
		return err
	}
	if err := e.send(ctx, msg); err != nil {
		return fmt.Errorf("send email report: %w", err)
	}
	return nil
}

// message renders the report as a text/plain body with a text/html alternative.
func (e *emailService) message(report Report) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.cfg.Sender); err != nil {
		return nil, fmt.Errorf("%w: invalid sender: %v", shared.ErrInvalidConfig, err)
	}
	if err := msg.To(e.cfg.Recipient); err != nil {
		return nil, fmt.Errorf("%w: invalid recipient: %v", shared.ErrInvalidConfig, err)
	}
	msg.Subject(report.Subject())

	if err := msg.SetBodyTextTemplate(textReport, report); err != nil {
		return nil, fmt.Errorf("render text report: %w", err)
	}
	if err := msg.AddAlternativeHTMLTemplate(htmlReport, report); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return msg, nil
}

func (e *emailService) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if e.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if e.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.cfg.Sender),
			mail.WithPassword(e.cfg.Password),
		)
	}

	client, err := mail.NewClient(e.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
