package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"fieldscribe/internal/config"
)

const implicitTLSPort = 465

// mailSender delivers a composed message.
type mailSender func(ctx context.Context, msg *mail.Msg) error

type emailService struct {
	from      string
	recipient string
	outputURL string
	send      mailSender
	now       func() time.Time
}

func newEmailService(cfg config.Notifications, timeout time.Duration) *emailService {
	return &emailService{
		from:      cfg.From,
		recipient: cfg.Recipient,
		outputURL: cfg.OutputURL,
		send:      smtpSender(cfg, timeout),
		now:       time.Now,
	}
}

func (e *emailService) NotifyRunCompleted(ctx context.Context, summary Summary) error {
	if len(summary.Dates) == 0 {
		return nil
	}
	return e.deliver(ctx, "Nuevas transcripciones procesadas", summaryBody(summary, e.outputURL))
}

func (e *emailService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var b strings.Builder
	b.WriteString("La ejecución de fieldscribe falló")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		fmt.Fprintf(&b, " (%s)", contextLabel)
	}
	b.WriteString(".\n\n")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("error desconocido")
	}
	b.WriteString("\n\nLas grabaciones pendientes se reintentarán en la próxima ejecución.\n")
	return e.deliver(ctx, "Error en la transcripción", b.String())
}

func (e *emailService) TestNotification(ctx context.Context) error {
	return e.deliver(ctx, "Prueba de notificación", "Prueba del sistema de notificaciones.\n")
}

func (e *emailService) deliver(ctx context.Context, subject, body string) error {
	msg, err := e.compose("fieldscribe – "+subject, body)
	if err != nil {
		return err
	}
	if err := e.send(ctx, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", e.recipient, err)
	}
	return nil
}

// compose builds a plain-text UTF-8 message. Addresses are parsed, so a
// malformed from or recipient fails here rather than at the server.
func (e *emailService) compose(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))
	if err := msg.From(e.from); err != nil {
		return nil, fmt.Errorf("email sender %q: %w", e.from, err)
	}
	if err := msg.To(e.recipient); err != nil {
		return nil, fmt.Errorf("email recipient %q: %w", e.recipient, err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(e.now())
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func summaryBody(summary Summary, outputURL string) string {
	var b strings.Builder
	b.WriteString("Hola,\n\nLas transcripciones fueron procesadas correctamente.\n\n")
	if outputURL != "" {
		fmt.Fprintf(&b, "Podés acceder a todas las fechas aquí:\n%s\n\n", outputURL)
	}
	b.WriteString("Detalles generados hoy:\n\n")
	for _, day := range summary.Dates {
		fmt.Fprintf(&b, "%s\n", day.Date)
		if day.Folder != "" {
			fmt.Fprintf(&b, "   Carpeta: %s\n", day.Folder)
		}
		if day.CompiledPath != "" {
			fmt.Fprintf(&b, "   Documento compilado: %s\n", path.Base(day.CompiledPath))
		}
		fmt.Fprintf(&b, "   Grabaciones nuevas: %d\n\n", day.Recordings)
	}
	b.WriteString("Dentro de la carpeta encontrarás:\n")
	b.WriteString("- Subcarpetas ordenadas por fecha\n")
	b.WriteString("- Documentos individuales por audio\n")
	b.WriteString("- Documento compilado por día\n")
	if summary.Failed > 0 {
		fmt.Fprintf(&b, "\nAtención: %d grabaciones fallaron y se reintentarán.\n", summary.Failed)
	}
	return b.String()
}

// smtpSender dials cfg.SMTPHost for every message. Port 465 uses implicit
// TLS; any other port upgrades with STARTTLS when the server offers it.
// PLAIN auth is used only when a username is configured.
func smtpSender(cfg config.Notifications, timeout time.Duration) mailSender {
	return func(ctx context.Context, msg *mail.Msg) error {
		client, err := mail.NewClient(cfg.SMTPHost, clientOptions(cfg, timeout)...)
		if err != nil {
			return fmt.Errorf("smtp client: %w", err)
		}
		return client.DialAndSendWithContext(ctx, msg)
	}
}

func clientOptions(cfg config.Notifications, timeout time.Duration) []mail.Option {
	opts := []mail.Option{
		mail.WithTLSConfig(&tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}),
	}
	if cfg.SMTPPort == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.SMTPPort > 0 {
		opts = append(opts, mail.WithPort(cfg.SMTPPort))
	}
	if timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	return opts
}
