package service

import (
    "context"
    "time"

    "github.com/pkg/errors"
    "github.com/wneessen/go-mail"
)

// SettingsSource yields the SMTP settings to use for one send.
type SettingsSource interface {
    Active(ctx context.Context) (SmtpSettings, error)
}

// SMTPMailer sends mail through the currently active SMTP configuration.
// Settings are loaded per message so that admin edits apply immediately.
type SMTPMailer struct {
    settings SettingsSource
    from     string // optional; defaults to the SMTP username
    timeout  time.Duration
}

func NewSMTPMailer(settings SettingsSource, from string) *SMTPMailer {
    return &SMTPMailer{settings: settings, from: from, timeout: 15 * time.Second}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
    cfg, err := m.settings.Active(ctx)
    if err != nil {
        return err
    }

    msg := mail.NewMsg()
    from := m.from
    if from == "" {
        from = cfg.Username
    }
    if err := msg.From(from); err != nil {
        return errors.Wrapf(err, "invalid sender %q", from)
    }
    if err := msg.To(to); err != nil {
        return errors.Wrapf(err, "invalid recipient %q", to)
    }
    msg.Subject(subject)
    msg.SetBodyString(mail.TypeTextHTML, html)

    client, err := mail.NewClient(cfg.Host, clientOptions(cfg, m.timeout)...)
    if err != nil {
        return errors.Wrap(err, "smtp client")
    }
    return errors.Wrap(client.DialAndSendWithContext(ctx, msg), "smtp send")
}

// clientOptions uses implicit TLS on port 465 and opportunistic STARTTLS
// everywhere else.
func clientOptions(cfg SmtpSettings, timeout time.Duration) []mail.Option {
    opts := []mail.Option{
        mail.WithPort(cfg.Port),
        mail.WithSMTPAuth(mail.SMTPAuthPlain),
        mail.WithUsername(cfg.Username),
        mail.WithPassword(cfg.Password),
        mail.WithTimeout(timeout),
    }
    if cfg.Port == 465 {
        return append(opts, mail.WithSSL())
    }
    return append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
}
