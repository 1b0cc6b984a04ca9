package smtp

import (
	"context"
	"io"
	"sync"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
	"github.com/oshokin/camera-funnel/internal/logger"
	"github.com/oshokin/camera-funnel/internal/normalize"
)

// Recorder observes outcomes decided before the loopback call.
type Recorder interface {
	Observe(channel trigger.Channel, outcome trigger.Outcome)
}

// backend creates one session per connection.
type backend struct {
	ctx       context.Context //nolint:containedctx // Logger scope of the listener.
	delimiter string
	username  string
	password  string
	loopback  Loopback
	recorder  Recorder
	inflight  *sync.WaitGroup
}

// NewSession implements gosmtp.Backend.
func (b *backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	ctx := b.ctx
	if conn := c.Conn(); conn != nil {
		ctx = logger.WithKV(ctx, "remote", conn.RemoteAddr().String())
	}

	return &session{backend: b, ctx: ctx}, nil
}

// session collects recipients of one mail transaction.
type session struct {
	backend    *backend
	ctx        context.Context //nolint:containedctx // Per-connection logger scope.
	from       string
	recipients []string
}

// AuthMechanisms implements gosmtp.AuthSession. Authentication stays optional.
func (s *session) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

// Auth implements gosmtp.AuthSession.
func (s *session) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain {
		return nil, gosmtp.ErrAuthUnsupported
	}

	return sasl.NewPlainServer(func(_, username, password string) error {
		if s.backend.username == "" && s.backend.password == "" {
			return nil
		}

		if username != s.backend.username || password != s.backend.password {
			logger.WarnKV(s.ctx, "SMTP authentication failed", "username", username)

			return gosmtp.ErrAuthFailed
		}

		return nil
	}), nil
}

// Mail implements gosmtp.Session.
func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.from = from

	return nil
}

// Rcpt implements gosmtp.Session. Every recipient is accepted.
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)

	return nil
}

// Data implements gosmtp.Session. The body is discarded; only recipients matter.
func (s *session) Data(r io.Reader) error {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}

	for _, recipient := range s.recipients {
		s.dispatch(recipient)
	}

	return nil
}

// Reset implements gosmtp.Session.
func (s *session) Reset() {
	s.from = ""
	s.recipients = nil
}

// Logout implements gosmtp.Session.
func (s *session) Logout() error {
	return nil
}

// dispatch triggers the loopback call for one recipient without blocking the mail transaction.
func (s *session) dispatch(recipient string) {
	ctx := logger.WithKV(s.ctx, "recipient", recipient, "from", s.from)

	cameraName, err := normalize.SMTPRecipient(recipient, s.backend.delimiter)
	if err != nil {
		logger.WarnKV(ctx, "Rejected SMTP recipient", "error", err)

		if s.backend.recorder != nil {
			s.backend.recorder.Observe(trigger.ChannelSMTP, trigger.OutcomeMalformed)
		}

		return
	}

	s.backend.inflight.Add(1)

	go func() {
		defer s.backend.inflight.Done()

		res, err := s.backend.loopback.Motion(ctx, cameraName)
		if err != nil {
			logger.ErrorKV(ctx, "SMTP loopback failed", "camera", cameraName, "error", err)

			return
		}

		if res.Error {
			logger.WarnKV(ctx, "SMTP trigger failed", "camera", cameraName, "message", res.Message)

			return
		}

		logger.InfoKV(ctx, "SMTP trigger resolved", "camera", cameraName, "message", res.Message)
	}()
}
