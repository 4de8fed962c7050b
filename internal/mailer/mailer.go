// Package mailer delivers one-time verification codes over SMTP.
package mailer

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"math/big"
	"net"
	"net/smtp"
	"strconv"
)

// Sender issues a verification code to an email address and returns the code
// the recipient is expected to type back.
type Sender interface {
	SendVerificationCode(ctx context.Context, email string) (int, error)
}

// SMTP sends verification codes through a STARTTLS SMTP relay.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// Enabled false switches the sender into a pass-through mode: no mail is
	// sent and the fixed code 0 is returned. Used for local development and
	// for deployments without a mail relay. Callers must not assume the code
	// is unpredictable.
	Enabled bool
}

// SendVerificationCode generates a 4-digit code, emails it, and returns it.
// In disabled mode it returns 0 without touching the network.
func (s *SMTP) SendVerificationCode(ctx context.Context, email string) (int, error) {
	if !s.Enabled {
		return 0, nil
	}

	code, err := randomCode()
	if err != nil {
		return 0, err
	}
	if err := s.send(ctx, email, code); err != nil {
		return 0, err
	}
	return code, nil
}

// randomCode returns a uniform value in [1000, 9999].
func randomCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return 0, fmt.Errorf("mailer: generate code: %w", err)
	}
	return int(n.Int64()) + 1000, nil
}

func (s *SMTP) send(ctx context.Context, email string, code int) error {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mailer: dial %s: %w", addr, err)
	}

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mailer: handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return fmt.Errorf("mailer: starttls: %w", err)
		}
	}
	if s.Username != "" {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("mailer: auth: %w", err)
		}
	}

	if err := c.Mail(s.From); err != nil {
		return fmt.Errorf("mailer: mail from: %w", err)
	}
	if err := c.Rcpt(email); err != nil {
		return fmt.Errorf("mailer: rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("mailer: data: %w", err)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Код подтверждения\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nВаш код подтверждения: %04d\r\n", s.From, email, code)
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: close body: %w", err)
	}
	return c.Quit()
}
